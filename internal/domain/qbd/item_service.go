package qbd

import (
	"strings"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ItemServiceNameMaxLength is the QuickBooks limit for service item names
const ItemServiceNameMaxLength = 31

// ItemService is a service item used as the "type" of invoice lines.
// AccountID is nil for items imported before their income account.
type ItemService struct {
	shared.RealmEntity
	ExternalRef
	Name        string
	AccountID   *uuid.UUID
	Description string
	Price       *decimal.Decimal
	IsActive    bool
	// ExternalIDs are ids of the host application's charge types mapped to this item
	ExternalIDs []string
}

// NewItemService creates an active service item posting to account
func NewItemService(realmID uuid.UUID, name string, accountID *uuid.UUID) (*ItemService, error) {
	if err := validateItemServiceName(name); err != nil {
		return nil, err
	}
	return &ItemService{
		RealmEntity: shared.NewRealmEntity(realmID),
		Name:        name,
		AccountID:   accountID,
		IsActive:    true,
		ExternalIDs: make([]string, 0),
	}, nil
}

// Resource implements Record
func (s *ItemService) Resource() ResourceType { return ResourceItemService }

// External implements Record
func (s *ItemService) External() *ExternalRef { return &s.ExternalRef }

// Rename changes the item name
func (s *ItemService) Rename(name string) error {
	if err := validateItemServiceName(name); err != nil {
		return err
	}
	s.Name = name
	s.Touch()
	return nil
}

// SetDescription sets the sales description
func (s *ItemService) SetDescription(desc string) {
	s.Description = desc
	s.Touch()
}

// SetPrice sets the default sales price; nil clears it
func (s *ItemService) SetPrice(price *decimal.Decimal) error {
	if price != nil && price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	s.Price = price
	s.Touch()
	return nil
}

// AssignAccount links the income account
func (s *ItemService) AssignAccount(accountID uuid.UUID) {
	s.AccountID = &accountID
	s.Touch()
}

// MapExternal links a host application charge type to this item
func (s *ItemService) MapExternal(externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" || len(externalID) > 36 {
		return shared.NewDomainError("INVALID_EXTERNAL_ID", "External id must be 1-36 characters")
	}
	for _, id := range s.ExternalIDs {
		if id == externalID {
			return nil
		}
	}
	s.ExternalIDs = append(s.ExternalIDs, externalID)
	s.Touch()
	return nil
}

func validateItemServiceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if len(name) > ItemServiceNameMaxLength {
		return shared.NewDomainError("INVALID_NAME", "Item name cannot exceed 31 characters")
	}
	return nil
}
