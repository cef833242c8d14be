package qbd

import (
	"strings"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
)

// AccountNameMaxLength is the QuickBooks limit for account names
const AccountNameMaxLength = 31

// ServiceAccount is a chart-of-accounts entry. ParentID holds the parent's
// QuickBooks ListID, not a local id, since parents are usually imported.
type ServiceAccount struct {
	shared.RealmEntity
	ExternalRef
	Name          string
	FullName      string
	IsActive      bool
	ParentID      *string
	AccountType   string
	AccountNumber string
}

// NewServiceAccount creates an active account
func NewServiceAccount(realmID uuid.UUID, name, accountType string) (*ServiceAccount, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if len(name) > AccountNameMaxLength {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot exceed 31 characters")
	}
	return &ServiceAccount{
		RealmEntity: shared.NewRealmEntity(realmID),
		Name:        name,
		FullName:    name,
		IsActive:    true,
		AccountType: accountType,
	}, nil
}

// Resource implements Record
func (a *ServiceAccount) Resource() ResourceType { return ResourceAccount }

// External implements Record
func (a *ServiceAccount) External() *ExternalRef { return &a.ExternalRef }

// ParentListID returns the parent's ListID, or "" for top-level accounts
func (a *ServiceAccount) ParentListID() string {
	if a.ParentID == nil {
		return ""
	}
	return *a.ParentID
}
