package qbd

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
)

// QuickBooks field limits
const (
	CustomerNameMaxLength    = 41
	CustomerPhoneMaxLength   = 21
	CustomerContactMaxLength = 41
)

// Customer is a QuickBooks customer list entry owned by a realm
type Customer struct {
	shared.RealmEntity
	ExternalRef
	Name              string
	FullName          string
	IsActive          bool
	CompanyName       string
	Phone             string
	AltPhone          string
	Fax               string
	Email             string
	Contact           string
	AltContact        string
	TimeCreated       *time.Time
	TimeModified      *time.Time
	ExternalID        string
	ExternalUpdatedAt *time.Time
}

// CustomerDetails carries the user-editable customer fields
type CustomerDetails struct {
	CompanyName string
	Phone       string
	AltPhone    string
	Fax         string
	Email       string
	Contact     string
	AltContact  string
}

// NewCustomer creates an active customer that is not yet known to QuickBooks
func NewCustomer(realmID uuid.UUID, name string) (*Customer, error) {
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}
	return &Customer{
		RealmEntity: shared.NewRealmEntity(realmID),
		Name:        name,
		FullName:    name,
		IsActive:    true,
	}, nil
}

// Resource implements Record
func (c *Customer) Resource() ResourceType { return ResourceCustomer }

// External implements Record
func (c *Customer) External() *ExternalRef { return &c.ExternalRef }

// Rename changes the customer name
func (c *Customer) Rename(name string) error {
	if err := validateCustomerName(name); err != nil {
		return err
	}
	c.Name = name
	c.FullName = name
	c.Touch()
	return nil
}

// SetDetails replaces contact information
func (c *Customer) SetDetails(d CustomerDetails) error {
	for _, v := range []string{d.Phone, d.AltPhone, d.Fax} {
		if len(v) > CustomerPhoneMaxLength {
			return shared.NewDomainError("INVALID_PHONE", "Phone numbers cannot exceed 21 characters")
		}
	}
	for _, v := range []string{d.CompanyName, d.Contact, d.AltContact} {
		if len(v) > CustomerContactMaxLength {
			return shared.NewDomainError("INVALID_CONTACT", "Company and contact names cannot exceed 41 characters")
		}
	}
	if d.Email != "" {
		if _, err := mail.ParseAddress(d.Email); err != nil {
			return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
		}
	}

	c.CompanyName = d.CompanyName
	c.Phone = d.Phone
	c.AltPhone = d.AltPhone
	c.Fax = d.Fax
	c.Email = strings.ToLower(d.Email)
	c.Contact = d.Contact
	c.AltContact = d.AltContact
	c.Touch()
	return nil
}

// SetActive toggles the active flag
func (c *Customer) SetActive(active bool) {
	c.IsActive = active
	c.Touch()
}

// LinkExternal records the id of the matching record in the host application
func (c *Customer) LinkExternal(externalID string, updatedAt time.Time) {
	c.ExternalID = externalID
	c.ExternalUpdatedAt = &updatedAt
	c.Touch()
}

func validateCustomerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > CustomerNameMaxLength {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 41 characters")
	}
	return nil
}
