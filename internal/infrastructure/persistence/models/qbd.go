package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for the Customer domain entity
type CustomerModel struct {
	BaseModel
	ExternalRefModel
	RealmID           uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_customers_name_realm,priority:2"`
	Name              string    `gorm:"type:varchar(41);not null;uniqueIndex:idx_customers_name_realm,priority:1"`
	FullName          string    `gorm:"type:varchar(209);not null;default:''"`
	IsActive          bool      `gorm:"not null"`
	CompanyName       string    `gorm:"type:varchar(41);not null;default:''"`
	Phone             string    `gorm:"type:varchar(21);not null;default:''"`
	AltPhone          string    `gorm:"type:varchar(21);not null;default:''"`
	Fax               string    `gorm:"type:varchar(21);not null;default:''"`
	Email             string    `gorm:"type:varchar(1023);not null;default:''"`
	Contact           string    `gorm:"type:varchar(41);not null;default:''"`
	AltContact        string    `gorm:"type:varchar(41);not null;default:''"`
	TimeCreated       *time.Time
	TimeModified      *time.Time
	ExternalID        string `gorm:"type:varchar(255);not null;default:''"`
	ExternalUpdatedAt *time.Time
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *qbd.Customer {
	return &qbd.Customer{
		RealmEntity:       shared.RealmEntity{BaseEntity: m.BaseModel.ToDomain(), RealmID: m.RealmID},
		ExternalRef:       m.ToExternalRef(),
		Name:              m.Name,
		FullName:          m.FullName,
		IsActive:          m.IsActive,
		CompanyName:       m.CompanyName,
		Phone:             m.Phone,
		AltPhone:          m.AltPhone,
		Fax:               m.Fax,
		Email:             m.Email,
		Contact:           m.Contact,
		AltContact:        m.AltContact,
		TimeCreated:       m.TimeCreated,
		TimeModified:      m.TimeModified,
		ExternalID:        m.ExternalID,
		ExternalUpdatedAt: m.ExternalUpdatedAt,
	}
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer
func CustomerModelFromDomain(c *qbd.Customer) *CustomerModel {
	m := &CustomerModel{
		ExternalRefModel:  ExternalRefModelFromDomain(c.ExternalRef),
		Name:              c.Name,
		FullName:          c.FullName,
		IsActive:          c.IsActive,
		CompanyName:       c.CompanyName,
		Phone:             c.Phone,
		AltPhone:          c.AltPhone,
		Fax:               c.Fax,
		Email:             c.Email,
		Contact:           c.Contact,
		AltContact:        c.AltContact,
		TimeCreated:       c.TimeCreated,
		TimeModified:      c.TimeModified,
		ExternalID:        c.ExternalID,
		ExternalUpdatedAt: c.ExternalUpdatedAt,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	m.RealmID = c.RealmID
	return m
}

// InvoiceModel is the persistence model for the Invoice header.
// list_id holds the QuickBooks TxnID.
type InvoiceModel struct {
	RealmScopedModel
	ExternalRefModel
	CustomerID        uuid.UUID `gorm:"type:uuid;not null;index"`
	TxnDate           *time.Time
	DueDate           *time.Time
	IsPending         bool   `gorm:"not null;default:false"`
	Memo              string `gorm:"type:varchar(4095);not null;default:''"`
	RefNumber         string `gorm:"type:varchar(21);not null;default:''"`
	TimeCreated       *time.Time
	TimeModified      *time.Time
	ExternalID        string `gorm:"type:varchar(255);not null;default:''"`
	ExternalUpdatedAt *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the header to a domain Invoice without lines or addresses
func (m *InvoiceModel) ToDomain() *qbd.Invoice {
	return &qbd.Invoice{
		RealmEntity:       m.ToRealmEntity(),
		ExternalRef:       m.ToExternalRef(),
		CustomerID:        m.CustomerID,
		TxnDate:           m.TxnDate,
		DueDate:           m.DueDate,
		IsPending:         m.IsPending,
		Memo:              m.Memo,
		RefNumber:         m.RefNumber,
		TimeCreated:       m.TimeCreated,
		TimeModified:      m.TimeModified,
		ExternalID:        m.ExternalID,
		ExternalUpdatedAt: m.ExternalUpdatedAt,
	}
}

// InvoiceModelFromDomain creates the header model from a domain Invoice
func InvoiceModelFromDomain(inv *qbd.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		ExternalRefModel:  ExternalRefModelFromDomain(inv.ExternalRef),
		CustomerID:        inv.CustomerID,
		TxnDate:           inv.TxnDate,
		DueDate:           inv.DueDate,
		IsPending:         inv.IsPending,
		Memo:              inv.Memo,
		RefNumber:         inv.RefNumber,
		TimeCreated:       inv.TimeCreated,
		TimeModified:      inv.TimeModified,
		ExternalID:        inv.ExternalID,
		ExternalUpdatedAt: inv.ExternalUpdatedAt,
	}
	m.FromRealmEntity(inv.RealmEntity)
	return m
}

// InvoiceLineModel is the persistence model for an invoice line
type InvoiceLineModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	RealmID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position      int             `gorm:"not null;default:0"`
	ItemServiceID *uuid.UUID      `gorm:"type:uuid;index"`
	Rate          decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,5);not null"`
	Note          string          `gorm:"type:varchar(150);not null;default:''"`
	TxnLineID     *string         `gorm:"type:varchar(36)"`
	ExternalID    string          `gorm:"type:varchar(255);not null;default:''"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts the persistence model to a domain InvoiceLine
func (m *InvoiceLineModel) ToDomain() qbd.InvoiceLine {
	return qbd.InvoiceLine{
		ID:            m.ID,
		RealmID:       m.RealmID,
		InvoiceID:     m.InvoiceID,
		ItemServiceID: m.ItemServiceID,
		Rate:          m.Rate,
		Quantity:      m.Quantity,
		Note:          m.Note,
		TxnLineID:     m.TxnLineID,
		ExternalID:    m.ExternalID,
	}
}

// InvoiceLineModelFromDomain creates a line model; position keeps line order
func InvoiceLineModelFromDomain(l qbd.InvoiceLine, position int) *InvoiceLineModel {
	return &InvoiceLineModel{
		ID:            l.ID,
		RealmID:       l.RealmID,
		InvoiceID:     l.InvoiceID,
		Position:      position,
		ItemServiceID: l.ItemServiceID,
		Rate:          l.Rate,
		Quantity:      l.Quantity,
		Note:          l.Note,
		TxnLineID:     l.TxnLineID,
		ExternalID:    l.ExternalID,
	}
}

// AddressModel holds the columns shared by bill and ship addresses.
// addresses is a JSON map of Addr1..Addr5.
type AddressModel struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key"`
	InvoiceID  uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex"`
	Addresses  map[string]string `gorm:"type:jsonb;serializer:json"`
	City       string            `gorm:"type:varchar(31);not null;default:''"`
	State      string            `gorm:"type:varchar(21);not null;default:''"`
	PostalCode string            `gorm:"type:varchar(13);not null;default:''"`
	Country    string            `gorm:"type:varchar(31);not null;default:''"`
	Note       string            `gorm:"type:varchar(41);not null;default:''"`
}

// ToDomain converts the persistence model to a domain Address
func (m *AddressModel) ToDomain() *qbd.Address {
	return &qbd.Address{
		ID:         m.ID,
		InvoiceID:  m.InvoiceID,
		Lines:      m.Addresses,
		City:       m.City,
		State:      m.State,
		PostalCode: m.PostalCode,
		Country:    m.Country,
		Note:       m.Note,
	}
}

// AddressModelFromDomain copies a domain Address
func AddressModelFromDomain(a *qbd.Address) AddressModel {
	return AddressModel{
		ID:         a.ID,
		InvoiceID:  a.InvoiceID,
		Addresses:  a.Lines,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Note:       a.Note,
	}
}

// BillAddressModel is stored in bill_addresses
type BillAddressModel struct {
	AddressModel
}

// TableName returns the table name for GORM
func (BillAddressModel) TableName() string {
	return "bill_addresses"
}

// ShipAddressModel is stored in ship_addresses
type ShipAddressModel struct {
	AddressModel
}

// TableName returns the table name for GORM
func (ShipAddressModel) TableName() string {
	return "ship_addresses"
}

// ItemServiceModel is the persistence model for the ItemService domain entity
type ItemServiceModel struct {
	BaseModel
	ExternalRefModel
	RealmID     uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_item_services_name_realm,priority:2"`
	Name        string           `gorm:"type:varchar(31);not null;uniqueIndex:idx_item_services_name_realm,priority:1"`
	AccountID   *uuid.UUID       `gorm:"type:uuid;index"`
	Description string           `gorm:"type:varchar(4095);not null;default:''"`
	Price       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	IsActive    bool             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ItemServiceModel) TableName() string {
	return "item_services"
}

// ToDomain converts the persistence model to a domain ItemService.
// External ids live in external_item_services and are attached by the repository.
func (m *ItemServiceModel) ToDomain() *qbd.ItemService {
	return &qbd.ItemService{
		RealmEntity: shared.RealmEntity{BaseEntity: m.BaseModel.ToDomain(), RealmID: m.RealmID},
		ExternalRef: m.ToExternalRef(),
		Name:        m.Name,
		AccountID:   m.AccountID,
		Description: m.Description,
		Price:       m.Price,
		IsActive:    m.IsActive,
	}
}

// ItemServiceModelFromDomain creates a new persistence model from a domain ItemService
func ItemServiceModelFromDomain(s *qbd.ItemService) *ItemServiceModel {
	m := &ItemServiceModel{
		ExternalRefModel: ExternalRefModelFromDomain(s.ExternalRef),
		Name:             s.Name,
		AccountID:        s.AccountID,
		Description:      s.Description,
		Price:            s.Price,
		IsActive:         s.IsActive,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	m.RealmID = s.RealmID
	return m
}

// ExternalItemServiceModel maps an item service to an id of the host application
type ExternalItemServiceModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	RealmID       uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemServiceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_external_item_services_pair,priority:1"`
	ExternalID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_external_item_services_pair,priority:2"`
}

// TableName returns the table name for GORM
func (ExternalItemServiceModel) TableName() string {
	return "external_item_services"
}

// ServiceAccountModel is the persistence model for the ServiceAccount domain entity.
// parent_id is the QuickBooks ListID of the parent account.
type ServiceAccountModel struct {
	RealmScopedModel
	ExternalRefModel
	Name          string  `gorm:"type:varchar(31);not null"`
	FullName      string  `gorm:"type:varchar(159);not null;default:''"`
	IsActive      bool    `gorm:"not null"`
	ParentID      *string `gorm:"type:varchar(36)"`
	AccountType   string  `gorm:"type:varchar(50);not null;default:''"`
	AccountNumber string  `gorm:"type:varchar(7);not null;default:''"`
}

// TableName returns the table name for GORM
func (ServiceAccountModel) TableName() string {
	return "service_accounts"
}

// ToDomain converts the persistence model to a domain ServiceAccount
func (m *ServiceAccountModel) ToDomain() *qbd.ServiceAccount {
	return &qbd.ServiceAccount{
		RealmEntity:   m.ToRealmEntity(),
		ExternalRef:   m.ToExternalRef(),
		Name:          m.Name,
		FullName:      m.FullName,
		IsActive:      m.IsActive,
		ParentID:      m.ParentID,
		AccountType:   m.AccountType,
		AccountNumber: m.AccountNumber,
	}
}

// ServiceAccountModelFromDomain creates a new persistence model from a domain ServiceAccount
func ServiceAccountModelFromDomain(a *qbd.ServiceAccount) *ServiceAccountModel {
	m := &ServiceAccountModel{
		ExternalRefModel: ExternalRefModelFromDomain(a.ExternalRef),
		Name:             a.Name,
		FullName:         a.FullName,
		IsActive:         a.IsActive,
		ParentID:         a.ParentID,
		AccountType:      a.AccountType,
		AccountNumber:    a.AccountNumber,
	}
	m.FromRealmEntity(a.RealmEntity)
	return m
}

// AllModels lists every table model in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&RealmModel{},
		&RealmSessionModel{},
		&QBDTaskModel{},
		&CustomerModel{},
		&ServiceAccountModel{},
		&ItemServiceModel{},
		&ExternalItemServiceModel{},
		&InvoiceModel{},
		&InvoiceLineModel{},
		&BillAddressModel{},
		&ShipAddressModel{},
	}
}
