package qbd

import (
	"context"

	"github.com/google/uuid"
)

// All lookups are realm-scoped and return shared.ErrNotFound when nothing matches.

// CustomerRepository persists customers
type CustomerRepository interface {
	FindByID(ctx context.Context, realmID, id uuid.UUID) (*Customer, error)
	FindByListID(ctx context.Context, realmID uuid.UUID, listID string) (*Customer, error)
	FindByName(ctx context.Context, realmID uuid.UUID, name string) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
}

// InvoiceRepository persists invoices with their lines and addresses
type InvoiceRepository interface {
	FindByID(ctx context.Context, realmID, id uuid.UUID) (*Invoice, error)
	FindByListID(ctx context.Context, realmID uuid.UUID, txnID string) (*Invoice, error)
	Save(ctx context.Context, inv *Invoice) error
}

// ItemServiceRepository persists service items
type ItemServiceRepository interface {
	FindByID(ctx context.Context, realmID, id uuid.UUID) (*ItemService, error)
	FindByListID(ctx context.Context, realmID uuid.UUID, listID string) (*ItemService, error)
	FindByName(ctx context.Context, realmID uuid.UUID, name string) (*ItemService, error)
	FindByExternalID(ctx context.Context, realmID uuid.UUID, externalID string) (*ItemService, error)
	Save(ctx context.Context, s *ItemService) error
}

// AccountRepository persists chart-of-accounts entries
type AccountRepository interface {
	FindByID(ctx context.Context, realmID, id uuid.UUID) (*ServiceAccount, error)
	FindByListID(ctx context.Context, realmID uuid.UUID, listID string) (*ServiceAccount, error)
	Save(ctx context.Context, a *ServiceAccount) error
}

// Records groups the record repositories of one unit of work
type Records interface {
	Customers() CustomerRepository
	Invoices() InvoiceRepository
	ItemServices() ItemServiceRepository
	Accounts() AccountRepository
}
