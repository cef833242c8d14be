package translator

import (
	"context"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/shared"
)

// memRecords is an in-memory qbd.Records for translator tests
type memRecords struct {
	customers map[uuid.UUID]*qbd.Customer
	invoices  map[uuid.UUID]*qbd.Invoice
	items     map[uuid.UUID]*qbd.ItemService
	accounts  map[uuid.UUID]*qbd.ServiceAccount
	saves     int
}

func newMemRecords() *memRecords {
	return &memRecords{
		customers: make(map[uuid.UUID]*qbd.Customer),
		invoices:  make(map[uuid.UUID]*qbd.Invoice),
		items:     make(map[uuid.UUID]*qbd.ItemService),
		accounts:  make(map[uuid.UUID]*qbd.ServiceAccount),
	}
}

func (m *memRecords) Customers() qbd.CustomerRepository       { return memCustomers{m} }
func (m *memRecords) Invoices() qbd.InvoiceRepository         { return memInvoices{m} }
func (m *memRecords) ItemServices() qbd.ItemServiceRepository { return memItems{m} }
func (m *memRecords) Accounts() qbd.AccountRepository         { return memAccounts{m} }

func find[T qbd.Record](items map[uuid.UUID]T, realmID uuid.UUID, realmOf func(T) uuid.UUID, match func(T) bool) (T, error) {
	var zero T
	for _, it := range items {
		if realmOf(it) == realmID && match(it) {
			return it, nil
		}
	}
	return zero, shared.ErrNotFound
}

type memCustomers struct{ m *memRecords }

func customerRealm(c *qbd.Customer) uuid.UUID { return c.RealmID }

func (r memCustomers) FindByID(_ context.Context, realmID, id uuid.UUID) (*qbd.Customer, error) {
	return find(r.m.customers, realmID, customerRealm, func(c *qbd.Customer) bool { return c.ID == id })
}

func (r memCustomers) FindByListID(_ context.Context, realmID uuid.UUID, listID string) (*qbd.Customer, error) {
	return find(r.m.customers, realmID, customerRealm, func(c *qbd.Customer) bool { return c.ListIDOrEmpty() == listID })
}

func (r memCustomers) FindByName(_ context.Context, realmID uuid.UUID, name string) (*qbd.Customer, error) {
	return find(r.m.customers, realmID, customerRealm, func(c *qbd.Customer) bool { return c.Name == name })
}

func (r memCustomers) Save(_ context.Context, c *qbd.Customer) error {
	r.m.customers[c.ID] = c
	r.m.saves++
	return nil
}

type memInvoices struct{ m *memRecords }

func invoiceRealm(i *qbd.Invoice) uuid.UUID { return i.RealmID }

func (r memInvoices) FindByID(_ context.Context, realmID, id uuid.UUID) (*qbd.Invoice, error) {
	return find(r.m.invoices, realmID, invoiceRealm, func(i *qbd.Invoice) bool { return i.ID == id })
}

func (r memInvoices) FindByListID(_ context.Context, realmID uuid.UUID, txnID string) (*qbd.Invoice, error) {
	return find(r.m.invoices, realmID, invoiceRealm, func(i *qbd.Invoice) bool { return i.TxnID() == txnID })
}

func (r memInvoices) Save(_ context.Context, inv *qbd.Invoice) error {
	r.m.invoices[inv.ID] = inv
	r.m.saves++
	return nil
}

type memItems struct{ m *memRecords }

func itemRealm(s *qbd.ItemService) uuid.UUID { return s.RealmID }

func (r memItems) FindByID(_ context.Context, realmID, id uuid.UUID) (*qbd.ItemService, error) {
	return find(r.m.items, realmID, itemRealm, func(s *qbd.ItemService) bool { return s.ID == id })
}

func (r memItems) FindByListID(_ context.Context, realmID uuid.UUID, listID string) (*qbd.ItemService, error) {
	return find(r.m.items, realmID, itemRealm, func(s *qbd.ItemService) bool { return s.ListIDOrEmpty() == listID })
}

func (r memItems) FindByName(_ context.Context, realmID uuid.UUID, name string) (*qbd.ItemService, error) {
	return find(r.m.items, realmID, itemRealm, func(s *qbd.ItemService) bool { return s.Name == name })
}

func (r memItems) FindByExternalID(_ context.Context, realmID uuid.UUID, externalID string) (*qbd.ItemService, error) {
	return find(r.m.items, realmID, itemRealm, func(s *qbd.ItemService) bool {
		for _, id := range s.ExternalIDs {
			if id == externalID {
				return true
			}
		}
		return false
	})
}

func (r memItems) Save(_ context.Context, s *qbd.ItemService) error {
	r.m.items[s.ID] = s
	r.m.saves++
	return nil
}

type memAccounts struct{ m *memRecords }

func accountRealm(a *qbd.ServiceAccount) uuid.UUID { return a.RealmID }

func (r memAccounts) FindByID(_ context.Context, realmID, id uuid.UUID) (*qbd.ServiceAccount, error) {
	return find(r.m.accounts, realmID, accountRealm, func(a *qbd.ServiceAccount) bool { return a.ID == id })
}

func (r memAccounts) FindByListID(_ context.Context, realmID uuid.UUID, listID string) (*qbd.ServiceAccount, error) {
	return find(r.m.accounts, realmID, accountRealm, func(a *qbd.ServiceAccount) bool { return a.ListIDOrEmpty() == listID })
}

func (r memAccounts) Save(_ context.Context, a *qbd.ServiceAccount) error {
	r.m.accounts[a.ID] = a
	r.m.saves++
	return nil
}
