package persistence

import (
	"context"

	"github.com/qbdsync/backend/internal/application/qbwc"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/queue"
	"github.com/qbdsync/backend/internal/domain/realm"
	"gorm.io/gorm"
)

// GormTransactionScope implements qbwc.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. If fn returns an error,
// the transaction is rolled back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos qbwc.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

// GormRepositories hands out repositories bound to one *gorm.DB, either a
// transaction or the root connection.
type GormRepositories struct {
	db *gorm.DB
}

// NewGormRepositories creates repositories sharing db
func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{db: db}
}

// Realms returns the realm repository
func (r *GormRepositories) Realms() realm.RealmRepository {
	return NewGormRealmRepository(r.db)
}

// Sessions returns the session repository
func (r *GormRepositories) Sessions() realm.SessionRepository {
	return NewGormSessionRepository(r.db)
}

// Tasks returns the task repository
func (r *GormRepositories) Tasks() queue.TaskRepository {
	return NewGormTaskRepository(r.db)
}

// Customers returns the customer repository
func (r *GormRepositories) Customers() qbd.CustomerRepository {
	return NewGormCustomerRepository(r.db)
}

// Invoices returns the invoice repository
func (r *GormRepositories) Invoices() qbd.InvoiceRepository {
	return NewGormInvoiceRepository(r.db)
}

// ItemServices returns the item service repository
func (r *GormRepositories) ItemServices() qbd.ItemServiceRepository {
	return NewGormItemServiceRepository(r.db)
}

// Accounts returns the service account repository
func (r *GormRepositories) Accounts() qbd.AccountRepository {
	return NewGormServiceAccountRepository(r.db)
}

var (
	_ qbwc.TransactionScope = (*GormTransactionScope)(nil)
	_ qbwc.Repositories     = (*GormRepositories)(nil)
)
