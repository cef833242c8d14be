package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCustomerRepository implements qbd.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) findOne(ctx context.Context, query string, args ...any) (*qbd.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a customer by ID within a realm
func (r *GormCustomerRepository) FindByID(ctx context.Context, realmID, id uuid.UUID) (*qbd.Customer, error) {
	return r.findOne(ctx, "realm_id = ? AND id = ?", realmID, id)
}

// FindByListID finds a customer by its QuickBooks ListID
func (r *GormCustomerRepository) FindByListID(ctx context.Context, realmID uuid.UUID, listID string) (*qbd.Customer, error) {
	if listID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "realm_id = ? AND list_id = ?", realmID, listID)
}

// FindByName finds a customer by its unique name within a realm
func (r *GormCustomerRepository) FindByName(ctx context.Context, realmID uuid.UUID, name string) (*qbd.Customer, error) {
	return r.findOne(ctx, "realm_id = ? AND name = ?", realmID, name)
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, c *qbd.Customer) error {
	return r.db.WithContext(ctx).Save(models.CustomerModelFromDomain(c)).Error
}

var _ qbd.CustomerRepository = (*GormCustomerRepository)(nil)
