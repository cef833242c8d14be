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

// GormServiceAccountRepository implements qbd.AccountRepository using GORM
type GormServiceAccountRepository struct {
	db *gorm.DB
}

// NewGormServiceAccountRepository creates a new GormServiceAccountRepository
func NewGormServiceAccountRepository(db *gorm.DB) *GormServiceAccountRepository {
	return &GormServiceAccountRepository{db: db}
}

// FindByID finds an account by ID within a realm
func (r *GormServiceAccountRepository) FindByID(ctx context.Context, realmID, id uuid.UUID) (*qbd.ServiceAccount, error) {
	var model models.ServiceAccountModel
	if err := r.db.WithContext(ctx).
		Where("realm_id = ? AND id = ?", realmID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByListID finds an account by its QuickBooks ListID
func (r *GormServiceAccountRepository) FindByListID(ctx context.Context, realmID uuid.UUID, listID string) (*qbd.ServiceAccount, error) {
	if listID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.ServiceAccountModel
	if err := r.db.WithContext(ctx).
		Where("realm_id = ? AND list_id = ?", realmID, listID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an account
func (r *GormServiceAccountRepository) Save(ctx context.Context, a *qbd.ServiceAccount) error {
	return r.db.WithContext(ctx).Save(models.ServiceAccountModelFromDomain(a)).Error
}

var _ qbd.AccountRepository = (*GormServiceAccountRepository)(nil)
