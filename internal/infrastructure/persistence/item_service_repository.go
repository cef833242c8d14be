package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormItemServiceRepository implements qbd.ItemServiceRepository using GORM.
// External ids are kept in external_item_services.
type GormItemServiceRepository struct {
	db *gorm.DB
}

// NewGormItemServiceRepository creates a new GormItemServiceRepository
func NewGormItemServiceRepository(db *gorm.DB) *GormItemServiceRepository {
	return &GormItemServiceRepository{db: db}
}

func (r *GormItemServiceRepository) findOne(ctx context.Context, query *gorm.DB) (*qbd.ItemService, error) {
	var model models.ItemServiceModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	item := model.ToDomain()
	var externalIDs []string
	if err := r.db.WithContext(ctx).Model(&models.ExternalItemServiceModel{}).
		Where("item_service_id = ?", item.ID).
		Order("external_id ASC").
		Pluck("external_id", &externalIDs).Error; err != nil {
		return nil, err
	}
	item.ExternalIDs = externalIDs
	return item, nil
}

// FindByID finds an item service by ID within a realm
func (r *GormItemServiceRepository) FindByID(ctx context.Context, realmID, id uuid.UUID) (*qbd.ItemService, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).Where("realm_id = ? AND id = ?", realmID, id))
}

// FindByListID finds an item service by its QuickBooks ListID
func (r *GormItemServiceRepository) FindByListID(ctx context.Context, realmID uuid.UUID, listID string) (*qbd.ItemService, error) {
	if listID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, r.db.WithContext(ctx).Where("realm_id = ? AND list_id = ?", realmID, listID))
}

// FindByName finds an item service by its unique name within a realm
func (r *GormItemServiceRepository) FindByName(ctx context.Context, realmID uuid.UUID, name string) (*qbd.ItemService, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).Where("realm_id = ? AND name = ?", realmID, name))
}

// FindByExternalID finds the item service mapped to a host application id
func (r *GormItemServiceRepository) FindByExternalID(ctx context.Context, realmID uuid.UUID, externalID string) (*qbd.ItemService, error) {
	sub := r.db.Model(&models.ExternalItemServiceModel{}).
		Select("item_service_id").
		Where("realm_id = ? AND external_id = ?", realmID, externalID)
	return r.findOne(ctx, r.db.WithContext(ctx).Where("realm_id = ? AND id IN (?)", realmID, sub))
}

// Save creates or updates an item service and reconciles its external ids
func (r *GormItemServiceRepository) Save(ctx context.Context, s *qbd.ItemService) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(models.ItemServiceModelFromDomain(s)).Error; err != nil {
			return err
		}

		stale := tx.Where("item_service_id = ?", s.ID)
		if len(s.ExternalIDs) > 0 {
			stale = stale.Where("external_id NOT IN ?", s.ExternalIDs)
		}
		if err := stale.Delete(&models.ExternalItemServiceModel{}).Error; err != nil {
			return err
		}
		if len(s.ExternalIDs) == 0 {
			return nil
		}

		rows := make([]models.ExternalItemServiceModel, len(s.ExternalIDs))
		for i, externalID := range s.ExternalIDs {
			rows[i] = models.ExternalItemServiceModel{
				ID:            uuid.New(),
				RealmID:       s.RealmID,
				ItemServiceID: s.ID,
				ExternalID:    externalID,
			}
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

var _ qbd.ItemServiceRepository = (*GormItemServiceRepository)(nil)
