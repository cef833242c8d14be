package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRealmRepository implements realm.RealmRepository using GORM
type GormRealmRepository struct {
	db *gorm.DB
}

// NewGormRealmRepository creates a new GormRealmRepository
func NewGormRealmRepository(db *gorm.DB) *GormRealmRepository {
	return &GormRealmRepository{db: db}
}

// FindByID finds a realm by its ID
func (r *GormRealmRepository) FindByID(ctx context.Context, id uuid.UUID) (*realm.Realm, error) {
	var model models.RealmModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySchemaName finds a realm by its unique schema name
func (r *GormRealmRepository) FindBySchemaName(ctx context.Context, schemaName string) (*realm.Realm, error) {
	var model models.RealmModel
	if err := r.db.WithContext(ctx).Where("schema_name = ?", schemaName).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads the realm with SELECT ... FOR UPDATE. The row
// lock lasts until the surrounding transaction ends.
func (r *GormRealmRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*realm.Realm, error) {
	var model models.RealmModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsBySchemaName checks if a schema name is already taken
func (r *GormRealmRepository) ExistsBySchemaName(ctx context.Context, schemaName string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RealmModel{}).
		Where("schema_name = ?", schemaName).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a realm
func (r *GormRealmRepository) Save(ctx context.Context, rl *realm.Realm) error {
	return r.db.WithContext(ctx).Save(models.RealmModelFromDomain(rl)).Error
}

// UpdatePasswordHash swaps the stored hash without touching other columns
func (r *GormRealmRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, encoded string) error {
	result := r.db.WithContext(ctx).Model(&models.RealmModel{}).
		Where("id = ?", id).
		Update("password", encoded)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormSessionRepository implements realm.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID finds a session by its ticket
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*realm.Session, error) {
	var model models.RealmSessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByRealm lists the realm's sessions that have not ended, oldest first
func (r *GormSessionRepository) FindOpenByRealm(ctx context.Context, realmID uuid.UUID) ([]realm.Session, error) {
	var sessionModels []models.RealmSessionModel
	if err := r.db.WithContext(ctx).
		Where("realm_id = ? AND ended_at IS NULL", realmID).
		Order("created_at ASC, id ASC").
		Find(&sessionModels).Error; err != nil {
		return nil, err
	}

	sessions := make([]realm.Session, len(sessionModels))
	for i := range sessionModels {
		sessions[i] = *sessionModels[i].ToDomain()
	}
	return sessions, nil
}

// Save creates or updates a session
func (r *GormSessionRepository) Save(ctx context.Context, s *realm.Session) error {
	return r.db.WithContext(ctx).Save(models.RealmSessionModelFromDomain(s)).Error
}

var (
	_ realm.RealmRepository   = (*GormRealmRepository)(nil)
	_ realm.SessionRepository = (*GormSessionRepository)(nil)
)
