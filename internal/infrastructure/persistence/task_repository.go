package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/queue"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository implements queue.TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// FindByID finds a task of the realm
func (r *GormTaskRepository) FindByID(ctx context.Context, realmID, id uuid.UUID) (*queue.Task, error) {
	var model models.QBDTaskModel
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

// NextPending returns the realm's oldest pending task, locking its row.
// Ties on created_at fall back to the time-ordered id.
func (r *GormTaskRepository) NextPending(ctx context.Context, realmID uuid.UUID) (*queue.Task, error) {
	var model models.QBDTaskModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("realm_id = ? AND status = ?", realmID, queue.StatusPending).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&model).Error
	if err != nil {
		return nil, err
	}
	if model.ID == uuid.Nil {
		return nil, shared.ErrNotFound
	}
	return model.ToDomain(), nil
}

// FindInFlightBySession returns the task a session is waiting on
func (r *GormTaskRepository) FindInFlightBySession(ctx context.Context, sessionID uuid.UUID) (*queue.Task, error) {
	var model models.QBDTaskModel
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, queue.StatusInFlight).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&model).Error
	if err != nil {
		return nil, err
	}
	if model.ID == uuid.Nil {
		return nil, shared.ErrNotFound
	}
	return model.ToDomain(), nil
}

// FindAll lists the realm's tasks with pagination
func (r *GormTaskRepository) FindAll(ctx context.Context, realmID uuid.UUID, filter queue.TaskFilter) ([]queue.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QBDTaskModel{}).Where("realm_id = ?", realmID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderDir := "ASC"
	if filter.OrderDir != "" {
		orderDir = ValidateSortOrder(filter.OrderDir)
	}
	orderBy := ValidateSortField(filter.OrderBy, TaskSortFields, "created_at")
	query = query.Order(orderBy + " " + orderDir).Order("id " + orderDir)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var taskModels []models.QBDTaskModel
	if err := query.Find(&taskModels).Error; err != nil {
		return nil, 0, err
	}

	tasks := make([]queue.Task, len(taskModels))
	for i := range taskModels {
		tasks[i] = *taskModels[i].ToDomain()
	}
	return tasks, total, nil
}

// CountByStatus counts the realm's tasks in the given status
func (r *GormTaskRepository) CountByStatus(ctx context.Context, realmID uuid.UUID, status queue.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.QBDTaskModel{}).
		Where("realm_id = ? AND status = ?", realmID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a task
func (r *GormTaskRepository) Save(ctx context.Context, t *queue.Task) error {
	return r.db.WithContext(ctx).Save(models.QBDTaskModelFromDomain(t)).Error
}

var _ queue.TaskRepository = (*GormTaskRepository)(nil)
