package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
)

// TaskFilter narrows task listings
type TaskFilter struct {
	shared.Filter
	Status    Status
	SessionID *uuid.UUID
}

// TaskRepository persists queued tasks
type TaskRepository interface {
	FindByID(ctx context.Context, realmID, id uuid.UUID) (*Task, error)
	// NextPending returns the oldest pending task of the realm without
	// changing it; shared.ErrNotFound when the queue is drained.
	NextPending(ctx context.Context, realmID uuid.UUID) (*Task, error)
	FindInFlightBySession(ctx context.Context, sessionID uuid.UUID) (*Task, error)
	FindAll(ctx context.Context, realmID uuid.UUID, filter TaskFilter) ([]Task, int64, error)
	CountByStatus(ctx context.Context, realmID uuid.UUID, status Status) (int64, error)
	Save(ctx context.Context, t *Task) error
}
