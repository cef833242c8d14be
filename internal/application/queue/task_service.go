package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/queue"
	"github.com/qbdsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RecordResolver is the part of the translator registry the queue needs
// to validate a task before it is stored.
type RecordResolver interface {
	Supports(resource qbd.ResourceType) bool
	Resolve(ctx context.Context, recs qbd.Records, realmID uuid.UUID, ref qbd.RecordRef) (qbd.Record, error)
}

// TaskService queues QuickBooks operations on behalf of the host application
type TaskService struct {
	tasks    queue.TaskRepository
	records  qbd.Records
	resolver RecordResolver
	logger   *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(tasks queue.TaskRepository, records qbd.Records, resolver RecordResolver, logger *zap.Logger) *TaskService {
	return &TaskService{
		tasks:    tasks,
		records:  records,
		resolver: resolver,
		logger:   logger,
	}
}

// Enqueue validates and stores a pending task. Non-query tasks must point
// at a record that exists in the realm.
func (s *TaskService) Enqueue(ctx context.Context, realmID uuid.UUID, input EnqueueTaskInput) (*TaskResponse, error) {
	resource, err := qbd.ParseResourceType(input.Resource)
	if err != nil {
		return nil, err
	}
	if !s.resolver.Supports(resource) {
		return nil, shared.NewUnsupportedOperationError("no translator registered for %s", resource)
	}
	op := queue.Operation(input.Operation)

	var ref *qbd.RecordRef
	if input.ObjectID != nil {
		r, err := qbd.NewRecordRef(resource, *input.ObjectID)
		if err != nil {
			return nil, err
		}
		ref = &r
	}

	task, err := queue.NewTask(realmID, op, resource, ref)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		if _, err := s.resolver.Resolve(ctx, s.records, realmID, *ref); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Save(ctx, task); err != nil {
		s.logger.Error("Failed to enqueue task",
			zap.String("realm_id", realmID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Task enqueued",
		zap.String("task_id", task.ID.String()),
		zap.String("realm_id", realmID.String()),
		zap.String("operation", op.String()),
		zap.String("resource", resource.String()))

	resp := ToTaskResponse(task)
	return &resp, nil
}

// Get returns one task of the realm
func (s *TaskService) Get(ctx context.Context, realmID, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.tasks.FindByID(ctx, realmID, id)
	if err != nil {
		return nil, err
	}
	resp := ToTaskResponse(task)
	return &resp, nil
}

// List returns a page of the realm's tasks in queue order
func (s *TaskService) List(ctx context.Context, realmID uuid.UUID, filter TaskListFilter) (shared.Paginated[TaskResponse], error) {
	f := queue.TaskFilter{Filter: shared.DefaultFilter()}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status := queue.Status(filter.Status)
		if !status.IsValid() {
			return shared.Paginated[TaskResponse]{}, shared.NewDomainError(shared.CodeInvalidInput, "Unknown task status")
		}
		f.Status = status
	}

	tasks, total, err := s.tasks.FindAll(ctx, realmID, f)
	if err != nil {
		return shared.Paginated[TaskResponse]{}, err
	}
	return shared.NewPaginated(ToTaskResponses(tasks), total, f.Page, f.PageSize), nil
}

// CountPending reports how many tasks still wait for dispatch
func (s *TaskService) CountPending(ctx context.Context, realmID uuid.UUID) (int64, error) {
	return s.tasks.CountByStatus(ctx, realmID, queue.StatusPending)
}
