package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appqueue "github.com/qbdsync/backend/internal/application/queue"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/interfaces/http/middleware"
)

// TaskQueue is the task API's view of the queue service
type TaskQueue interface {
	Enqueue(ctx context.Context, realmID uuid.UUID, input appqueue.EnqueueTaskInput) (*appqueue.TaskResponse, error)
	Get(ctx context.Context, realmID, id uuid.UUID) (*appqueue.TaskResponse, error)
	List(ctx context.Context, realmID uuid.UUID, filter appqueue.TaskListFilter) (shared.Paginated[appqueue.TaskResponse], error)
	CountPending(ctx context.Context, realmID uuid.UUID) (int64, error)
}

// TaskHandler lets the host application queue QuickBooks operations for
// the realm named by its token and follow their outcome.
type TaskHandler struct {
	BaseHandler
	queue TaskQueue
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(queue TaskQueue) *TaskHandler {
	return &TaskHandler{queue: queue}
}

// QueueStats is the response of GET /qbd/queue
type QueueStats struct {
	Pending int64 `json:"pending"`
}

// Enqueue handles POST /qbd/tasks
func (h *TaskHandler) Enqueue(c *gin.Context) {
	realmID, ok := h.realmID(c)
	if !ok {
		return
	}

	var req appqueue.EnqueueTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	task, err := h.queue.Enqueue(c.Request.Context(), realmID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, task)
}

// List handles GET /qbd/tasks
func (h *TaskHandler) List(c *gin.Context) {
	realmID, ok := h.realmID(c)
	if !ok {
		return
	}

	var filter appqueue.TaskListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.queue.List(c.Request.Context(), realmID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get handles GET /qbd/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	realmID, ok := h.realmID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	task, err := h.queue.Get(c.Request.Context(), realmID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// Stats handles GET /qbd/queue
func (h *TaskHandler) Stats(c *gin.Context) {
	realmID, ok := h.realmID(c)
	if !ok {
		return
	}

	pending, err := h.queue.CountPending(c.Request.Context(), realmID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, QueueStats{Pending: pending})
}
