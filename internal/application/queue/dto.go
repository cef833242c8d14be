package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/queue"
)

// EnqueueTaskInput is the request to queue one QuickBooks operation
type EnqueueTaskInput struct {
	Operation string     `json:"operation" binding:"required,oneof=query add mod delete void"`
	Resource  string     `json:"resource" binding:"required,oneof=Customer Invoice ItemService Account"`
	ObjectID  *uuid.UUID `json:"object_id"`
}

// TaskListFilter narrows a task listing
type TaskListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=PENDING IN_FLIGHT DONE FAILED"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// TaskResponse is the API view of a task
type TaskResponse struct {
	ID           uuid.UUID  `json:"id"`
	RealmID      uuid.UUID  `json:"realm_id"`
	Operation    string     `json:"operation"`
	Resource     string     `json:"resource"`
	ObjectID     *uuid.UUID `json:"object_id,omitempty"`
	Status       string     `json:"status"`
	SessionID    *uuid.UUID `json:"session_id,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// ToTaskResponse converts a domain task to its API view
func ToTaskResponse(t *queue.Task) TaskResponse {
	resp := TaskResponse{
		ID:           t.ID,
		RealmID:      t.RealmID,
		Operation:    t.Operation.String(),
		Resource:     t.Resource.String(),
		Status:       string(t.Status),
		SessionID:    t.SessionID,
		ErrorCode:    t.ErrorCode,
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		ProcessedAt:  t.ProcessedAt,
	}
	if t.Record != nil {
		id := t.Record.ID
		resp.ObjectID = &id
	}
	return resp
}

// ToTaskResponses converts a slice of domain tasks
func ToTaskResponses(tasks []queue.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = ToTaskResponse(&tasks[i])
	}
	return out
}
