package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/shared"
)

// Operation is the kind of QuickBooks request a task produces
type Operation string

const (
	OperationQueryAll Operation = "query"
	OperationAdd      Operation = "add"
	OperationMod      Operation = "mod"
	OperationDelete   Operation = "delete"
	OperationVoid     Operation = "void"
)

// IsValid returns true if the operation is known
func (o Operation) IsValid() bool {
	switch o {
	case OperationQueryAll, OperationAdd, OperationMod, OperationDelete, OperationVoid:
		return true
	default:
		return false
	}
}

// RequiresRecord reports whether the operation targets a single record
func (o Operation) RequiresRecord() bool {
	return o != OperationQueryAll
}

// RequiresExternalIdentity reports whether the record must already exist in QuickBooks
func (o Operation) RequiresExternalIdentity() bool {
	switch o {
	case OperationMod, OperationDelete, OperationVoid:
		return true
	default:
		return false
	}
}

// String returns the string representation of Operation
func (o Operation) String() string {
	return string(o)
}

// Status tracks a task through dispatch
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusInFlight Status = "IN_FLIGHT"
	StatusDone     Status = "DONE"
	StatusFailed   Status = "FAILED"
)

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInFlight, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the task will never be dispatched again
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Task is one queued QuickBooks operation for a realm. Tasks are delivered
// in (CreatedAt, ID) order; IDs are UUIDv7 so ties still follow insertion.
type Task struct {
	ID           uuid.UUID
	RealmID      uuid.UUID
	Operation    Operation
	Resource     qbd.ResourceType
	Record       *qbd.RecordRef
	Status       Status
	SessionID    *uuid.UUID
	ErrorCode    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ProcessedAt  *time.Time
}

// NewTask creates a pending task
func NewTask(realmID uuid.UUID, op Operation, resource qbd.ResourceType, record *qbd.RecordRef) (*Task, error) {
	if realmID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Task requires a realm")
	}
	if !op.IsValid() {
		return nil, shared.NewUnsupportedOperationError("unknown operation %q", op)
	}
	if !resource.IsValid() {
		return nil, shared.NewUnsupportedOperationError("unknown resource type %q", resource)
	}
	if op.RequiresRecord() && record == nil {
		return nil, shared.NewLookupError("%s %s requires a record reference", op, resource)
	}
	if record != nil && record.Type != resource {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Record reference type does not match the task resource")
	}

	now := time.Now()
	return &Task{
		ID:        shared.NewTimeOrderedID(),
		RealmID:   realmID,
		Operation: op,
		Resource:  resource,
		Record:    record,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Dispatch marks the task as sent to the agent within sessionID
func (t *Task) Dispatch(sessionID uuid.UUID) error {
	switch {
	case t.Status == StatusInFlight && t.SessionID != nil && *t.SessionID == sessionID:
		return nil
	case t.Status != StatusPending:
		return shared.NewDomainError(shared.CodeInvalidState, "Only pending tasks can be dispatched")
	}
	t.Status = StatusInFlight
	t.SessionID = &sessionID
	t.UpdatedAt = time.Now()
	return nil
}

// MarkDone records a successful response
func (t *Task) MarkDone() error {
	if t.Status != StatusInFlight {
		return shared.NewDomainError(shared.CodeInvalidState, "Only in-flight tasks can complete")
	}
	now := time.Now()
	t.Status = StatusDone
	t.ErrorCode = ""
	t.ErrorMessage = ""
	t.ProcessedAt = &now
	t.UpdatedAt = now
	return nil
}

// MarkFailed records a terminal failure with its reason
func (t *Task) MarkFailed(code, reason string) error {
	if t.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState, "Task already finished")
	}
	now := time.Now()
	t.Status = StatusFailed
	t.ErrorCode = code
	t.ErrorMessage = reason
	t.ProcessedAt = &now
	t.UpdatedAt = now
	return nil
}

// Release returns an in-flight task to the queue after its session was abandoned
func (t *Task) Release() error {
	if t.Status != StatusInFlight {
		return shared.NewDomainError(shared.CodeInvalidState, "Only in-flight tasks can be released")
	}
	t.Status = StatusPending
	t.SessionID = nil
	t.UpdatedAt = time.Now()
	return nil
}

// IsInFlightFor reports whether the task awaits a response within sessionID
func (t *Task) IsInFlightFor(sessionID uuid.UUID) bool {
	return t.Status == StatusInFlight && t.SessionID != nil && *t.SessionID == sessionID
}
