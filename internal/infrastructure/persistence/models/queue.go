package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/queue"
)

// QBDTaskModel is the persistence model for a queued QuickBooks operation.
// content_type and object_id together form the record reference.
type QBDTaskModel struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key"`
	RealmID      uuid.UUID    `gorm:"type:uuid;not null;index:idx_qbd_tasks_queue,priority:1"`
	Operation    string       `gorm:"column:qb_operation;type:varchar(10);not null"`
	Resource     string       `gorm:"column:qb_resource;type:varchar(50);not null"`
	ContentType  *string      `gorm:"type:varchar(50)"`
	ObjectID     *uuid.UUID   `gorm:"type:uuid"`
	Status       queue.Status `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_qbd_tasks_queue,priority:2"`
	SessionID    *uuid.UUID   `gorm:"type:uuid;index"`
	ErrorCode    string       `gorm:"type:varchar(50);not null;default:''"`
	ErrorMessage string       `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time    `gorm:"not null;index:idx_qbd_tasks_queue,priority:3"`
	UpdatedAt    time.Time    `gorm:"not null"`
	ProcessedAt  *time.Time
}

// TableName returns the table name for GORM
func (QBDTaskModel) TableName() string {
	return "qbd_tasks"
}

// ToDomain converts the persistence model to a domain Task
func (m *QBDTaskModel) ToDomain() *queue.Task {
	t := &queue.Task{
		ID:           m.ID,
		RealmID:      m.RealmID,
		Operation:    queue.Operation(m.Operation),
		Resource:     qbd.ResourceType(m.Resource),
		Status:       m.Status,
		SessionID:    m.SessionID,
		ErrorCode:    m.ErrorCode,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		ProcessedAt:  m.ProcessedAt,
	}
	if m.ContentType != nil && m.ObjectID != nil {
		t.Record = &qbd.RecordRef{Type: qbd.ResourceType(*m.ContentType), ID: *m.ObjectID}
	}
	return t
}

// QBDTaskModelFromDomain creates a new persistence model from a domain Task
func QBDTaskModelFromDomain(t *queue.Task) *QBDTaskModel {
	m := &QBDTaskModel{
		ID:           t.ID,
		RealmID:      t.RealmID,
		Operation:    t.Operation.String(),
		Resource:     t.Resource.String(),
		Status:       t.Status,
		SessionID:    t.SessionID,
		ErrorCode:    t.ErrorCode,
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		ProcessedAt:  t.ProcessedAt,
	}
	if t.Record != nil {
		contentType := t.Record.Type.String()
		objectID := t.Record.ID
		m.ContentType = &contentType
		m.ObjectID = &objectID
	}
	return m
}
