package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/realm"
)

// RealmModel is the persistence model for the Realm domain entity
type RealmModel struct {
	BaseModel
	SchemaName string  `gorm:"type:varchar(63);not null;uniqueIndex"`
	Name       string  `gorm:"type:varchar(255);not null;default:''"`
	IsActive   bool    `gorm:"not null"`
	Password   *string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (RealmModel) TableName() string {
	return "realms"
}

// ToDomain converts the persistence model to a domain Realm
func (m *RealmModel) ToDomain() *realm.Realm {
	r := &realm.Realm{
		BaseEntity: m.BaseModel.ToDomain(),
		SchemaName: m.SchemaName,
		Name:       m.Name,
		IsActive:   m.IsActive,
	}
	if m.Password != nil {
		r.PasswordHash = *m.Password
	}
	return r
}

// FromDomain populates the persistence model from a domain Realm
func (m *RealmModel) FromDomain(r *realm.Realm) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.SchemaName = r.SchemaName
	m.Name = r.Name
	m.IsActive = r.IsActive
	m.Password = nil
	if r.PasswordHash != "" {
		hash := r.PasswordHash
		m.Password = &hash
	}
}

// RealmModelFromDomain creates a new persistence model from a domain Realm
func RealmModelFromDomain(r *realm.Realm) *RealmModel {
	m := &RealmModel{}
	m.FromDomain(r)
	return m
}

// RealmSessionModel is the persistence model for a Web Connector session
type RealmSessionModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	RealmID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_realm_sessions_open,priority:1"`
	CreatedAt      time.Time  `gorm:"not null"`
	EndedAt        *time.Time `gorm:"index:idx_realm_sessions_open,priority:2"`
	CurrentTaskID  *uuid.UUID `gorm:"type:uuid"`
	ProcessedCount int        `gorm:"not null;default:0"`
	FailedCount    int        `gorm:"not null;default:0"`
	LastError      string     `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (RealmSessionModel) TableName() string {
	return "realm_sessions"
}

// ToDomain converts the persistence model to a domain Session
func (m *RealmSessionModel) ToDomain() *realm.Session {
	return &realm.Session{
		ID:             m.ID,
		RealmID:        m.RealmID,
		CreatedAt:      m.CreatedAt,
		EndedAt:        m.EndedAt,
		CurrentTaskID:  m.CurrentTaskID,
		ProcessedCount: m.ProcessedCount,
		FailedCount:    m.FailedCount,
		LastError:      m.LastError,
	}
}

// RealmSessionModelFromDomain creates a new persistence model from a domain Session
func RealmSessionModelFromDomain(s *realm.Session) *RealmSessionModel {
	return &RealmSessionModel{
		ID:             s.ID,
		RealmID:        s.RealmID,
		CreatedAt:      s.CreatedAt,
		EndedAt:        s.EndedAt,
		CurrentTaskID:  s.CurrentTaskID,
		ProcessedCount: s.ProcessedCount,
		FailedCount:    s.FailedCount,
		LastError:      s.LastError,
	}
}
