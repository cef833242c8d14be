package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// RealmScopedModel provides the columns of realm-scoped records
type RealmScopedModel struct {
	BaseModel
	RealmID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// ToRealmEntity converts RealmScopedModel to domain RealmEntity
func (m *RealmScopedModel) ToRealmEntity() shared.RealmEntity {
	return shared.RealmEntity{
		BaseEntity: m.BaseModel.ToDomain(),
		RealmID:    m.RealmID,
	}
}

// FromRealmEntity populates RealmScopedModel from domain RealmEntity
func (m *RealmScopedModel) FromRealmEntity(e shared.RealmEntity) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.RealmID = e.RealmID
}

// ExternalRefModel holds the QuickBooks identity of a record.
// list_id is unique per table; invoices store their TxnID here.
type ExternalRefModel struct {
	ListID       *string `gorm:"type:varchar(36);uniqueIndex"`
	EditSequence *string `gorm:"type:varchar(16)"`
}

// ToExternalRef converts the columns to the domain value
func (m ExternalRefModel) ToExternalRef() qbd.ExternalRef {
	return qbd.ExternalRef{
		ListID:       m.ListID,
		EditSequence: m.EditSequence,
	}
}

// ExternalRefModelFromDomain copies the domain value
func ExternalRefModelFromDomain(ref qbd.ExternalRef) ExternalRefModel {
	return ExternalRefModel{
		ListID:       ref.ListID,
		EditSequence: ref.EditSequence,
	}
}
