package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps every persisted entity has
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// Touch bumps the update timestamp
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// NewBaseEntity creates a new base entity with a random ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTimeOrderedID returns a UUIDv7. Values sort by creation time, which keeps
// queue ordering and session tickets unique even when wall clocks collide.
func NewTimeOrderedID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// RealmEntity is an entity scoped to a single realm (tenant)
type RealmEntity struct {
	BaseEntity
	RealmID uuid.UUID
}

// NewRealmEntity creates a new realm-scoped entity
func NewRealmEntity(realmID uuid.UUID) RealmEntity {
	return RealmEntity{
		BaseEntity: NewBaseEntity(),
		RealmID:    realmID,
	}
}
