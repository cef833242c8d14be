package realm

import (
	"context"

	"github.com/google/uuid"
)

// RealmRepository persists realms
type RealmRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Realm, error)
	FindBySchemaName(ctx context.Context, schemaName string) (*Realm, error)
	// FindByIDForUpdate loads the realm and holds a row lock for the rest of
	// the surrounding transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Realm, error)
	ExistsBySchemaName(ctx context.Context, schemaName string) (bool, error)
	Save(ctx context.Context, r *Realm) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, encoded string) error
}

// SessionRepository persists polling sessions
type SessionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	FindOpenByRealm(ctx context.Context, realmID uuid.UUID) ([]Session, error)
	Save(ctx context.Context, s *Session) error
}
