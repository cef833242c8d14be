package realm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/qbdsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateRealmInput holds the onboarding parameters of a realm
type CreateRealmInput struct {
	SchemaName string
	Name       string
	Password   string
}

// RegistryService resolves realms and checks their Web Connector credentials
type RegistryService struct {
	realms realm.RealmRepository
	hasher realm.PasswordHasher
	logger *zap.Logger
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(realms realm.RealmRepository, hasher realm.PasswordHasher, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		realms: realms,
		hasher: hasher,
		logger: logger,
	}
}

// Lookup finds an active realm by its UUID or its schema name
func (s *RegistryService) Lookup(ctx context.Context, identifier string) (*realm.Realm, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, shared.ErrNotFound
	}

	var (
		r   *realm.Realm
		err error
	)
	if id, parseErr := uuid.Parse(identifier); parseErr == nil {
		r, err = s.realms.FindByID(ctx, id)
	} else {
		r, err = s.realms.FindBySchemaName(ctx, strings.ToLower(identifier))
	}
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

// VerifyCredential checks raw against the realm's stored hash. An outdated
// hash is upgraded in place; a failed upgrade is logged and does not reject
// an otherwise valid login.
func (s *RegistryService) VerifyCredential(ctx context.Context, r *realm.Realm, raw string) (bool, error) {
	v, err := r.VerifyCredential(s.hasher, raw)
	if err != nil {
		return false, err
	}
	if !v.Matched {
		return false, nil
	}

	if r.ApplyRehash(v) {
		if err := s.realms.UpdatePasswordHash(ctx, r.ID, r.PasswordHash); err != nil {
			s.logger.Warn("Failed to persist upgraded password hash",
				zap.String("realm_id", r.ID.String()),
				zap.Error(err))
		} else {
			s.logger.Info("Upgraded realm password hash", zap.String("realm_id", r.ID.String()))
		}
	}
	return true, nil
}

// SetCredential replaces the realm password with a fresh hash
func (s *RegistryService) SetCredential(ctx context.Context, r *realm.Realm, raw string) error {
	if err := r.SetCredential(s.hasher, raw); err != nil {
		return err
	}
	return s.realms.UpdatePasswordHash(ctx, r.ID, r.PasswordHash)
}

// Create onboards a realm, optionally with its initial password
func (s *RegistryService) Create(ctx context.Context, input CreateRealmInput) (*realm.Realm, error) {
	r, err := realm.NewRealm(input.SchemaName, input.Name)
	if err != nil {
		return nil, err
	}

	exists, err := s.realms.ExistsBySchemaName(ctx, r.SchemaName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Schema name is already taken")
	}

	if input.Password != "" {
		if err := r.SetCredential(s.hasher, input.Password); err != nil {
			return nil, err
		}
	}
	if err := s.realms.Save(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("Realm created",
		zap.String("realm_id", r.ID.String()),
		zap.String("schema_name", r.SchemaName))
	return r, nil
}

// Authenticate resolves the Web Connector user name to a realm and checks
// the password. Every failure collapses to shared.ErrAuthenticationFailed.
func (s *RegistryService) Authenticate(ctx context.Context, username, password string) (*realm.Realm, error) {
	r, err := s.Lookup(ctx, username)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("Realm lookup failed during authentication", zap.Error(err))
		}
		return nil, shared.ErrAuthenticationFailed
	}

	ok, err := s.VerifyCredential(ctx, r, password)
	if err != nil {
		s.logger.Error("Credential verification failed",
			zap.String("realm_id", r.ID.String()),
			zap.Error(err))
		return nil, shared.ErrAuthenticationFailed
	}
	if !ok {
		s.logger.Warn("Invalid Web Connector credentials", zap.String("realm_id", r.ID.String()))
		return nil, shared.ErrAuthenticationFailed
	}
	return r, nil
}
