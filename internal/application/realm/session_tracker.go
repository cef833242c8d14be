package realm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/qbdsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SessionTracker opens, finds and closes Web Connector sessions.
// It is bound to one SessionRepository, usually the one of the current
// transaction.
type SessionTracker struct {
	sessions realm.SessionRepository
	logger   *zap.Logger
}

// NewSessionTracker creates a new SessionTracker
func NewSessionTracker(sessions realm.SessionRepository, logger *zap.Logger) *SessionTracker {
	return &SessionTracker{
		sessions: sessions,
		logger:   logger,
	}
}

// Open starts a fresh session for the realm
func (t *SessionTracker) Open(ctx context.Context, realmID uuid.UUID) (*realm.Session, error) {
	s := realm.NewSession(realmID)
	if err := t.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	t.logger.Debug("Session opened",
		zap.String("session_id", s.ID.String()),
		zap.String("realm_id", realmID.String()))
	return s, nil
}

// Close ends an open session. Closing an already closed session is refused
// so the end timestamp is written exactly once.
func (t *SessionTracker) Close(ctx context.Context, s *realm.Session) error {
	if !s.IsOpen() {
		return shared.NewDomainError(shared.CodeInvalidState, "Session is already closed")
	}
	s.Close()
	if err := t.sessions.Save(ctx, s); err != nil {
		return err
	}
	t.logger.Debug("Session closed",
		zap.String("session_id", s.ID.String()),
		zap.Int("processed", s.ProcessedCount))
	return nil
}

// FindOpen resolves a ticket to its open session. Unknown, malformed and
// closed tickets are all authentication failures.
func (t *SessionTracker) FindOpen(ctx context.Context, ticket string) (*realm.Session, error) {
	s, err := t.Find(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if !s.IsOpen() {
		return nil, shared.ErrAuthenticationFailed
	}
	return s, nil
}

// Find resolves a ticket to its session whether open or closed
func (t *SessionTracker) Find(ctx context.Context, ticket string) (*realm.Session, error) {
	id, err := uuid.Parse(ticket)
	if err != nil {
		return nil, shared.ErrAuthenticationFailed
	}
	s, err := t.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrAuthenticationFailed
		}
		return nil, err
	}
	return s, nil
}

// OpenSessions lists the sessions of a realm that were never closed
func (t *SessionTracker) OpenSessions(ctx context.Context, realmID uuid.UUID) ([]realm.Session, error) {
	return t.sessions.FindOpenByRealm(ctx, realmID)
}

// Update persists bookkeeping changes of a session
func (t *SessionTracker) Update(ctx context.Context, s *realm.Session) error {
	return t.sessions.Save(ctx, s)
}
