// Package qbwc drives the QuickBooks Web Connector polling protocol:
// authenticate, hand out one qbXML request at a time, apply the response,
// and close the session when the realm's queue is drained.
package qbwc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	apprealm "github.com/qbdsync/backend/internal/application/realm"
	"github.com/qbdsync/backend/internal/domain/queue"
	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Authentication status values returned next to the ticket
const (
	StatusInvalidUser = "nvu"
	StatusNoWork      = "none"
)

// Error codes recorded on tasks the agent could not process
const (
	CodeAgentError = "QBWC_HRESULT"
)

// Config tunes the protocol answers
type Config struct {
	ServerVersion string
	// MinClientVersion rejects older Web Connector builds; empty accepts all.
	MinClientVersion string
	// CompanyFile is returned on successful authentication. Empty means the
	// company file currently open in QuickBooks.
	CompanyFile string
}

// AuthResult is the [ticket, status] pair of the authenticate callback
type AuthResult struct {
	Ticket string
	Status string
}

// Dispatcher implements the Web Connector callbacks. Every call is
// request-driven; nothing runs in the background.
type Dispatcher struct {
	auth       Authenticator
	scope      TransactionScope
	locker     TenantLocker
	translator RequestTranslator
	archiver   Archiver
	metrics    Metrics
	config     Config
	logger     *zap.Logger
}

// Option customizes a Dispatcher
type Option func(*Dispatcher)

// WithArchiver stores every exchanged qbXML document
func WithArchiver(a Archiver) Option {
	return func(d *Dispatcher) {
		if a != nil {
			d.archiver = a
		}
	}
}

// WithMetrics records dispatch counters
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	auth Authenticator,
	scope TransactionScope,
	locker TenantLocker,
	translator RequestTranslator,
	config Config,
	logger *zap.Logger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		auth:       auth,
		scope:      scope,
		locker:     locker,
		translator: translator,
		archiver:   nopArchiver{},
		metrics:    nopMetrics{},
		config:     config,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServerVersion answers the serverVersion callback
func (d *Dispatcher) ServerVersion() string {
	return d.config.ServerVersion
}

// ClientVersion answers the clientVersion callback. An empty string lets
// the agent continue; "E:" stops it with the given message.
func (d *Dispatcher) ClientVersion(version string) string {
	if d.config.MinClientVersion == "" || version == "" {
		return ""
	}
	if compareVersions(version, d.config.MinClientVersion) < 0 {
		d.logger.Warn("Rejecting outdated Web Connector",
			zap.String("client_version", version),
			zap.String("min_version", d.config.MinClientVersion))
		return fmt.Sprintf("E:Web Connector %s or newer is required", d.config.MinClientVersion)
	}
	return ""
}

// Authenticate checks the credentials, abandons any session the realm left
// open and starts a new one. A realm with nothing queued gets its fresh
// session closed right away and the "none" status.
func (d *Dispatcher) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "qbwc", "authenticate")
	defer span.End()

	r, err := d.auth.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, shared.ErrAuthenticationFailed) {
			d.metrics.AuthenticationFailed(ctx)
			return AuthResult{Ticket: "", Status: StatusInvalidUser}, nil
		}
		telemetry.RecordError(span, err)
		return AuthResult{}, err
	}

	var result AuthResult
	err = d.withRealm(ctx, r.ID, func(repos Repositories) error {
		tracker := apprealm.NewSessionTracker(repos.Sessions(), d.logger)
		if err := d.abandonOpenSessions(ctx, repos, tracker, r.ID); err != nil {
			return err
		}

		session, err := tracker.Open(ctx, r.ID)
		if err != nil {
			return err
		}
		result.Ticket = session.ID.String()

		pending, err := repos.Tasks().CountByStatus(ctx, r.ID, queue.StatusPending)
		if err != nil {
			return err
		}
		if pending == 0 {
			result.Status = StatusNoWork
			return tracker.Close(ctx, session)
		}
		result.Status = d.config.CompanyFile
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return AuthResult{}, err
	}

	d.metrics.SessionOpened(ctx, r.ID)
	d.logger.Info("Web Connector authenticated",
		zap.String("realm_id", r.ID.String()),
		zap.String("session_id", result.Ticket),
		zap.Bool("has_work", result.Status != StatusNoWork))
	return result, nil
}

// abandonOpenSessions closes every session the realm still has open and
// returns their in-flight tasks to the queue.
func (d *Dispatcher) abandonOpenSessions(ctx context.Context, repos Repositories, tracker *apprealm.SessionTracker, realmID uuid.UUID) error {
	open, err := tracker.OpenSessions(ctx, realmID)
	if err != nil {
		return err
	}
	for i := range open {
		s := &open[i]
		if err := d.releaseInFlight(ctx, repos, s); err != nil {
			return err
		}
		if err := tracker.Close(ctx, s); err != nil {
			return err
		}
		d.logger.Info("Abandoned open session",
			zap.String("realm_id", realmID.String()),
			zap.String("session_id", s.ID.String()))
	}
	return nil
}

// releaseInFlight puts the session's unanswered task back in the queue
func (d *Dispatcher) releaseInFlight(ctx context.Context, repos Repositories, s *realm.Session) error {
	task, err := repos.Tasks().FindInFlightBySession(ctx, s.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := task.Release(); err != nil {
		return err
	}
	d.logTask("Task released", task)
	return repos.Tasks().Save(ctx, task)
}

// withRealm runs fn under the realm's distributed lock inside a transaction
// that also holds the realm row lock.
func (d *Dispatcher) withRealm(ctx context.Context, realmID uuid.UUID, fn func(repos Repositories) error) error {
	release, err := d.locker.Lock(ctx, realmID)
	if err != nil {
		return fmt.Errorf("lock realm %s: %w", realmID, err)
	}
	defer release()

	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelRealmID: realmID.String(),
	}, func(ctx context.Context) {
		err = d.scope.Execute(ctx, func(repos Repositories) error {
			if _, err := repos.Realms().FindByIDForUpdate(ctx, realmID); err != nil {
				return err
			}
			return fn(repos)
		})
	})
	return err
}

// realmOf resolves a ticket to its session's realm without locking
func (d *Dispatcher) realmOf(ctx context.Context, ticket string) (uuid.UUID, error) {
	var realmID uuid.UUID
	err := d.scope.Execute(ctx, func(repos Repositories) error {
		s, err := apprealm.NewSessionTracker(repos.Sessions(), d.logger).Find(ctx, ticket)
		if err != nil {
			return err
		}
		realmID = s.RealmID
		return nil
	})
	return realmID, err
}

func (d *Dispatcher) logTask(msg string, task *queue.Task, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("task_id", task.ID.String()),
		zap.String("realm_id", task.RealmID.String()),
		zap.String("operation", task.Operation.String()),
		zap.String("resource", task.Resource.String()),
		zap.String("status", string(task.Status)),
	}, fields...)
	d.logger.Info(msg, fields...)
}

// archive stores a document after its transaction committed. Failures are
// logged only.
func (d *Dispatcher) archive(ctx context.Context, ex Exchange) {
	if len(ex.Payload) == 0 {
		return
	}
	if err := d.archiver.Archive(ctx, ex); err != nil {
		d.logger.Warn("Failed to archive qbXML exchange",
			zap.String("task_id", ex.TaskID.String()),
			zap.String("kind", string(ex.Kind)),
			zap.Error(err))
	}
}
