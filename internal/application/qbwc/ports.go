package qbwc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/application/translator"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/qbxml"
	"github.com/qbdsync/backend/internal/domain/queue"
	"github.com/qbdsync/backend/internal/domain/realm"
)

// Repositories gives access to every repository inside one transaction
type Repositories interface {
	qbd.Records
	Realms() realm.RealmRepository
	Sessions() realm.SessionRepository
	Tasks() queue.TaskRepository
}

// TransactionScope runs fn atomically. If fn returns an error every write
// made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// TenantLocker serializes dispatch work per realm across server instances.
// The returned release func must be called exactly once.
type TenantLocker interface {
	Lock(ctx context.Context, realmID uuid.UUID) (release func(), err error)
}

// Authenticator resolves Web Connector credentials to a realm
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*realm.Realm, error)
}

// RequestTranslator converts tasks to qbXML and applies responses
type RequestTranslator interface {
	BuildRequest(ctx context.Context, recs qbd.Records, task *queue.Task) (qbxml.Request, error)
	ApplyResponse(ctx context.Context, recs qbd.Records, task *queue.Task, rs *qbxml.Response) (translator.Outcome, error)
}

// ExchangeKind tells an archived request from a response
type ExchangeKind string

const (
	ExchangeRequest  ExchangeKind = "request"
	ExchangeResponse ExchangeKind = "response"
)

// Exchange is one qbXML document that crossed the wire
type Exchange struct {
	RealmID   uuid.UUID
	SessionID uuid.UUID
	TaskID    uuid.UUID
	Kind      ExchangeKind
	Payload   []byte
	At        time.Time
}

// Archiver keeps a copy of exchanged qbXML documents
type Archiver interface {
	Archive(ctx context.Context, ex Exchange) error
}

// Metrics observes dispatch activity
type Metrics interface {
	SessionOpened(ctx context.Context, realmID uuid.UUID)
	AuthenticationFailed(ctx context.Context)
	TaskDispatched(ctx context.Context, task *queue.Task)
	TaskFinished(ctx context.Context, task *queue.Task)
}

type nopArchiver struct{}

func (nopArchiver) Archive(context.Context, Exchange) error { return nil }

type nopMetrics struct{}

func (nopMetrics) SessionOpened(context.Context, uuid.UUID)    {}
func (nopMetrics) AuthenticationFailed(context.Context)        {}
func (nopMetrics) TaskDispatched(context.Context, *queue.Task) {}
func (nopMetrics) TaskFinished(context.Context, *queue.Task)   {}
