package qbwc_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/application/qbwc"
	apprealm "github.com/qbdsync/backend/internal/application/realm"
	"github.com/qbdsync/backend/internal/application/translator"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/queue"
	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/auth"
	"github.com/qbdsync/backend/internal/infrastructure/lock"
	"github.com/qbdsync/backend/internal/infrastructure/persistence"
	"github.com/qbdsync/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "s3cret"

type recordingArchiver struct {
	mu        sync.Mutex
	exchanges []qbwc.Exchange
}

func (a *recordingArchiver) Archive(_ context.Context, ex qbwc.Exchange) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchanges = append(a.exchanges, ex)
	return nil
}

type countingMetrics struct {
	mu                                  sync.Mutex
	opened, authFailed, sent, completed int
}

func (m *countingMetrics) SessionOpened(context.Context, uuid.UUID) {
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
}

func (m *countingMetrics) AuthenticationFailed(context.Context) {
	m.mu.Lock()
	m.authFailed++
	m.mu.Unlock()
}

func (m *countingMetrics) TaskDispatched(context.Context, *queue.Task) {
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
}

func (m *countingMetrics) TaskFinished(context.Context, *queue.Task) {
	m.mu.Lock()
	m.completed++
	m.mu.Unlock()
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	repos    *persistence.GormRepositories
	realm    *realm.Realm
	d        *qbwc.Dispatcher
	archiver *recordingArchiver
	metrics  *countingMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	ctx := context.Background()
	registry := apprealm.NewRegistryService(
		persistence.NewGormRealmRepository(db),
		auth.NewPasswordHasher(bcrypt.MinCost),
		zap.NewNop(),
	)
	r, err := registry.Create(ctx, apprealm.CreateRealmInput{
		SchemaName: "acme",
		Name:       "Acme Corp",
		Password:   testPassword,
	})
	require.NoError(t, err)

	h := &harness{
		t:        t,
		ctx:      ctx,
		db:       db,
		repos:    persistence.NewGormRepositories(db),
		realm:    r,
		archiver: &recordingArchiver{},
		metrics:  &countingMetrics{},
	}
	h.d = qbwc.NewDispatcher(
		registry,
		persistence.NewGormTransactionScope(db),
		lock.NewLocalLocker(),
		translator.New(zap.NewNop()),
		qbwc.Config{ServerVersion: "1.2.0", MinClientVersion: "2.1.0.30"},
		zap.NewNop(),
		qbwc.WithArchiver(h.archiver),
		qbwc.WithMetrics(h.metrics),
	)
	return h
}

func (h *harness) customer(name string) *qbd.Customer {
	h.t.Helper()
	c, err := qbd.NewCustomer(h.realm.ID, name)
	require.NoError(h.t, err)
	require.NoError(h.t, h.repos.Customers().Save(h.ctx, c))
	return c
}

func (h *harness) enqueue(op queue.Operation, resource qbd.ResourceType, id *uuid.UUID) *queue.Task {
	h.t.Helper()
	var ref *qbd.RecordRef
	if id != nil {
		r, err := qbd.NewRecordRef(resource, *id)
		require.NoError(h.t, err)
		ref = &r
	}
	task, err := queue.NewTask(h.realm.ID, op, resource, ref)
	require.NoError(h.t, err)
	require.NoError(h.t, h.repos.Tasks().Save(h.ctx, task))
	return task
}

func (h *harness) task(id uuid.UUID) *queue.Task {
	h.t.Helper()
	task, err := h.repos.Tasks().FindByID(h.ctx, h.realm.ID, id)
	require.NoError(h.t, err)
	return task
}

func (h *harness) session(ticket string) *realm.Session {
	h.t.Helper()
	s, err := h.repos.Sessions().FindByID(h.ctx, uuid.MustParse(ticket))
	require.NoError(h.t, err)
	return s
}

func (h *harness) login() string {
	h.t.Helper()
	res, err := h.d.Authenticate(h.ctx, h.realm.ID.String(), testPassword)
	require.NoError(h.t, err)
	require.NotEmpty(h.t, res.Ticket)
	return res.Ticket
}

func customerAddRs(requestID, listID string) string {
	return `<?xml version="1.0" ?><QBXML><QBXMLMsgsRs>` +
		`<CustomerAddRs requestID="` + requestID + `" statusCode="0" statusSeverity="Info" statusMessage="Status OK">` +
		`<CustomerRet><ListID>` + listID + `</ListID><EditSequence>1700000000</EditSequence>` +
		`<Name>Acme</Name><FullName>Acme</FullName><IsActive>true</IsActive></CustomerRet>` +
		`</CustomerAddRs></QBXMLMsgsRs></QBXML>`
}

func TestDispatcher_Versions(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "1.2.0", h.d.ServerVersion())
	assert.Empty(t, h.d.ClientVersion("2.3.0.215"))
	assert.Empty(t, h.d.ClientVersion("2.1.0.30"))
	assert.Empty(t, h.d.ClientVersion(""))
	assert.True(t, strings.HasPrefix(h.d.ClientVersion("2.0.1.6"), "E:"))
}

func TestDispatcher_Authenticate(t *testing.T) {
	t.Run("wrong password is nvu", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.d.Authenticate(h.ctx, h.realm.ID.String(), "wrong")
		require.NoError(t, err)
		assert.Equal(t, qbwc.AuthResult{Ticket: "", Status: qbwc.StatusInvalidUser}, res)
		assert.Equal(t, 1, h.metrics.authFailed)
	})

	t.Run("unknown realm is nvu", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.d.Authenticate(h.ctx, uuid.NewString(), testPassword)
		require.NoError(t, err)
		assert.Equal(t, qbwc.StatusInvalidUser, res.Status)
		assert.Empty(t, res.Ticket)
	})

	t.Run("inactive realm is nvu", func(t *testing.T) {
		h := newHarness(t)
		h.realm.Deactivate()
		require.NoError(t, h.repos.Realms().Save(h.ctx, h.realm))

		res, err := h.d.Authenticate(h.ctx, h.realm.ID.String(), testPassword)
		require.NoError(t, err)
		assert.Equal(t, qbwc.StatusInvalidUser, res.Status)
	})

	t.Run("empty queue is none and closes the session", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.d.Authenticate(h.ctx, h.realm.ID.String(), testPassword)
		require.NoError(t, err)
		assert.Equal(t, qbwc.StatusNoWork, res.Status)
		require.NotEmpty(t, res.Ticket)
		assert.False(t, h.session(res.Ticket).IsOpen())
	})

	t.Run("pending work opens a session for the current company file", func(t *testing.T) {
		h := newHarness(t)
		h.enqueue(queue.OperationQueryAll, qbd.ResourceCustomer, nil)

		res, err := h.d.Authenticate(h.ctx, "acme", testPassword)
		require.NoError(t, err)
		assert.Empty(t, res.Status)
		assert.True(t, h.session(res.Ticket).IsOpen())
		assert.Equal(t, 1, h.metrics.opened)
	})
}

func TestDispatcher_CustomerAddEndToEnd(t *testing.T) {
	h := newHarness(t)
	c := h.customer("Acme")
	task := h.enqueue(queue.OperationAdd, qbd.ResourceCustomer, &c.ID)

	ticket := h.login()

	doc, err := h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, doc, `<?qbxml version="13.0"?>`)
	assert.Contains(t, doc, `<CustomerAddRq requestID="`+task.ID.String()+`">`)
	assert.Contains(t, doc, "<Name>Acme</Name>")

	inFlight := h.task(task.ID)
	assert.Equal(t, queue.StatusInFlight, inFlight.Status)
	require.NotNil(t, inFlight.SessionID)
	assert.Equal(t, ticket, inFlight.SessionID.String())

	pct, err := h.d.ReceiveResponseXML(h.ctx, qbwc.ResponseInput{
		Ticket:   ticket,
		Response: customerAddRs(task.ID.String(), "80000001-1700000000"),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, pct)

	assert.Equal(t, queue.StatusDone, h.task(task.ID).Status)
	stored, err := h.repos.Customers().FindByID(h.ctx, h.realm.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "80000001-1700000000", stored.ListIDOrEmpty())
	assert.Equal(t, "1700000000", stored.EditSequenceOrEmpty())

	s := h.session(ticket)
	assert.False(t, s.IsOpen())
	assert.Equal(t, 1, s.ProcessedCount)

	// The agent may still ask once more and then close
	_, err = h.d.SendRequestXML(h.ctx, ticket)
	assert.ErrorIs(t, err, shared.ErrAuthenticationFailed)
	endedAt := *s.EndedAt
	res, err := h.d.CloseConnection(h.ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, qbwc.CloseConnectionOK, res)
	assert.True(t, h.session(ticket).EndedAt.Equal(endedAt), "closing twice keeps the first end time")

	require.Len(t, h.archiver.exchanges, 2)
	assert.Equal(t, qbwc.ExchangeRequest, h.archiver.exchanges[0].Kind)
	assert.Equal(t, qbwc.ExchangeResponse, h.archiver.exchanges[1].Kind)
	assert.Equal(t, task.ID, h.archiver.exchanges[1].TaskID)
	assert.Equal(t, 1, h.metrics.sent)
	assert.Equal(t, 1, h.metrics.completed)
}

func TestDispatcher_FIFOAndProgress(t *testing.T) {
	h := newHarness(t)
	first := h.enqueue(queue.OperationQueryAll, qbd.ResourceAccount, nil)
	second := h.enqueue(queue.OperationQueryAll, qbd.ResourceItemService, nil)

	ticket := h.login()

	doc, err := h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, doc, `<AccountQueryRq requestID="`+first.ID.String()+`"`)

	// an unanswered request is never handed out twice
	again, err := h.d.SendRequestXML(h.ctx, ticket)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Empty(t, again)
	assert.Equal(t, queue.StatusInFlight, h.task(first.ID).Status)
	assert.Equal(t, queue.StatusPending, h.task(second.ID).Status)
	msg, err := h.d.GetLastError(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, msg, first.ID.String()+" is still awaiting a response")

	pct, err := h.d.ReceiveResponseXML(h.ctx, qbwc.ResponseInput{
		Ticket: ticket,
		Response: `<QBXML><QBXMLMsgsRs><AccountQueryRs requestID="` + first.ID.String() + `" statusCode="0" statusSeverity="Info">` +
			`<AccountRet><ListID>80000010-1</ListID><EditSequence>1</EditSequence><Name>Services</Name><AccountType>Income</AccountType></AccountRet>` +
			`</AccountQueryRs></QBXMLMsgsRs></QBXML>`,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, pct)
	assert.True(t, h.session(ticket).IsOpen())

	doc, err = h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, doc, `<ItemServiceQueryRq requestID="`+second.ID.String()+`"`)

	pct, err = h.d.ReceiveResponseXML(h.ctx, qbwc.ResponseInput{
		Ticket:   ticket,
		Response: `<QBXML><QBXMLMsgsRs><ItemServiceQueryRs requestID="` + second.ID.String() + `" statusCode="1" statusSeverity="Info" statusMessage="A query request did not find a matching object"/></QBXMLMsgsRs></QBXML>`,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, pct)
	assert.False(t, h.session(ticket).IsOpen())
}

func TestDispatcher_MalformedResponseKeepsTaskInFlight(t *testing.T) {
	h := newHarness(t)
	task := h.enqueue(queue.OperationQueryAll, qbd.ResourceCustomer, nil)
	ticket := h.login()

	_, err := h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)

	pct, err := h.d.ReceiveResponseXML(h.ctx, qbwc.ResponseInput{Ticket: ticket, Response: "<QBXML><QBXMLMsgsRs>"})
	assert.Equal(t, qbwc.ProgressFailed, pct)
	assert.ErrorIs(t, err, shared.ErrProtocolSerialization)

	assert.Equal(t, queue.StatusInFlight, h.task(task.ID).Status)
	msg, err := h.d.GetLastError(h.ctx, ticket)
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	// a response for some other request is rejected the same way
	pct, err = h.d.ReceiveResponseXML(h.ctx, qbwc.ResponseInput{
		Ticket:   ticket,
		Response: `<QBXML><QBXMLMsgsRs><CustomerQueryRs requestID="` + uuid.NewString() + `" statusCode="0" statusSeverity="Info"/></QBXMLMsgsRs></QBXML>`,
	})
	assert.Equal(t, qbwc.ProgressFailed, pct)
	assert.ErrorIs(t, err, shared.ErrProtocolSerialization)
	assert.Equal(t, queue.StatusInFlight, h.task(task.ID).Status)
}

func TestDispatcher_AgentErrorFailsTask(t *testing.T) {
	h := newHarness(t)
	task := h.enqueue(queue.OperationQueryAll, qbd.ResourceCustomer, nil)
	ticket := h.login()

	_, err := h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)

	pct, err := h.d.ReceiveResponseXML(h.ctx, qbwc.ResponseInput{
		Ticket:  ticket,
		HResult: "0x80040400",
		Message: "QuickBooks found an error when parsing the provided XML text stream.",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, pct)

	failed := h.task(task.ID)
	assert.Equal(t, queue.StatusFailed, failed.Status)
	assert.Equal(t, qbwc.CodeAgentError, failed.ErrorCode)
	assert.Contains(t, failed.ErrorMessage, "0x80040400")

	msg, err := h.d.GetLastError(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, msg, "0x80040400")
}

func TestDispatcher_StaleEditSequenceIsConcurrencyConflict(t *testing.T) {
	h := newHarness(t)
	c := h.customer("Acme")
	require.NoError(t, c.ApplyExternalState("80000001-1", "5"))
	require.NoError(t, h.repos.Customers().Save(h.ctx, c))
	task := h.enqueue(queue.OperationMod, qbd.ResourceCustomer, &c.ID)
	ticket := h.login()

	doc, err := h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, doc, "<ListID>80000001-1</ListID>")
	assert.Contains(t, doc, "<EditSequence>5</EditSequence>")

	_, err = h.d.ReceiveResponseXML(h.ctx, qbwc.ResponseInput{
		Ticket:   ticket,
		Response: `<QBXML><QBXMLMsgsRs><CustomerModRs requestID="` + task.ID.String() + `" statusCode="3200" statusSeverity="Error" statusMessage="The provided edit sequence is out-of-date."/></QBXMLMsgsRs></QBXML>`,
	})
	require.NoError(t, err)

	failed := h.task(task.ID)
	assert.Equal(t, queue.StatusFailed, failed.Status)
	assert.Equal(t, shared.CodeConcurrencyConflict, failed.ErrorCode)
}

func TestDispatcher_UntranslatableTaskIsSkipped(t *testing.T) {
	h := newHarness(t)
	c := h.customer("Never synced")
	broken := h.enqueue(queue.OperationMod, qbd.ResourceCustomer, &c.ID)
	next := h.enqueue(queue.OperationQueryAll, qbd.ResourceCustomer, nil)
	ticket := h.login()

	doc, err := h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, doc, `requestID="`+next.ID.String()+`"`)

	failed := h.task(broken.ID)
	assert.Equal(t, queue.StatusFailed, failed.Status)
	assert.Equal(t, shared.CodeLookupFailed, failed.ErrorCode)
}

func TestDispatcher_DrainedQueueClosesSession(t *testing.T) {
	h := newHarness(t)
	c := h.customer("Never synced")
	task := h.enqueue(queue.OperationVoid, qbd.ResourceCustomer, &c.ID)
	ticket := h.login()

	doc, err := h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)
	assert.Empty(t, doc)
	s := h.session(ticket)
	assert.False(t, s.IsOpen())
	assert.Equal(t, 1, s.FailedCount)

	msg, err := h.d.GetLastError(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, msg, "task "+task.ID.String())

	res, err := h.d.CloseConnection(h.ctx, ticket)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res, "Finished with 1 failed task(s); last error: task "+task.ID.String()), res)
}

func TestDispatcher_ReauthenticationReleasesInFlightTask(t *testing.T) {
	h := newHarness(t)
	task := h.enqueue(queue.OperationQueryAll, qbd.ResourceCustomer, nil)

	oldTicket := h.login()
	_, err := h.d.SendRequestXML(h.ctx, oldTicket)
	require.NoError(t, err)
	require.Equal(t, queue.StatusInFlight, h.task(task.ID).Status)

	newTicket := h.login()
	assert.NotEqual(t, oldTicket, newTicket)
	assert.False(t, h.session(oldTicket).IsOpen())
	released := h.task(task.ID)
	assert.Equal(t, queue.StatusPending, released.Status)
	assert.Nil(t, released.SessionID)

	_, err = h.d.SendRequestXML(h.ctx, oldTicket)
	assert.ErrorIs(t, err, shared.ErrAuthenticationFailed)

	doc, err := h.d.SendRequestXML(h.ctx, newTicket)
	require.NoError(t, err)
	assert.Contains(t, doc, task.ID.String())
}

func TestDispatcher_ConnectionErrorReleasesTask(t *testing.T) {
	h := newHarness(t)
	task := h.enqueue(queue.OperationQueryAll, qbd.ResourceCustomer, nil)
	ticket := h.login()
	_, err := h.d.SendRequestXML(h.ctx, ticket)
	require.NoError(t, err)

	res, err := h.d.ConnectionError(h.ctx, ticket, "0x80040408", "Could not start QuickBooks.")
	require.NoError(t, err)
	assert.Equal(t, qbwc.ConnectionErrorDone, res)

	assert.Equal(t, queue.StatusPending, h.task(task.ID).Status)
	assert.False(t, h.session(ticket).IsOpen())

	msg, err := h.d.GetLastError(h.ctx, ticket)
	require.NoError(t, err)
	assert.Contains(t, msg, "Could not start QuickBooks.")
}

func TestDispatcher_UnknownTicket(t *testing.T) {
	h := newHarness(t)

	_, err := h.d.SendRequestXML(h.ctx, "not-a-ticket")
	assert.ErrorIs(t, err, shared.ErrAuthenticationFailed)

	_, err = h.d.SendRequestXML(h.ctx, uuid.NewString())
	assert.ErrorIs(t, err, shared.ErrAuthenticationFailed)

	_, err = h.d.GetLastError(h.ctx, uuid.NewString())
	assert.ErrorIs(t, err, shared.ErrAuthenticationFailed)
}

func TestDispatcher_ConcurrentRequestsHandOutTaskOnce(t *testing.T) {
	h := newHarness(t)
	c := h.customer("Acme")
	add := h.enqueue(queue.OperationAdd, qbd.ResourceCustomer, &c.ID)
	h.enqueue(queue.OperationQueryAll, qbd.ResourceCustomer, nil)
	ticket := h.login()

	const workers = 8
	docs := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docs[i], errs[i] = h.d.SendRequestXML(h.ctx, ticket)
		}(i)
	}
	wg.Wait()

	handedOut := 0
	for i := range docs {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], shared.ErrInvalidState)
			assert.Empty(t, docs[i])
			continue
		}
		handedOut++
		assert.Contains(t, docs[i], `<CustomerAddRq requestID="`+add.ID.String()+`">`)
	}
	assert.Equal(t, 1, handedOut, "the add request must reach QuickBooks once")

	inFlight, total, err := h.repos.Tasks().FindAll(h.ctx, h.realm.ID, queue.TaskFilter{
		Filter: shared.DefaultFilter(),
		Status: queue.StatusInFlight,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, inFlight, 1)
	assert.Equal(t, add.ID, inFlight[0].ID)
	assert.Equal(t, 1, h.metrics.sent)
}
