package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetrics records Web Connector dispatch activity
type SyncMetrics struct {
	sessions   *Counter
	authFailed *Counter
	dispatched *Counter
	finished   *Counter
	latency    *Histogram
}

// NewSyncMetrics registers the dispatch instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	var (
		m   SyncMetrics
		err error
	)
	if m.sessions, err = NewCounter(meter, "qbwc.sessions.opened", "Web Connector sessions opened", "{session}"); err != nil {
		return nil, err
	}
	if m.authFailed, err = NewCounter(meter, "qbwc.auth.failures", "Rejected Web Connector authentications", "{attempt}"); err != nil {
		return nil, err
	}
	if m.dispatched, err = NewCounter(meter, "qbd.tasks.dispatched", "Tasks sent to QuickBooks", "{task}"); err != nil {
		return nil, err
	}
	if m.finished, err = NewCounter(meter, "qbd.tasks.finished", "Tasks that reached a terminal status", "{task}"); err != nil {
		return nil, err
	}
	if m.latency, err = NewHistogram(meter, "qbd.task.latency", "Time from enqueue to terminal status", "s", TaskLatencyBuckets...); err != nil {
		return nil, err
	}
	return &m, nil
}

// SessionOpened counts a successful authentication
func (m *SyncMetrics) SessionOpened(ctx context.Context, realmID uuid.UUID) {
	m.sessions.Inc(ctx, AttrRealmID.String(realmID.String()))
}

// AuthenticationFailed counts a rejected authentication. Realm ids are not
// attached; the username is attacker-controlled.
func (m *SyncMetrics) AuthenticationFailed(ctx context.Context) {
	m.authFailed.Inc(ctx)
}

// TaskDispatched counts a task handed to the Web Connector
func (m *SyncMetrics) TaskDispatched(ctx context.Context, task *queue.Task) {
	m.dispatched.Inc(ctx,
		AttrOperation.String(task.Operation.String()),
		AttrResource.String(string(task.Resource)),
	)
}

// TaskFinished counts a task that reached DONE or FAILED and records how
// long it waited.
func (m *SyncMetrics) TaskFinished(ctx context.Context, task *queue.Task) {
	attrs := []attribute.KeyValue{
		AttrOperation.String(task.Operation.String()),
		AttrResource.String(string(task.Resource)),
		AttrStatus.String(string(task.Status)),
	}
	if task.ErrorCode != "" {
		attrs = append(attrs, AttrErrorCode.String(task.ErrorCode))
	}
	m.finished.Inc(ctx, attrs...)

	end := time.Now()
	if task.ProcessedAt != nil {
		end = *task.ProcessedAt
	}
	m.latency.RecordDuration(ctx, end.Sub(task.CreatedAt), attrs[:2]...)
}
