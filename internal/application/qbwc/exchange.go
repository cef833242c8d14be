package qbwc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apprealm "github.com/qbdsync/backend/internal/application/realm"
	"github.com/qbdsync/backend/internal/domain/qbxml"
	"github.com/qbdsync/backend/internal/domain/queue"
	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ResponseInput carries the arguments of receiveResponseXML
type ResponseInput struct {
	Ticket   string
	Response string
	HResult  string
	Message  string
}

// ProgressFailed is the percentage that makes the agent call getLastError
const ProgressFailed = -1

// SendRequestXML hands the agent the next qbXML request of the session's
// realm. A request is handed out once: while the session still awaits a
// response the call answers "" with an INVALID_STATE error recorded for
// getLastError. Tasks that cannot be translated are failed and skipped.
// An empty string without error means the queue is drained and the
// session has been closed.
func (d *Dispatcher) SendRequestXML(ctx context.Context, ticket string) (string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "qbwc", "send_request_xml")
	defer span.End()

	realmID, err := d.realmOf(ctx, ticket)
	if err != nil {
		return "", err
	}

	var (
		payload    []byte
		dispatched *queue.Task
		sessionID  uuid.UUID
		finished   []*queue.Task
		busyErr    error
	)
	err = d.withRealm(ctx, realmID, func(repos Repositories) error {
		payload, dispatched, finished, busyErr = nil, nil, nil, nil
		tracker := apprealm.NewSessionTracker(repos.Sessions(), d.logger)
		session, err := tracker.FindOpen(ctx, ticket)
		if err != nil {
			return err
		}
		sessionID = session.ID

		task, err := d.inFlightTask(ctx, repos, session)
		if err != nil {
			return err
		}
		if task != nil {
			busyErr = shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("request %s is still awaiting a response", task.ID))
			session.RecordError(busyErr.Error())
			d.logTask("Refusing to hand out an unanswered task twice", task)
			return tracker.Update(ctx, session)
		}

		for {
			if task == nil {
				task, err = repos.Tasks().NextPending(ctx, realmID)
				if errors.Is(err, shared.ErrNotFound) {
					d.logger.Info("Queue drained, closing session",
						zap.String("realm_id", realmID.String()),
						zap.String("session_id", session.ID.String()),
						zap.Int("processed", session.ProcessedCount))
					return tracker.Close(ctx, session)
				}
				if err != nil {
					return err
				}
			}

			body, err := d.buildPayload(ctx, repos, task)
			if err != nil {
				var domainErr *shared.DomainError
				if !errors.As(err, &domainErr) {
					return err
				}
				if err := d.failTask(ctx, repos, session, task, domainErr.Code, domainErr.Message); err != nil {
					return err
				}
				finished = append(finished, task)
				task = nil
				continue
			}

			if err := task.Dispatch(session.ID); err != nil {
				return err
			}
			if err := session.AssignTask(task.ID); err != nil {
				return err
			}
			if err := repos.Tasks().Save(ctx, task); err != nil {
				return err
			}
			if err := tracker.Update(ctx, session); err != nil {
				return err
			}
			payload, dispatched = body, task
			return nil
		}
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	if busyErr != nil {
		telemetry.RecordError(span, busyErr)
		return "", busyErr
	}

	for _, t := range finished {
		d.metrics.TaskFinished(ctx, t)
	}
	if dispatched == nil {
		return "", nil
	}

	d.metrics.TaskDispatched(ctx, dispatched)
	d.logTask("Task dispatched", dispatched)
	d.archive(ctx, Exchange{
		RealmID:   realmID,
		SessionID: sessionID,
		TaskID:    dispatched.ID,
		Kind:      ExchangeRequest,
		Payload:   payload,
		At:        time.Now(),
	})
	return string(payload), nil
}

// inFlightTask returns the task the session is still waiting on, if any
func (d *Dispatcher) inFlightTask(ctx context.Context, repos Repositories, session *realm.Session) (*queue.Task, error) {
	if !session.HasTaskInFlight() {
		return nil, nil
	}
	task, err := repos.Tasks().FindByID(ctx, session.RealmID, *session.CurrentTaskID)
	if errors.Is(err, shared.ErrNotFound) {
		session.CurrentTaskID = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !task.IsInFlightFor(session.ID) {
		session.CurrentTaskID = nil
		return nil, nil
	}
	return task, nil
}

func (d *Dispatcher) buildPayload(ctx context.Context, repos Repositories, task *queue.Task) ([]byte, error) {
	req, err := d.translator.BuildRequest(ctx, repos, task)
	if err != nil {
		return nil, err
	}
	return qbxml.MarshalRequests(qbxml.OnErrorStop, req)
}

// failTask records a terminal failure on the task and the session
func (d *Dispatcher) failTask(ctx context.Context, repos Repositories, session *realm.Session, task *queue.Task, code, reason string) error {
	if err := task.MarkFailed(code, reason); err != nil {
		return err
	}
	if session.CurrentTaskID != nil && *session.CurrentTaskID == task.ID {
		session.CurrentTaskID = nil
	}
	session.RecordFailure(fmt.Sprintf("task %s: %s", task.ID, reason))
	if err := repos.Tasks().Save(ctx, task); err != nil {
		return err
	}
	if err := repos.Sessions().Save(ctx, session); err != nil {
		return err
	}
	d.logger.Warn("Task failed",
		zap.String("task_id", task.ID.String()),
		zap.String("realm_id", task.RealmID.String()),
		zap.String("operation", task.Operation.String()),
		zap.String("resource", task.Resource.String()),
		zap.String("error_code", code),
		zap.String("reason", reason))
	return nil
}

// ReceiveResponseXML applies the agent's answer to the session's in-flight
// task and reports overall progress. Malformed documents leave the task in
// flight and return ProgressFailed together with the protocol error.
func (d *Dispatcher) ReceiveResponseXML(ctx context.Context, in ResponseInput) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "qbwc", "receive_response_xml")
	defer span.End()

	realmID, err := d.realmOf(ctx, in.Ticket)
	if err != nil {
		return ProgressFailed, err
	}

	var (
		percent     = ProgressFailed
		protocolErr error
		finished    *queue.Task
		sessionID   uuid.UUID
	)
	err = d.withRealm(ctx, realmID, func(repos Repositories) error {
		percent, protocolErr, finished = ProgressFailed, nil, nil
		tracker := apprealm.NewSessionTracker(repos.Sessions(), d.logger)
		session, err := tracker.FindOpen(ctx, in.Ticket)
		if err != nil {
			return err
		}
		sessionID = session.ID

		task, err := d.inFlightTask(ctx, repos, session)
		if err != nil {
			return err
		}
		if task == nil {
			protocolErr = shared.NewDomainError(shared.CodeInvalidState, "No request is awaiting a response")
			session.RecordError(protocolErr.Error())
			return tracker.Update(ctx, session)
		}

		if in.HResult != "" {
			reason := fmt.Sprintf("%s: %s", in.HResult, in.Message)
			if err := d.failTask(ctx, repos, session, task, CodeAgentError, reason); err != nil {
				return err
			}
		} else {
			rs, err := matchResponse(in.Response, task)
			if err != nil {
				protocolErr = err
				session.RecordError(err.Error())
				d.logger.Warn("Unreadable qbXML response",
					zap.String("task_id", task.ID.String()),
					zap.Error(err))
				return tracker.Update(ctx, session)
			}
			if err := d.applyResponse(ctx, repos, session, task, rs); err != nil {
				return err
			}
		}
		finished = task

		session.CompleteTask()
		pending, err := repos.Tasks().CountByStatus(ctx, realmID, queue.StatusPending)
		if err != nil {
			return err
		}
		percent = progress(session.ProcessedCount, pending)
		if pending == 0 {
			return tracker.Close(ctx, session)
		}
		return tracker.Update(ctx, session)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return ProgressFailed, err
	}

	d.archive(ctx, Exchange{
		RealmID:   realmID,
		SessionID: sessionID,
		TaskID:    taskIDOf(finished),
		Kind:      ExchangeResponse,
		Payload:   []byte(in.Response),
		At:        time.Now(),
	})
	if protocolErr != nil {
		telemetry.RecordError(span, protocolErr)
		return ProgressFailed, protocolErr
	}
	if finished != nil {
		d.metrics.TaskFinished(ctx, finished)
	}
	return percent, nil
}

// applyResponse maps the response onto local records and finishes the
// task. Domain errors fail the task; anything else aborts the transaction.
func (d *Dispatcher) applyResponse(ctx context.Context, repos Repositories, session *realm.Session, task *queue.Task, rs *qbxml.Response) error {
	outcome, err := d.translator.ApplyResponse(ctx, repos, task, rs)
	if err != nil {
		var domainErr *shared.DomainError
		if !errors.As(err, &domainErr) {
			return err
		}
		return d.failTask(ctx, repos, session, task, domainErr.Code, domainErr.Message)
	}

	if err := task.MarkDone(); err != nil {
		return err
	}
	if err := repos.Tasks().Save(ctx, task); err != nil {
		return err
	}
	d.logTask("Task completed", task,
		zap.Int("created", outcome.Created),
		zap.Int("updated", outcome.Updated),
		zap.Int("skipped", outcome.Skipped))
	return nil
}

// matchResponse parses the document and picks the response answering task
func matchResponse(raw string, task *queue.Task) (*qbxml.Response, error) {
	responses, err := qbxml.ParseResponses([]byte(raw))
	if err != nil {
		return nil, err
	}
	want := task.ID.String()
	for i := range responses {
		if responses[i].RequestID == want {
			return &responses[i], nil
		}
	}
	if len(responses) == 1 && responses[0].RequestID == "" {
		return &responses[0], nil
	}
	return nil, shared.NewProtocolError("response does not answer request %s", want)
}

// progress is the completion percentage over this session's work. It only
// reaches 100 once nothing is pending.
func progress(done int, pending int64) int {
	if pending == 0 {
		return 100
	}
	total := int64(done) + pending
	pct := int(int64(done) * 100 / total)
	if pct > 99 {
		pct = 99
	}
	return pct
}

func taskIDOf(t *queue.Task) uuid.UUID {
	if t == nil {
		return uuid.Nil
	}
	return t.ID
}
