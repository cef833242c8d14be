package qbwc

import (
	"context"
	"fmt"

	apprealm "github.com/qbdsync/backend/internal/application/realm"
	"github.com/qbdsync/backend/internal/domain/realm"
	"go.uber.org/zap"
)

// Closing answers of the Web Connector callbacks
const (
	ConnectionErrorDone = "done"
	CloseConnectionOK   = "OK"
)

// GetLastError returns the most recent failure recorded on the session.
// Closed sessions still answer so the agent can report why it stopped.
func (d *Dispatcher) GetLastError(ctx context.Context, ticket string) (string, error) {
	var message string
	err := d.scope.Execute(ctx, func(repos Repositories) error {
		s, err := apprealm.NewSessionTracker(repos.Sessions(), d.logger).Find(ctx, ticket)
		if err != nil {
			return err
		}
		message = s.LastError
		return nil
	})
	return message, err
}

// ConnectionError handles the agent failing to reach QuickBooks. The
// session ends; a task awaiting an answer goes back to the queue since
// QuickBooks never saw it.
func (d *Dispatcher) ConnectionError(ctx context.Context, ticket, hresult, message string) (string, error) {
	_, err := d.endSession(ctx, ticket, func(s *realm.Session) {
		s.RecordError(fmt.Sprintf("connection error %s: %s", hresult, message))
	})
	if err != nil {
		return "", err
	}
	d.logger.Warn("Web Connector could not reach QuickBooks",
		zap.String("session_id", ticket),
		zap.String("hresult", hresult),
		zap.String("message", message))
	return ConnectionErrorDone, nil
}

// CloseConnection ends the session if it is still open. The answer is
// shown to the QuickBooks user, so it names the tasks that failed during
// the session.
func (d *Dispatcher) CloseConnection(ctx context.Context, ticket string) (string, error) {
	s, err := d.endSession(ctx, ticket, nil)
	if err != nil {
		return "", err
	}
	return closingStatus(s), nil
}

func closingStatus(s *realm.Session) string {
	if s.FailedCount == 0 {
		return CloseConnectionOK
	}
	return fmt.Sprintf("Finished with %d failed task(s); last error: %s", s.FailedCount, s.LastError)
}

// endSession closes the ticket's session at most once, releasing its
// unanswered task. Already closed sessions are left untouched.
func (d *Dispatcher) endSession(ctx context.Context, ticket string, before func(s *realm.Session)) (*realm.Session, error) {
	realmID, err := d.realmOf(ctx, ticket)
	if err != nil {
		return nil, err
	}

	var session *realm.Session
	err = d.withRealm(ctx, realmID, func(repos Repositories) error {
		tracker := apprealm.NewSessionTracker(repos.Sessions(), d.logger)
		s, err := tracker.Find(ctx, ticket)
		if err != nil {
			return err
		}
		session = s
		if !s.IsOpen() {
			return nil
		}
		if before != nil {
			before(s)
		}
		if err := d.releaseInFlight(ctx, repos, s); err != nil {
			return err
		}
		return tracker.Close(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}
