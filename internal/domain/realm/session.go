package realm

import (
	"time"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
)

// Session is one Web Connector polling cycle. Its ID doubles as the ticket
// handed to the agent. A session is open while EndedAt is nil.
type Session struct {
	ID             uuid.UUID
	RealmID        uuid.UUID
	CreatedAt      time.Time
	EndedAt        *time.Time
	CurrentTaskID  *uuid.UUID
	ProcessedCount int
	FailedCount    int
	LastError      string
}

// NewSession opens a polling cycle for the realm
func NewSession(realmID uuid.UUID) *Session {
	return &Session{
		ID:        shared.NewTimeOrderedID(),
		RealmID:   realmID,
		CreatedAt: time.Now(),
	}
}

// IsOpen reports whether the session has not been closed yet
func (s *Session) IsOpen() bool {
	return s.EndedAt == nil
}

// Close stamps the end time. Calling it again overwrites the timestamp;
// callers close a session at most once.
func (s *Session) Close() {
	now := time.Now()
	s.EndedAt = &now
	s.CurrentTaskID = nil
}

// HasTaskInFlight reports whether a request was sent and not yet answered
func (s *Session) HasTaskInFlight() bool {
	return s.CurrentTaskID != nil
}

// AssignTask binds the single in-flight task to the session
func (s *Session) AssignTask(taskID uuid.UUID) error {
	if !s.IsOpen() {
		return shared.NewDomainError(shared.CodeInvalidState, "Session is closed")
	}
	if s.CurrentTaskID != nil && *s.CurrentTaskID != taskID {
		return shared.NewDomainError(shared.CodeInvalidState, "Session already has a task in flight")
	}
	s.CurrentTaskID = &taskID
	return nil
}

// CompleteTask releases the in-flight slot after a response was handled
func (s *Session) CompleteTask() {
	s.CurrentTaskID = nil
	s.ProcessedCount++
}

// RecordError keeps the message returned by getLastError
func (s *Session) RecordError(message string) {
	s.LastError = message
}

// RecordFailure counts a task that ended FAILED during this session
func (s *Session) RecordFailure(message string) {
	s.FailedCount++
	s.LastError = message
}
