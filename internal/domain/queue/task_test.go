package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	realmID := uuid.New()
	ref := &qbd.RecordRef{Type: qbd.ResourceCustomer, ID: uuid.New()}

	t.Run("query needs no record", func(t *testing.T) {
		task, err := NewTask(realmID, OperationQueryAll, qbd.ResourceAccount, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, task.Status)
		assert.Nil(t, task.Record)
		assert.Equal(t, 7, int(task.ID.Version()))
	})

	t.Run("record operations need a reference", func(t *testing.T) {
		for _, op := range []Operation{OperationAdd, OperationMod, OperationDelete, OperationVoid} {
			_, err := NewTask(realmID, op, qbd.ResourceCustomer, nil)
			assert.ErrorIs(t, err, shared.ErrLookupFailed, op)
		}
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := NewTask(realmID, Operation("merge"), qbd.ResourceCustomer, ref)
		assert.ErrorIs(t, err, shared.ErrOperationNotSupported)
	})

	t.Run("unknown resource", func(t *testing.T) {
		_, err := NewTask(realmID, OperationQueryAll, qbd.ResourceType("Vendor"), nil)
		assert.ErrorIs(t, err, shared.ErrOperationNotSupported)
	})

	t.Run("reference type must match", func(t *testing.T) {
		_, err := NewTask(realmID, OperationAdd, qbd.ResourceInvoice, ref)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("ids follow creation order", func(t *testing.T) {
		a, _ := NewTask(realmID, OperationAdd, qbd.ResourceCustomer, ref)
		b, _ := NewTask(realmID, OperationAdd, qbd.ResourceCustomer, ref)
		assert.Less(t, a.ID.String(), b.ID.String())
	})
}

func TestTask_Transitions(t *testing.T) {
	realmID := uuid.New()
	sessionID := uuid.New()

	newTask := func() *Task {
		task, err := NewTask(realmID, OperationAdd, qbd.ResourceCustomer, &qbd.RecordRef{Type: qbd.ResourceCustomer, ID: uuid.New()})
		require.NoError(t, err)
		return task
	}

	t.Run("dispatch then done", func(t *testing.T) {
		task := newTask()
		assert.Error(t, task.MarkDone())

		require.NoError(t, task.Dispatch(sessionID))
		assert.True(t, task.IsInFlightFor(sessionID))
		require.NoError(t, task.Dispatch(sessionID), "re-dispatch to the same session is a no-op")
		assert.Error(t, task.Dispatch(uuid.New()))

		require.NoError(t, task.MarkDone())
		assert.Equal(t, StatusDone, task.Status)
		assert.NotNil(t, task.ProcessedAt)
		assert.Error(t, task.MarkFailed("x", "y"))
	})

	t.Run("failed before dispatch", func(t *testing.T) {
		task := newTask()
		require.NoError(t, task.MarkFailed(shared.CodeLookupFailed, "customer has no ListID"))
		assert.Equal(t, StatusFailed, task.Status)
		assert.Equal(t, "customer has no ListID", task.ErrorMessage)
		assert.True(t, task.Status.IsTerminal())
	})

	t.Run("release after abandoned session", func(t *testing.T) {
		task := newTask()
		assert.Error(t, task.Release())
		require.NoError(t, task.Dispatch(sessionID))
		require.NoError(t, task.Release())
		assert.Equal(t, StatusPending, task.Status)
		assert.Nil(t, task.SessionID)
		assert.False(t, task.IsInFlightFor(sessionID))
	})
}

func TestOperation(t *testing.T) {
	assert.False(t, OperationQueryAll.RequiresRecord())
	assert.True(t, OperationAdd.RequiresRecord())
	assert.False(t, OperationAdd.RequiresExternalIdentity())
	assert.True(t, OperationVoid.RequiresExternalIdentity())
	assert.False(t, Status("DONE?").IsValid())
}
