package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockCustomerRepository(t *testing.T) (*GormCustomerRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewGormCustomerRepository(gormDB), mock
}

func TestGormCustomerRepository_FindByID(t *testing.T) {
	t.Run("scopes the lookup to the realm", func(t *testing.T) {
		repo, mock := newMockCustomerRepository(t)
		realmID, customerID := uuid.New(), uuid.New()
		listID := "80000001-1700000000"

		rows := sqlmock.NewRows([]string{"id", "realm_id", "name", "full_name", "is_active", "list_id", "edit_sequence"}).
			AddRow(customerID, realmID, "Acme", "Acme", true, listID, "1700000000")
		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE realm_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(realmID, customerID, 1).
			WillReturnRows(rows)

		c, err := repo.FindByID(context.Background(), realmID, customerID)
		require.NoError(t, err)
		assert.Equal(t, "Acme", c.Name)
		assert.Equal(t, listID, c.ListIDOrEmpty())
		assert.True(t, c.IsQBDObjCreated())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing rows to not found", func(t *testing.T) {
		repo, mock := newMockCustomerRepository(t)
		mock.ExpectQuery(`SELECT \* FROM "customers"`).WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("passes through driver errors", func(t *testing.T) {
		repo, mock := newMockCustomerRepository(t)
		mock.ExpectQuery(`SELECT \* FROM "customers"`).WillReturnError(errors.New("connection reset"))

		_, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())
		require.Error(t, err)
		assert.False(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormCustomerRepository_FindByListID_Empty(t *testing.T) {
	repo, mock := newMockCustomerRepository(t)

	_, err := repo.FindByListID(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "an empty ListID never reaches the database")
}
