package unitofwork

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockUoW(t *testing.T) (UnitOfWork, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRepositoryFactory(db).NewUnitOfWork(context.Background()), mock
}

func TestUnitOfWork_CommitThenDeferredRollback(t *testing.T) {
	uow, mock := newMockUoW(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, uow.Begin(context.Background()))
	require.NoError(t, uow.Commit())
	assert.NoError(t, uow.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_DoubleBegin(t *testing.T) {
	uow, mock := newMockUoW(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, uow.Begin(context.Background()))
	assert.ErrorIs(t, uow.Begin(context.Background()), ErrTxAlreadyStarted)
	require.NoError(t, uow.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_CommitWithoutBegin(t *testing.T) {
	uow, _ := newMockUoW(t)
	assert.ErrorIs(t, uow.Commit(), ErrNoTransaction)
}
