package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/repositories"
)

func newMockTxSetup(t *testing.T) (repositories.TransactionManager, *DecisionRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &DB{DB: mockDB, logger: zap.NewNop()}
	manager := NewTransactionManager(db, zap.NewNop())
	repo := &DecisionRepository{db: db, logger: zap.NewNop()}
	return manager, repo, mock
}

func TestTransactionManager_InTransaction_CommitsBatch(t *testing.T) {
	manager, repo, mock := newMockTxSetup(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO routing_decisions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO routing_decisions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := manager.InTransaction(context.Background(), func(txCtx context.Context, _ repositories.Transaction) error {
		if err := repo.Insert(txCtx, sampleRecord()); err != nil {
			return err
		}
		return repo.Insert(txCtx, sampleRecord())
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_InTransaction_RollsBackOnError(t *testing.T) {
	manager, repo, mock := newMockTxSetup(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO routing_decisions").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := manager.InTransaction(context.Background(), func(txCtx context.Context, _ repositories.Transaction) error {
		return repo.Insert(txCtx, sampleRecord())
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_InTransaction_CommitError(t *testing.T) {
	manager, _, mock := newMockTxSetup(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(assert.AnError)

	err := manager.InTransaction(context.Background(), func(context.Context, repositories.Transaction) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit")
}

func TestGetExecutor_PicksTransactionFromContext(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &DB{DB: mockDB, logger: zap.NewNop()}
	manager := NewTransactionManager(db, zap.NewNop())

	// Without a transaction the executor is the pool itself
	_, isPool := GetExecutor(context.Background(), db).(*sql.DB)
	assert.True(t, isPool)

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := manager.Begin(context.Background())
	require.NoError(t, err)

	_, isTx := GetExecutor(tx.Context(), db).(*sql.Tx)
	assert.True(t, isTx)

	require.NoError(t, tx.Rollback())
	// Rolling back twice is tolerated
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
