package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samara-ai/modelrouter/repositories"
	"go.uber.org/zap"
)

// txKey carries the active transaction through a context. Repository
// methods pick it up via GetExecutor, so code inside InTransaction runs
// its statements on the transaction without threading *sql.Tx around.
type txKey struct{}

type txManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a transaction manager over the connection
// pool. The audit flusher uses it to commit a batch of decision rows
// atomically.
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &txManager{
		db:     db,
		logger: logger,
	}
}

// Begin starts a transaction. The returned transaction's Context() already
// carries it, so repository calls made with that context execute inside
// the transaction.
func (m *txManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	t := &Tx{
		sqlTx:  sqlTx,
		logger: m.logger,
	}
	t.ctx = context.WithValue(ctx, txKey{}, t)

	m.logger.Debug("transaction started")
	return t, nil
}

// InTransaction runs fn inside a transaction, committing when fn returns
// nil and rolling back otherwise. The context handed to fn carries the
// transaction; a panic in fn rolls back before re-panicking.
func (m *txManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.Context(), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Tx implements the repositories.Transaction interface
type Tx struct {
	sqlTx  *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	if err := t.sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed")
	return nil
}

// Rollback rolls back the transaction. Rolling back an already finished
// transaction is a no-op.
func (t *Tx) Rollback() error {
	if err := t.sqlTx.Rollback(); err != nil {
		if err == sql.ErrTxDone {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("transaction rolled back")
	return nil
}

// Context returns a context carrying this transaction
func (t *Tx) Context() context.Context {
	return t.ctx
}

// Executor runs SQL statements; both *sql.DB and *sql.Tx satisfy it
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetExecutor returns the transaction found in the context, or the pool
// when none is present
func GetExecutor(ctx context.Context, db *DB) Executor {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t.sqlTx
	}
	return db.DB
}
