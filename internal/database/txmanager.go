// Package database provides database connection management and utilities.
package database

import (
	"context"
	"database/sql"

	apperrors "github.com/allisson/newsletter/internal/errors"
)

// txKey is a context key type for storing database transactions.
type txKey struct{}

// Querier represents a database query executor (either *sql.DB or *sql.Tx).
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager manages database transactions.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// sqlTxManager implements TxManager for SQL databases.
type sqlTxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager for the given database.
func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

// WithTx executes fn within a database transaction stored in the context passed to fn.
// The transaction is rolled back when fn returns an error and committed otherwise.
// Nested calls reuse the outer transaction, so the outermost caller owns the commit.
// Begin and commit failures are reported as StorageError.
func (m *sqlTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("begin transaction", err)
	}

	ctx = ContextWithTx(ctx, tx)

	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return apperrors.NewStorageError("rollback transaction", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("commit transaction", err)
	}
	return nil
}

// ContextWithTx returns a copy of ctx carrying tx, for callers that manage a transaction themselves.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTx retrieves a transaction from context, or returns the DB connection.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}
