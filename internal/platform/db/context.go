package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// Queryable abstracts pgxpool.Pool, pgxpool.Conn and pgx.Tx so repositories
// can run against whichever handle the request carries.
type Queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// WithTx returns a context carrying an open transaction. Repositories pick it
// up via TxFromContext so that multi-statement operations share one tx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// TxFromContext retrieves the transaction from context, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// RunInTx begins a transaction on the pool, stores it in the context, invokes
// fn with the transaction handle, and commits or rolls back depending on the
// returned error.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context, q Queryable) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithTx(ctx, tx), tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
