package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
)

// DBTX is the executor shared by *sql.DB and *sql.Tx, letting repositories
// run either standalone or inside a caller-owned transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Atomic runs fn inside a transaction, rolling back on error. Per-match
// processing uses it so the ledger append and the leaderboard delta land
// together or not at all.
func Atomic(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
