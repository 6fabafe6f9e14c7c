package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WithTx runs fn inside a database transaction.  The transaction is
// committed when fn returns nil and rolled back otherwise; fn's error is
// returned unchanged so callers can still match sentinels with errors.Is.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// forUpdate returns the row-locking suffix for SELECTs inside a
// transaction.  SQLite has no row locks; its single writer connection
// already serializes transactions.
func forUpdate(q interface{ DriverName() string }) string {
	if q.DriverName() == "mysql" {
		return " FOR UPDATE"
	}
	return ""
}
