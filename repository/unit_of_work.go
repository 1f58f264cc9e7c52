package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// RunInTx runs fn inside a single transaction and commits on success.
// Any error (or panic) rolls the whole unit of work back. Callers build
// transaction-bound repositories from the *sql.Tx handed to fn.
func RunInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
