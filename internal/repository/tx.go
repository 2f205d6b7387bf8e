package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ProvisionFunc creates the identity-provider principal for a row inserted
// right after it and returns its id. It runs outside any open transaction.
type ProvisionFunc func(ctx context.Context) (string, error)

// withTx runs fn inside a transaction, rolling back on any error.
func withTx(ctx context.Context, db *sqlx.DB, label string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", label, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", label, err)
	}
	return nil
}
