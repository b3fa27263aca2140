package services

import (
	"context"
	"database/sql"
	"time"
)

// defaultOperationTimeout bounds a single service operation when none is configured.
const defaultOperationTimeout = 5 * time.Second

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// inTx runs fn inside one database transaction. fn's error is returned as is
// and rolls the transaction back; begin and commit failures become
// StorageErrors of op.
func inTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, "begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr(op, "commit", err)
	}
	return nil
}
