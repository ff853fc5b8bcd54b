package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/mindpalace/internal/platform/logger"
)

// TxFn writes part of a palace save through tx. Returning an error discards
// everything written in the same save.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs one palace write, named by op, inside a single
// transaction so the palace row and its card rows are replaced together.
// Readers never observe a palace whose cards are half rewritten: an error or
// panic from fn rolls back to the previous save, and panics are re-raised
// once the rollback is done.
func RunInTransaction(ctx context.Context, db *sql.DB, op string, fn TxFn) error {
	log := logger.FromContext(ctx).With(slog.String("operation", op))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("could not start palace write", slog.String("error", err.Error()))
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("palace write panicked and rollback failed",
				slog.String("error", rbErr.Error()),
				slog.Any("panic", p))
		} else {
			log.Error("palace write panicked, previous save kept", slog.Any("panic", p))
		}
		// ALLOW-PANIC: re-raised after rollback
		panic(p)
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("palace write failed and rollback failed",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf("%s: rollback failed: %v (original error: %w)", op, rbErr, err)
		}
		log.Debug("palace write rolled back", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("could not commit palace write", slog.String("error", err.Error()))
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	log.Debug("palace write committed")
	return nil
}
