package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmwm/dbs3-uploader/internal/logger"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore"
)

const (
	maxTransactionRetries        = 3
	poolConnectionAcquireTimeout = 5 * time.Second
)

// tx wraps a pgx.Tx for the stagingstore.Tx interface.
type tx struct {
	pgTx pgx.Tx
}

// isRetryableError reports whether a Postgres error is retryable: a
// serialization failure or deadlock raised by concurrent transactions.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "40001": // deadlock_detected, serialization_failure
			return true
		}
	}
	return false
}

// WithTransaction executes fn within a Postgres transaction, retrying on a
// retryable error with a small incremental backoff. If fn returns an error
// the transaction is rolled back; otherwise it is committed.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, txn stagingstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxTransactionRetries; attempt++ {
		acquireCtx, cancel := context.WithTimeout(ctx, poolConnectionAcquireTimeout)
		pgTx, err := s.pool.Begin(acquireCtx)
		cancel()
		if err != nil {
			return err
		}

		if err := fn(ctx, &tx{pgTx: pgTx}); err != nil {
			rollbackCtx, rollbackCancel := context.WithTimeout(ctx, poolConnectionAcquireTimeout)
			_ = pgTx.Rollback(rollbackCtx)
			rollbackCancel()

			if isRetryableError(err) {
				lastErr = err
				logger.Warn("staging store transaction retrying after retryable error", "attempt", attempt+1, "error", err)
				time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
				continue
			}
			return err
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, poolConnectionAcquireTimeout)
		err = pgTx.Commit(commitCtx)
		commitCancel()
		if err != nil {
			if isRetryableError(err) {
				lastErr = err
				time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
				continue
			}
			return err
		}

		return nil
	}

	return lastErr
}
