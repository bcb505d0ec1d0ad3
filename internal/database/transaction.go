package database

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes that mean "run the whole transaction again".
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// RetryPolicy bounds how long serialization conflicts are retried.
type RetryPolicy struct {
	MaxElapsed time.Duration
	MaxRetries uint64
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	// BackOff implementations are stateful; build a fresh one per call.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = p.MaxElapsed
	var b backoff.BackOff = bo
	if p.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, p.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}

// Runner executes functions inside gorm transactions, retrying serialization
// conflicts and deadlocks with exponential backoff.
type Runner struct {
	db     *gorm.DB
	policy RetryPolicy
	logger *zap.Logger
}

func NewRunner(db *gorm.DB, policy RetryPolicy, logger *zap.Logger) *Runner {
	return &Runner{db: db, policy: policy, logger: logger}
}

// Run commits fn's writes atomically. Any error from fn rolls the
// transaction back; only retryable store errors cause another attempt.
func (r *Runner) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := r.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			r.logger.Warn("Transaction conflict, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}, r.policy.backOff(ctx))
}

// IsRetryable reports whether err is a PostgreSQL serialization failure or
// deadlock, from either the pgx or the lib/pq driver.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == sqlStateSerializationFailure || code == sqlStateDeadlockDetected
	}
	return false
}
