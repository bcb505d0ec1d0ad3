package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PurgeResult counts the rows removed by one purge pass.
type PurgeResult struct {
	Notifications int64
	DeliveryLogs  int64
}

// Purger deletes read notifications and delivery logs older than a cutoff.
// Unread notifications are kept regardless of age.
type Purger struct {
	db        *sqlx.DB
	batchSize int
}

func NewPurger(db *sqlx.DB, batchSize int) *Purger {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Purger{db: db, batchSize: batchSize}
}

// Purge removes rows created before cutoff in batches until none remain.
func (p *Purger) Purge(ctx context.Context, cutoff time.Time) (PurgeResult, error) {
	var result PurgeResult
	var err error

	result.Notifications, err = p.purgeBatches(ctx, `
		DELETE FROM notifications
		WHERE id IN (
			SELECT id FROM notifications
			WHERE is_read = TRUE AND created_at < $1
			LIMIT $2
		)`, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to purge notifications: %w", err)
	}

	result.DeliveryLogs, err = p.purgeBatches(ctx, `
		DELETE FROM notification_delivery_logs
		WHERE id IN (
			SELECT id FROM notification_delivery_logs
			WHERE created_at < $1
			LIMIT $2
		)`, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to purge delivery logs: %w", err)
	}
	return result, nil
}

func (p *Purger) purgeBatches(ctx context.Context, query string, cutoff time.Time) (int64, error) {
	var total int64
	for {
		res, err := p.db.ExecContext(ctx, query, cutoff, p.batchSize)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(p.batchSize) {
			return total, nil
		}
	}
}
