package database

import (
	"context"
	"fmt"
	"time"

	"github.com/temper-mc/prforum/models"
)

const (
	// DefaultDeliveryLimit is how many rows Recent returns when asked for none.
	DefaultDeliveryLimit = 50
	// MaxDeliveryLimit caps Recent.
	MaxDeliveryLimit = 500
)

// DeliveryLog is the audit trail of webhook intake and projection. It is
// write-mostly and never read back to replay events.
type DeliveryLog struct {
	db DB
}

// NewDeliveryLog wraps a migrated database.
func NewDeliveryLog(db DB) *DeliveryLog {
	return &DeliveryLog{db: db}
}

// Record appends d to the log, stamping CreatedAt when unset. Times are
// stored in UTC so range comparisons stay lexical.
func (l *DeliveryLog) Record(ctx context.Context, d models.Delivery) (int64, error) {
	d.ID = 0
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.CreatedAt = d.CreatedAt.UTC()
	id, err := l.db.Insert(ctx, "deliveries", d)
	if err != nil {
		return 0, fmt.Errorf("recording delivery: %w", err)
	}
	return id, nil
}

// Recent returns up to limit rows, newest first.
func (l *DeliveryLog) Recent(ctx context.Context, limit int) ([]models.Delivery, error) {
	limit = clampLimit(limit)
	var rows []models.Delivery
	err := l.db.Select(ctx, &rows,
		`SELECT id, delivery_id, kind, action, pr_number, event, outcome, detail, created_at
		   FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	return rows, nil
}

// ForPullRequest returns up to limit rows for one pull request, newest first.
func (l *DeliveryLog) ForPullRequest(ctx context.Context, number, limit int) ([]models.Delivery, error) {
	limit = clampLimit(limit)
	var rows []models.Delivery
	err := l.db.Select(ctx, &rows,
		`SELECT id, delivery_id, kind, action, pr_number, event, outcome, detail, created_at
		   FROM deliveries WHERE pr_number = ? ORDER BY id DESC LIMIT ?`, number, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries for #%d: %w", number, err)
	}
	return rows, nil
}

// Count returns the number of rows with the given outcome.
func (l *DeliveryLog) Count(ctx context.Context, outcome string) (int, error) {
	var n int
	if err := l.db.Get(ctx, &n, `SELECT COUNT(*) FROM deliveries WHERE outcome = ?`, outcome); err != nil {
		return 0, fmt.Errorf("counting %s deliveries: %w", outcome, err)
	}
	return n, nil
}

// Prune deletes rows created before cutoff.
func (l *DeliveryLog) Prune(ctx context.Context, cutoff time.Time) error {
	if err := l.db.Exec(ctx, `DELETE FROM deliveries WHERE created_at < ?`, cutoff.UTC()); err != nil {
		return fmt.Errorf("pruning deliveries: %w", err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultDeliveryLimit
	}
	return min(limit, MaxDeliveryLimit)
}
