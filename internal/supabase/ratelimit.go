package supabase

import (
	"context"
	"fmt"
	"time"
)

// IncrementRateLimit bumps the counter stored under key and returns the new
// count. The first hit of a window creates the row.
func (d *DatabaseClient) IncrementRateLimit(ctx context.Context, key string, expiresAt int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO draw_rate_limits (key, count, expires_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (key) DO UPDATE
		SET count = draw_rate_limits.count + 1, expires_at = EXCLUDED.expires_at
		RETURNING count
	`, key, expiresAt).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	return count, nil
}

// PurgeRateLimits removes counters for windows that have closed.
func (d *DatabaseClient) PurgeRateLimits(ctx context.Context, now time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM draw_rate_limits
		WHERE expires_at <= $1
	`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge rate limits: %w", err)
	}
	return res.RowsAffected()
}
