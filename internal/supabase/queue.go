package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"draw-backend/internal/models"
)

// QueueClient is an at-least-once queue of secondary review jobs kept in
// Postgres. Claimed jobs stay invisible until acked or their visibility
// timeout lapses.
type QueueClient struct {
	db                *sql.DB
	visibilityTimeout time.Duration
	maxDeliveries     int
}

// Job is one claimed delivery.
type Job struct {
	ID         uuid.UUID
	Body       []byte
	Deliveries int
}

func NewQueueClient(db *DatabaseClient, visibilityTimeout time.Duration, maxDeliveries int) *QueueClient {
	return &QueueClient{
		db:                db.db,
		visibilityTimeout: visibilityTimeout,
		maxDeliveries:     maxDeliveries,
	}
}

func (q *QueueClient) Enqueue(ctx context.Context, msg models.SecondaryReviewMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO draw_secondary_jobs (id, payload)
		VALUES ($1, $2)
	`, uuid.New(), payload)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Claim takes up to limit visible jobs and hides them for the visibility timeout.
func (q *QueueClient) Claim(ctx context.Context, limit int) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx, `
		UPDATE draw_secondary_jobs
		SET deliveries = deliveries + 1,
			visible_at = NOW() + make_interval(secs => $1::double precision)
		WHERE id IN (
			SELECT id FROM draw_secondary_jobs
			WHERE NOT dead AND visible_at <= NOW()
			ORDER BY visible_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, payload, deliveries
	`, q.visibilityTimeout.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Body, &job.Deliveries); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Ack removes a finished job.
func (q *QueueClient) Ack(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM draw_secondary_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// Release makes a failed job visible again after a backoff, or parks it as
// dead once it has used up its deliveries.
func (q *QueueClient) Release(ctx context.Context, job Job, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	dead := q.maxDeliveries > 0 && job.Deliveries >= q.maxDeliveries
	_, err := q.db.ExecContext(ctx, `
		UPDATE draw_secondary_jobs
		SET visible_at = NOW() + make_interval(secs => $2::double precision),
			last_error = $3, dead = $4
		WHERE id = $1
	`, job.ID, ReleaseBackoff(job.Deliveries).Seconds(), msg, dead)
	if err != nil {
		return fmt.Errorf("failed to release job: %w", err)
	}
	return nil
}

// ReleaseBackoff doubles from five seconds per delivery, capped at five minutes.
func ReleaseBackoff(deliveries int) time.Duration {
	d := 5 * time.Second
	for i := 1; i < deliveries; i++ {
		d *= 2
		if d >= 5*time.Minute {
			return 5 * time.Minute
		}
	}
	return d
}
