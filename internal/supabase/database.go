package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"draw-backend/internal/drawing"
	"draw-backend/internal/models"
)

// ErrNotFound is returned when a submission or review row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a submission id has been used before.
var ErrAlreadyExists = errors.New("already exists")

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// DB exposes the pool so migrations can share it.
func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// CreateSubmission writes the submission and its secondary review row together.
func (d *DatabaseClient) CreateSubmission(ctx context.Context, sub *models.Submission, review *models.SecondaryReview) error {
	breakdown, err := json.Marshal(sub.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown: %w", err)
	}
	tips := sub.Tips
	if tips == nil {
		tips = []string{}
	}
	tipsJSON, err := json.Marshal(tips)
	if err != nil {
		return fmt.Errorf("failed to encode tips: %w", err)
	}
	var rubric []byte
	if sub.Primary.Rubric != nil {
		if rubric, err = json.Marshal(sub.Primary.Rubric); err != nil {
			return fmt.Errorf("failed to encode rubric: %w", err)
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO draw_submissions (
			prompt_id, submission_id, created_at, expires_at, nickname, prompt_text, image_key,
			score, breakdown, one_liner, tips, is_ranked, rank, score_sort_key,
			primary_model_id, primary_input_tokens, primary_output_tokens, primary_total_tokens,
			primary_latency_ms, primary_rubric, ai_fallback_used, token_recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, sub.PromptID, sub.SubmissionID, sub.CreatedAt, sub.ExpiresAt, sub.Nickname, sub.PromptText, sub.ImageKey,
		sub.Score, breakdown, sub.OneLiner, tipsJSON, sub.IsRanked, nullInt(sub.Rank), sub.ScoreSortKey,
		nullString(sub.Primary.ModelID), nullInt64(sub.Primary.InputTokens), nullInt64(sub.Primary.OutputTokens),
		nullInt64(sub.Primary.TotalTokens), nullInt64(sub.Primary.LatencyMs), nullBytes(rubric),
		sub.Primary.FallbackUsed, sub.Primary.RecordedAt)
	if IsUniqueViolation(err) {
		return fmt.Errorf("submission %s: %w", sub.SubmissionID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO draw_secondary_reviews (prompt_id, submission_id, status, enriched_comment, attempts, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, review.PromptID, review.SubmissionID, string(review.Status), review.EnrichedComment, review.Attempts, review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create secondary review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit submission: %w", err)
	}
	return nil
}

// TopSortKeys returns the lowest sort keys for a prompt, best first.
func (d *DatabaseClient) TopSortKeys(ctx context.Context, promptID string, limit int) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT score_sort_key
		FROM draw_submissions
		WHERE prompt_id = $1 AND expires_at > EXTRACT(EPOCH FROM NOW())::BIGINT
		ORDER BY score_sort_key ASC
		LIMIT $2
	`, promptID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sort keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan sort key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// TopImageKeys returns the image keys of a prompt's best submissions,
// expired rows included, so monthly cleanup keeps the final leaderboard.
func (d *DatabaseClient) TopImageKeys(ctx context.Context, promptID string, limit int) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT image_key
		FROM draw_submissions
		WHERE prompt_id = $1
		ORDER BY score_sort_key ASC
		LIMIT $2
	`, promptID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query image keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan image key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

const submissionColumns = `
	prompt_id, submission_id, created_at, expires_at, nickname, prompt_text, image_key,
	score, breakdown, one_liner, tips, is_ranked, rank, score_sort_key,
	primary_model_id, primary_input_tokens, primary_output_tokens, primary_total_tokens,
	primary_latency_ms, primary_rubric, ai_fallback_used, token_recorded_at`

// Leaderboard returns the best submissions for a prompt in ascending sort-key order.
func (d *DatabaseClient) Leaderboard(ctx context.Context, promptID string, limit int) ([]models.Submission, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM draw_submissions
		WHERE prompt_id = $1 AND expires_at > EXTRACT(EPOCH FROM NOW())::BIGINT
		ORDER BY score_sort_key ASC
		LIMIT $2
	`, promptID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	return scanSubmissions(rows)
}

// LatestSubmissions returns the newest submissions for a prompt. Submission ids
// are ULIDs so they sort by creation time.
func (d *DatabaseClient) LatestSubmissions(ctx context.Context, promptID string, limit int) ([]models.Submission, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM draw_submissions
		WHERE prompt_id = $1 AND expires_at > EXTRACT(EPOCH FROM NOW())::BIGINT
		ORDER BY submission_id DESC
		LIMIT $2
	`, promptID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	return scanSubmissions(rows)
}

func (d *DatabaseClient) GetSubmission(ctx context.Context, promptID, submissionID string) (*models.Submission, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM draw_submissions
		WHERE prompt_id = $1 AND submission_id = $2 AND expires_at > EXTRACT(EPOCH FROM NOW())::BIGINT
	`, promptID, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	subs, err := scanSubmissions(rows)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	return &subs[0], nil
}

func (d *DatabaseClient) GetSecondaryReview(ctx context.Context, promptID, submissionID string) (*models.SecondaryReview, error) {
	var (
		review                  models.SecondaryReview
		status                  string
		comment, modelID        sql.NullString
		in, out, total, latency sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT prompt_id, submission_id, status, enriched_comment, attempts,
			model_id, input_tokens, output_tokens, total_tokens, latency_ms, updated_at
		FROM draw_secondary_reviews
		WHERE prompt_id = $1 AND submission_id = $2
	`, promptID, submissionID).Scan(
		&review.PromptID, &review.SubmissionID, &status, &comment, &review.Attempts,
		&modelID, &in, &out, &total, &latency, &review.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secondary review: %w", err)
	}

	review.Status = models.SecondaryStatus(status)
	if comment.Valid {
		review.EnrichedComment = &comment.String
	}
	review.Telemetry = models.SecondaryTelemetry{
		ModelID:      modelID.String,
		InputTokens:  int64Ptr(in),
		OutputTokens: int64Ptr(out),
		TotalTokens:  int64Ptr(total),
		LatencyMs:    int64Ptr(latency),
	}
	return &review, nil
}

// MarkSecondaryFailed moves a pending review to failed without a model call.
// It reports whether a row changed.
func (d *DatabaseClient) MarkSecondaryFailed(ctx context.Context, promptID, submissionID string, attempts int) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE draw_secondary_reviews
		SET status = 'failed', attempts = $3, updated_at = NOW()
		WHERE prompt_id = $1 AND submission_id = $2 AND status = 'pending'
	`, promptID, submissionID, attempts)
	if err != nil {
		return false, fmt.Errorf("failed to mark review failed: %w", err)
	}
	return rowsChanged(res)
}

// RecordSecondaryFailure counts a failed model call and leaves the review pending.
func (d *DatabaseClient) RecordSecondaryFailure(ctx context.Context, promptID, submissionID string, attempts int) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE draw_secondary_reviews
		SET attempts = $3, updated_at = NOW()
		WHERE prompt_id = $1 AND submission_id = $2 AND status = 'pending'
	`, promptID, submissionID, attempts)
	if err != nil {
		return false, fmt.Errorf("failed to record review failure: %w", err)
	}
	return rowsChanged(res)
}

// CompleteSecondaryReview stores the enriched comment and its telemetry.
func (d *DatabaseClient) CompleteSecondaryReview(ctx context.Context, promptID, submissionID, comment string, attempts int, t models.SecondaryTelemetry) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE draw_secondary_reviews
		SET status = 'done', enriched_comment = $3, attempts = $4,
			model_id = $5, input_tokens = $6, output_tokens = $7, total_tokens = $8,
			latency_ms = $9, updated_at = NOW()
		WHERE prompt_id = $1 AND submission_id = $2 AND status = 'pending'
	`, promptID, submissionID, comment, attempts, nullString(t.ModelID),
		nullInt64(t.InputTokens), nullInt64(t.OutputTokens), nullInt64(t.TotalTokens), nullInt64(t.LatencyMs))
	if err != nil {
		return false, fmt.Errorf("failed to complete review: %w", err)
	}
	return rowsChanged(res)
}

// PurgeExpiredSubmissions deletes submissions whose expiry has passed.
// Reviews go with them through the foreign key cascade.
func (d *DatabaseClient) PurgeExpiredSubmissions(ctx context.Context, now time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM draw_submissions
		WHERE expires_at <= $1
	`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge submissions: %w", err)
	}
	return res.RowsAffected()
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func scanSubmissions(rows *sql.Rows) ([]models.Submission, error) {
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		var (
			sub                     models.Submission
			breakdown, tips, rubric []byte
			rank                    sql.NullInt64
			modelID                 sql.NullString
			in, out, total, latency sql.NullInt64
		)
		err := rows.Scan(
			&sub.PromptID, &sub.SubmissionID, &sub.CreatedAt, &sub.ExpiresAt, &sub.Nickname,
			&sub.PromptText, &sub.ImageKey, &sub.Score, &breakdown, &sub.OneLiner, &tips,
			&sub.IsRanked, &rank, &sub.ScoreSortKey, &modelID, &in, &out, &total, &latency,
			&rubric, &sub.Primary.FallbackUsed, &sub.Primary.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		if err := json.Unmarshal(breakdown, &sub.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown: %w", err)
		}
		if err := json.Unmarshal(tips, &sub.Tips); err != nil {
			return nil, fmt.Errorf("failed to decode tips: %w", err)
		}
		if len(rubric) > 0 {
			var r drawing.Rubric
			if err := json.Unmarshal(rubric, &r); err != nil {
				return nil, fmt.Errorf("failed to decode rubric: %w", err)
			}
			sub.Primary.Rubric = &r
		}
		if rank.Valid {
			v := int(rank.Int64)
			sub.Rank = &v
		}
		sub.Primary.ModelID = modelID.String
		sub.Primary.InputTokens = int64Ptr(in)
		sub.Primary.OutputTokens = int64Ptr(out)
		sub.Primary.TotalTokens = int64Ptr(total)
		sub.Primary.LatencyMs = int64Ptr(latency)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}
	return subs, nil
}

func rowsChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
