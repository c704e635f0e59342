package models

import (
	"time"

	"draw-backend/internal/drawing"
)

// DefaultNickname is shown for submissions without a display name.
const DefaultNickname = "匿名"

type SecondaryStatus string

const (
	SecondaryStatusSkipped SecondaryStatus = "skipped"
	SecondaryStatusPending SecondaryStatus = "pending"
	SecondaryStatusDone    SecondaryStatus = "done"
	SecondaryStatusFailed  SecondaryStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s SecondaryStatus) Terminal() bool {
	return s == SecondaryStatusSkipped || s == SecondaryStatusDone || s == SecondaryStatusFailed
}

// Submission is a scored drawing. It is written once and never updated.
type Submission struct {
	PromptID     string            `json:"promptId"`
	SubmissionID string            `json:"submissionId"`
	CreatedAt    time.Time         `json:"createdAt"`
	ExpiresAt    int64             `json:"expiresAt"`
	Nickname     string            `json:"nickname"`
	PromptText   string            `json:"promptText"`
	ImageKey     string            `json:"imageKey"`
	Score        int               `json:"score"`
	Breakdown    drawing.Breakdown `json:"breakdown"`
	OneLiner     string            `json:"oneLiner"`
	Tips         []string          `json:"tips"`
	IsRanked     bool              `json:"isRanked"`
	Rank         *int              `json:"rank,omitempty"`
	ScoreSortKey string            `json:"scoreSortKey"`
	Primary      PrimaryTelemetry  `json:"primary"`
}

// PrimaryTelemetry audits the scoring call. Token and latency fields are nil
// when no model answer was used.
type PrimaryTelemetry struct {
	ModelID      string          `json:"modelId,omitempty"`
	InputTokens  *int64          `json:"inputTokens,omitempty"`
	OutputTokens *int64          `json:"outputTokens,omitempty"`
	TotalTokens  *int64          `json:"totalTokens,omitempty"`
	LatencyMs    *int64          `json:"latencyMs,omitempty"`
	Rubric       *drawing.Rubric `json:"rubric,omitempty"`
	FallbackUsed bool            `json:"aiFallbackUsed"`
	RecordedAt   time.Time       `json:"tokenRecordedAt"`
}

// SecondaryReview is the mutable enrichment state of one submission.
// Only the secondary review worker changes it after creation.
type SecondaryReview struct {
	PromptID        string             `json:"promptId"`
	SubmissionID    string             `json:"submissionId"`
	Status          SecondaryStatus    `json:"secondaryStatus"`
	EnrichedComment *string            `json:"enrichedComment"`
	Attempts        int                `json:"secondaryAttempts"`
	Telemetry       SecondaryTelemetry `json:"telemetry"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type SecondaryTelemetry struct {
	ModelID      string `json:"modelId,omitempty"`
	InputTokens  *int64 `json:"inputTokens,omitempty"`
	OutputTokens *int64 `json:"outputTokens,omitempty"`
	TotalTokens  *int64 `json:"totalTokens,omitempty"`
	LatencyMs    *int64 `json:"latencyMs,omitempty"`
}

// SecondaryReviewMessage is the queued request to enrich a ranked submission.
type SecondaryReviewMessage struct {
	PromptID     string `json:"promptId"`
	SubmissionID string `json:"submissionId"`
	Score        int    `json:"score"`
}
