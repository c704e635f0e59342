package models

import "draw-backend/internal/drawing"

type UploadURLResponse struct {
	SubmissionID string `json:"submissionId"`
	ImageKey     string `json:"imageKey"`
	PutURL       string `json:"putUrl"`
	PromptID     string `json:"promptId"`
	PromptText   string `json:"promptText"`
}

type SubmitResult struct {
	SubmissionID string            `json:"submissionId"`
	Score        int               `json:"score"`
	Breakdown    drawing.Breakdown `json:"breakdown"`
	OneLiner     string            `json:"oneLiner"`
	Tips         []string          `json:"tips"`
	IsRanked     bool              `json:"isRanked"`
	Rank         *int              `json:"rank,omitempty"`
}

type LeaderboardItem struct {
	Rank         int    `json:"rank"`
	Score        int    `json:"score"`
	Nickname     string `json:"nickname"`
	SubmissionID string `json:"submissionId"`
	ImageDataURL string `json:"imageDataUrl"`
}

type LeaderboardResponse struct {
	PromptID string            `json:"promptId"`
	Items    []LeaderboardItem `json:"items"`
}

type SecondaryReviewResult struct {
	SubmissionID    string `json:"submissionId"`
	EnrichedComment string `json:"enrichedComment"`
}

type SecondaryStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type PromptResponse struct {
	PromptID   string `json:"promptId"`
	DateJST    string `json:"dateJst"`
	PromptText string `json:"promptText"`
	Month      string `json:"month"`
	Topic      string `json:"topic"`
}

type CleanupSummary struct {
	TargetMonth      string `json:"targetMonth"`
	PromptID         string `json:"promptId"`
	Prefix           string `json:"prefix"`
	Scanned          int    `json:"scanned"`
	KeepCount        int    `json:"keepCount"`
	DeleteCandidates int    `json:"deleteCandidates"`
	Deleted          int    `json:"deleted"`
	Kept             int    `json:"kept"`
}

type PurgeSummary struct {
	Submissions      int64 `json:"submissions"`
	RateLimitWindows int64 `json:"rateLimitWindows"`
}

type RescoreResult struct {
	Order        int      `json:"order"`
	SubmissionID string   `json:"submissionId"`
	CreatedAt    string   `json:"createdAt"`
	OldScore     int      `json:"oldScore"`
	NewScore     int      `json:"newScore"`
	Diff         int      `json:"diff"`
	NewOneLiner  string   `json:"newOneLiner"`
	NewTips      []string `json:"newTips"`
	FallbackUsed bool     `json:"fallbackUsed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
