package models

type UploadURLRequest struct {
	Month    string `json:"month"`
	PromptID string `json:"promptId"`
}

type SubmitRequest struct {
	PromptID     string `json:"promptId"`
	SubmissionID string `json:"submissionId" binding:"required"`
	ImageKey     string `json:"imageKey" binding:"required"`
	Nickname     string `json:"nickname"`
	Month        string `json:"month"`
}

type LeaderboardQuery struct {
	PromptID string `form:"promptId"`
	Month    string `form:"month"`
	Limit    string `form:"limit"`
}

type SecondaryStatusQuery struct {
	PromptID     string `form:"promptId"`
	SubmissionID string `form:"submissionId"`
}

type CleanupRequest struct {
	Month string `json:"month"`
}
