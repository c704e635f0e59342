package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"draw-backend/internal/drawing"
	"draw-backend/internal/metrics"
	"draw-backend/internal/models"
)

type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub *models.Submission, review *models.SecondaryReview) error
	TopSortKeys(ctx context.Context, promptID string, limit int) ([]string, error)
}

type ImageDownloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

type ReviewQueue interface {
	Enqueue(ctx context.Context, msg models.SecondaryReviewMessage) error
}

type Scorer interface {
	Score(ctx context.Context, submissionID, promptText string, png []byte) ScoreResult
}

// SubmissionService runs a drawing through gate, scoring and ranking, then
// stores it and queues the secondary review for ranked entries.
type SubmissionService struct {
	store   SubmissionStore
	images  ImageDownloader
	queue   ReviewQueue
	scorer  Scorer
	prompts *drawing.PromptResolver
	ttl     time.Duration
	now     func() time.Time
}

func NewSubmissionService(
	store SubmissionStore,
	images ImageDownloader,
	queue ReviewQueue,
	scorer Scorer,
	prompts *drawing.PromptResolver,
	ttl time.Duration,
) *SubmissionService {
	return &SubmissionService{
		store:   store,
		images:  images,
		queue:   queue,
		scorer:  scorer,
		prompts: prompts,
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for createdAt and expiry.
func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	s.now = now
	return s
}

func (s *SubmissionService) Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResult, error) {
	submissionID := strings.TrimSpace(req.SubmissionID)
	imageKey := strings.TrimSpace(req.ImageKey)
	if submissionID == "" || imageKey == "" {
		return nil, fmt.Errorf("%w: submissionId, imageKey required", ErrInvalidInput)
	}

	promptID := req.PromptID
	if fromKey, ok := drawing.PromptIDFromImageKey(imageKey); ok {
		promptID = fromKey
	}
	prompt := s.prompts.Resolve(req.Month, promptID)
	promptText := prompt.PromptText
	log := clog.FromContext(ctx).With("prompt_id", prompt.PromptID, "submission_id", submissionID)

	png, err := s.images.Download(ctx, imageKey)
	if err != nil {
		metrics.RecordSubmission(metrics.OutcomeError)
		return nil, err
	}
	ratio, err := drawing.InkRatioOf(png)
	if err != nil {
		metrics.RecordSubmission(metrics.OutcomeError)
		return nil, err
	}

	createdAt := s.now().UTC()
	sub := &models.Submission{
		PromptID:     prompt.PromptID,
		SubmissionID: submissionID,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(s.ttl).Unix(),
		Nickname:     nicknameOrDefault(req.Nickname),
		PromptText:   promptText,
		ImageKey:     imageKey,
	}
	review := &models.SecondaryReview{
		PromptID:     prompt.PromptID,
		SubmissionID: submissionID,
		Status:       models.SecondaryStatusSkipped,
		UpdatedAt:    createdAt,
	}

	var assessment drawing.Assessment
	if drawing.FailsInkGate(ratio) {
		log.Infof("ink ratio %.5f below gate, skipping scoring", ratio)
		assessment = drawing.GateAssessment()
		sub.Primary = models.PrimaryTelemetry{FallbackUsed: true, RecordedAt: createdAt}
		sub.ScoreSortKey = drawing.SortKey(assessment.Score, createdAt, submissionID)
	} else {
		scored := s.scorer.Score(ctx, submissionID, promptText, png)
		assessment = scored.Assessment
		sub.Primary = scored.Telemetry
		sub.ScoreSortKey = drawing.SortKey(assessment.Score, createdAt, submissionID)

		topKeys, err := s.store.TopSortKeys(ctx, prompt.PromptID, drawing.LeaderboardSize)
		if err != nil {
			metrics.RecordSubmission(metrics.OutcomeError)
			return nil, err
		}
		if rank := drawing.Rank(topKeys, sub.ScoreSortKey); drawing.IsRanked(rank) {
			sub.IsRanked = true
			sub.Rank = &rank
			review.Status = models.SecondaryStatusPending
		}
	}

	sub.Score = assessment.Score
	sub.Breakdown = assessment.Breakdown
	sub.OneLiner = assessment.OneLiner
	sub.Tips = assessment.Tips
	if sub.Tips == nil {
		sub.Tips = []string{}
	}

	if err := s.store.CreateSubmission(ctx, sub, review); err != nil {
		metrics.RecordSubmission(metrics.OutcomeError)
		return nil, err
	}

	if sub.IsRanked {
		msg := models.SecondaryReviewMessage{
			PromptID:     sub.PromptID,
			SubmissionID: sub.SubmissionID,
			Score:        sub.Score,
		}
		if err := s.queue.Enqueue(ctx, msg); err != nil {
			metrics.RecordSubmission(metrics.OutcomeError)
			return nil, err
		}
	}

	switch {
	case drawing.FailsInkGate(ratio):
		metrics.RecordSubmission(metrics.OutcomeGated)
	case sub.IsRanked:
		metrics.RecordSubmission(metrics.OutcomeRanked)
	default:
		metrics.RecordSubmission(metrics.OutcomeUnranked)
	}
	log.Infof("submission stored with score %d ranked=%t", sub.Score, sub.IsRanked)

	return &models.SubmitResult{
		SubmissionID: sub.SubmissionID,
		Score:        sub.Score,
		Breakdown:    sub.Breakdown,
		OneLiner:     sub.OneLiner,
		Tips:         sub.Tips,
		IsRanked:     sub.IsRanked,
		Rank:         sub.Rank,
	}, nil
}

func nicknameOrDefault(nickname string) string {
	if n := strings.TrimSpace(nickname); n != "" {
		return n
	}
	return models.DefaultNickname
}
