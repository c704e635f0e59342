package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"draw-backend/internal/inference"
	"draw-backend/internal/metrics"
	"draw-backend/internal/models"
	"draw-backend/internal/supabase"
)

type ReviewStore interface {
	GetSubmission(ctx context.Context, promptID, submissionID string) (*models.Submission, error)
	GetSecondaryReview(ctx context.Context, promptID, submissionID string) (*models.SecondaryReview, error)
	MarkSecondaryFailed(ctx context.Context, promptID, submissionID string, attempts int) (bool, error)
	RecordSecondaryFailure(ctx context.Context, promptID, submissionID string, attempts int) (bool, error)
	CompleteSecondaryReview(ctx context.Context, promptID, submissionID, comment string, attempts int, t models.SecondaryTelemetry) (bool, error)
}

// SecondaryReviewer enriches ranked submissions with a longer critique.
// Process is safe to call more than once for the same message.
type SecondaryReviewer struct {
	store     ReviewStore
	images    ImageDownloader
	completer Completer
	modelID   string
}

func NewSecondaryReviewer(store ReviewStore, images ImageDownloader, completer Completer, modelID string) *SecondaryReviewer {
	return &SecondaryReviewer{
		store:     store,
		images:    images,
		completer: completer,
		modelID:   modelID,
	}
}

// Process handles one queued message. A returned error means the message
// should be delivered again; everything else is acknowledged.
func (r *SecondaryReviewer) Process(ctx context.Context, msg models.SecondaryReviewMessage) error {
	log := clog.FromContext(ctx).With("prompt_id", msg.PromptID, "submission_id", msg.SubmissionID)
	if msg.PromptID == "" || msg.SubmissionID == "" {
		log.Warn("secondary review message without ids, dropping")
		return nil
	}

	sub, err := r.store.GetSubmission(ctx, msg.PromptID, msg.SubmissionID)
	if errors.Is(err, supabase.ErrNotFound) {
		log.Warn("submission not found, dropping")
		return nil
	}
	if err != nil {
		return err
	}
	review, err := r.store.GetSecondaryReview(ctx, msg.PromptID, msg.SubmissionID)
	if errors.Is(err, supabase.ErrNotFound) {
		log.Warn("secondary review row not found, dropping")
		return nil
	}
	if err != nil {
		return err
	}

	if review.Status != models.SecondaryStatusPending {
		log.Debugf("secondary review already %s", review.Status)
		return nil
	}

	attempts := review.Attempts + 1
	if review.Attempts >= 1 {
		if _, err := r.store.MarkSecondaryFailed(ctx, msg.PromptID, msg.SubmissionID, attempts); err != nil {
			return err
		}
		metrics.RecordSecondaryTransition(string(models.SecondaryStatusFailed))
		log.Warnf("secondary review failed after %d attempts", attempts)
		return nil
	}

	completion, err := r.review(ctx, sub)
	if err != nil {
		if _, recErr := r.store.RecordSecondaryFailure(ctx, msg.PromptID, msg.SubmissionID, attempts); recErr != nil {
			return errors.Join(err, recErr)
		}
		metrics.RecordSecondaryTransition("retry")
		return fmt.Errorf("failed to review submission: %w", err)
	}

	in, out, total := completion.InputTokens, completion.OutputTokens, completion.TotalTokens
	latency := completion.Latency.Milliseconds()
	telemetry := models.SecondaryTelemetry{
		ModelID:      completion.ModelID,
		InputTokens:  &in,
		OutputTokens: &out,
		TotalTokens:  &total,
		LatencyMs:    &latency,
	}
	changed, err := r.store.CompleteSecondaryReview(ctx, msg.PromptID, msg.SubmissionID,
		strings.TrimSpace(completion.Text), attempts, telemetry)
	if err != nil {
		return err
	}
	if changed {
		metrics.RecordSecondaryTransition(string(models.SecondaryStatusDone))
		log.Info("secondary review done")
	}
	return nil
}

func (r *SecondaryReviewer) review(ctx context.Context, sub *models.Submission) (*inference.Completion, error) {
	if r.completer == nil {
		return nil, errors.New("secondary model not configured")
	}
	png, err := r.images.Download(ctx, sub.ImageKey)
	if err != nil {
		return nil, err
	}
	sc := inference.SecondaryContext{
		PromptText: sub.PromptText,
		Score:      sub.Score,
		Breakdown:  sub.Breakdown,
		OneLiner:   sub.OneLiner,
		Tips:       sub.Tips,
	}
	completion, err := r.completer.Complete(ctx, inference.SecondaryRequest(r.modelID, sc, png))
	if err != nil {
		return nil, err
	}
	metrics.ObserveInference(metrics.StageSecondary, completion.Latency)
	if strings.TrimSpace(completion.Text) == "" {
		return nil, inference.ErrEmptyResponse
	}
	return completion, nil
}

// Status returns the review for a submission, or supabase.ErrNotFound.
func (r *SecondaryReviewer) Status(ctx context.Context, promptID, submissionID string) (*models.SecondaryReview, error) {
	if promptID == "" || submissionID == "" {
		return nil, fmt.Errorf("%w: promptId, submissionId required", ErrInvalidInput)
	}
	return r.store.GetSecondaryReview(ctx, promptID, submissionID)
}
