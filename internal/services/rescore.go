package services

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"draw-backend/internal/drawing"
	"draw-backend/internal/models"
)

type RecentStore interface {
	LatestSubmissions(ctx context.Context, promptID string, limit int) ([]models.Submission, error)
}

// RescoreService re-runs the primary scorer over stored drawings without
// writing anything back. It is used to compare prompt or model changes.
type RescoreService struct {
	store  RecentStore
	images ImageDownloader
	scorer Scorer
}

func NewRescoreService(store RecentStore, images ImageDownloader, scorer Scorer) *RescoreService {
	return &RescoreService{store: store, images: images, scorer: scorer}
}

func (s *RescoreService) Run(ctx context.Context, month string, limit int) ([]models.RescoreResult, error) {
	normalized, ok := drawing.NormalizeMonth(month)
	if !ok {
		return nil, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}
	promptID := drawing.PromptIDForMonth(normalized)

	subs, err := s.store.LatestSubmissions(ctx, promptID, limit)
	if err != nil {
		return nil, err
	}

	results := make([]models.RescoreResult, 0, len(subs))
	for i, sub := range subs {
		png, err := s.images.Download(ctx, sub.ImageKey)
		if err != nil {
			clog.FromContext(ctx).Warnf("skipping %s: %v", sub.SubmissionID, err)
			continue
		}
		scored := s.scorer.Score(ctx, sub.SubmissionID, sub.PromptText, png)
		results = append(results, models.RescoreResult{
			Order:        i + 1,
			SubmissionID: sub.SubmissionID,
			CreatedAt:    drawing.FormatTimestamp(sub.CreatedAt),
			OldScore:     sub.Score,
			NewScore:     scored.Assessment.Score,
			Diff:         scored.Assessment.Score - sub.Score,
			NewOneLiner:  scored.Assessment.OneLiner,
			NewTips:      scored.Assessment.Tips,
			FallbackUsed: scored.Telemetry.FallbackUsed,
		})
	}
	return results, nil
}
