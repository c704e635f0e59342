package services

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"draw-backend/internal/drawing"
	"draw-backend/internal/models"
)

type KeepListStore interface {
	TopImageKeys(ctx context.Context, promptID string, limit int) ([]string, error)
}

type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, keys []string) (int, error)
}

// CleanupService deletes a finished month's images except the leaderboard's.
type CleanupService struct {
	store     KeepListStore
	objects   ObjectStore
	prompts   *drawing.PromptResolver
	keepLimit int
}

func NewCleanupService(store KeepListStore, objects ObjectStore, prompts *drawing.PromptResolver, keepLimit int) *CleanupService {
	if keepLimit <= 0 {
		keepLimit = drawing.LeaderboardSize
	}
	return &CleanupService{
		store:     store,
		objects:   objects,
		prompts:   prompts,
		keepLimit: keepLimit,
	}
}

// Run cleans month, or the previous JST month when month is empty.
func (s *CleanupService) Run(ctx context.Context, month string) (*models.CleanupSummary, error) {
	target := s.prompts.PreviousMonth()
	if month != "" {
		normalized, ok := drawing.NormalizeMonth(month)
		if !ok {
			return nil, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
		}
		target = normalized
	}
	promptID := drawing.PromptIDForMonth(target)
	prefix := drawing.ImagePrefix(promptID)
	log := clog.FromContext(ctx).With("prompt_id", promptID)

	keepKeys, err := s.store.TopImageKeys(ctx, promptID, s.keepLimit)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]struct{}, len(keepKeys))
	for _, k := range keepKeys {
		keep[k] = struct{}{}
	}

	scanned, err := s.objects.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var doomed []string
	for _, key := range scanned {
		if _, ok := keep[key]; !ok {
			doomed = append(doomed, key)
		}
	}

	deleted, err := s.objects.Remove(ctx, doomed)
	if err != nil {
		return nil, err
	}
	log.Infof("cleanup scanned %d objects, deleted %d", len(scanned), deleted)

	return &models.CleanupSummary{
		TargetMonth:      target,
		PromptID:         promptID,
		Prefix:           prefix,
		Scanned:          len(scanned),
		KeepCount:        len(keep),
		DeleteCandidates: len(doomed),
		Deleted:          deleted,
		Kept:             len(scanned) - deleted,
	}, nil
}

type ExpiryStore interface {
	PurgeExpiredSubmissions(ctx context.Context, now time.Time) (int64, error)
	PurgeRateLimits(ctx context.Context, now time.Time) (int64, error)
}

// PurgeService removes expired submissions and closed rate-limit windows.
type PurgeService struct {
	store ExpiryStore
	now   func() time.Time
}

func NewPurgeService(store ExpiryStore) *PurgeService {
	return &PurgeService{store: store, now: time.Now}
}

// WithClock replaces the clock that decides what has expired.
func (s *PurgeService) WithClock(now func() time.Time) *PurgeService {
	s.now = now
	return s
}

func (s *PurgeService) Run(ctx context.Context) (*models.PurgeSummary, error) {
	now := s.now()
	subs, err := s.store.PurgeExpiredSubmissions(ctx, now)
	if err != nil {
		return nil, err
	}
	windows, err := s.store.PurgeRateLimits(ctx, now)
	if err != nil {
		return nil, err
	}
	clog.FromContext(ctx).Infof("purged %d submissions and %d rate-limit windows", subs, windows)
	return &models.PurgeSummary{Submissions: subs, RateLimitWindows: windows}, nil
}
