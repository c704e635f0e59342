package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"draw-backend/internal/drawing"
	"draw-backend/internal/models"
)

const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 50

	signConcurrency = 8
)

type LeaderboardStore interface {
	Leaderboard(ctx context.Context, promptID string, limit int) ([]models.Submission, error)
}

type URLSigner interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// LeaderboardService builds the public ranking. Image URLs are signed fresh
// on every call.
type LeaderboardService struct {
	store   LeaderboardStore
	signer  URLSigner
	prompts *drawing.PromptResolver
	ttl     time.Duration
}

func NewLeaderboardService(store LeaderboardStore, signer URLSigner, prompts *drawing.PromptResolver, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{
		store:   store,
		signer:  signer,
		prompts: prompts,
		ttl:     ttl,
	}
}

// ParseLimit reads the limit query value: default 20, at most 50.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return DefaultLeaderboardLimit
	}
	return min(n, MaxLeaderboardLimit)
}

func (s *LeaderboardService) Get(ctx context.Context, q models.LeaderboardQuery) (*models.LeaderboardResponse, error) {
	promptID := s.prompts.Resolve(q.Month, q.PromptID).PromptID

	subs, err := s.store.Leaderboard(ctx, promptID, ParseLimit(q.Limit))
	if err != nil {
		return nil, err
	}

	items := make([]models.LeaderboardItem, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for i, sub := range subs {
		g.Go(func() error {
			url, err := s.signer.SignedURL(gctx, sub.ImageKey, s.ttl)
			if err != nil {
				return err
			}
			items[i] = models.LeaderboardItem{
				Rank:         i + 1,
				Score:        sub.Score,
				Nickname:     nicknameOrDefault(sub.Nickname),
				SubmissionID: sub.SubmissionID,
				ImageDataURL: url,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.LeaderboardResponse{PromptID: promptID, Items: items}, nil
}
