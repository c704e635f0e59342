package services_test

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"draw-backend/internal/inference"
	"draw-backend/internal/models"
	"draw-backend/internal/supabase"
)

var fixedNow = time.Date(2026, 2, 14, 3, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func inkPNG(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(32, 32, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	for x := 0; x < 32; x++ {
		img.Set(x, 16, color.NRGBA{A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(32, 32, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

type reviewKey struct{ promptID, submissionID string }

// fakeStore is an in-memory stand-in for the Postgres stores.
type fakeStore struct {
	mu          sync.Mutex
	submissions map[reviewKey]models.Submission
	reviews     map[reviewKey]models.SecondaryReview
	extraKeys   map[string][]string
	err         error
	purged      []time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		submissions: map[reviewKey]models.Submission{},
		reviews:     map[reviewKey]models.SecondaryReview{},
		extraKeys:   map[string][]string{},
	}
}

func (s *fakeStore) CreateSubmission(_ context.Context, sub *models.Submission, review *models.SecondaryReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	k := reviewKey{sub.PromptID, sub.SubmissionID}
	if _, ok := s.submissions[k]; ok {
		return supabase.ErrAlreadyExists
	}
	s.submissions[k] = *sub
	s.reviews[k] = *review
	return nil
}

func (s *fakeStore) TopSortKeys(_ context.Context, promptID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	keys := append([]string{}, s.extraKeys[promptID]...)
	for k, sub := range s.submissions {
		if k.promptID == promptID {
			keys = append(keys, sub.ScoreSortKey)
		}
	}
	sort.Strings(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (s *fakeStore) sorted(promptID string) []models.Submission {
	var subs []models.Submission
	for k, sub := range s.submissions {
		if k.promptID == promptID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ScoreSortKey < subs[j].ScoreSortKey })
	return subs
}

func (s *fakeStore) Leaderboard(_ context.Context, promptID string, limit int) ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	subs := s.sorted(promptID)
	if len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

func (s *fakeStore) TopImageKeys(ctx context.Context, promptID string, limit int) ([]string, error) {
	subs, err := s.Leaderboard(ctx, promptID, limit)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(subs))
	for i, sub := range subs {
		keys[i] = sub.ImageKey
	}
	return keys, nil
}

func (s *fakeStore) LatestSubmissions(_ context.Context, promptID string, limit int) ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.sorted(promptID)
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmissionID > subs[j].SubmissionID })
	if len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

func (s *fakeStore) GetSubmission(_ context.Context, promptID, submissionID string) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[reviewKey{promptID, submissionID}]
	if !ok {
		return nil, supabase.ErrNotFound
	}
	return &sub, nil
}

func (s *fakeStore) GetSecondaryReview(_ context.Context, promptID, submissionID string) (*models.SecondaryReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.reviews[reviewKey{promptID, submissionID}]
	if !ok {
		return nil, supabase.ErrNotFound
	}
	return &r, nil
}

func (s *fakeStore) updatePending(promptID, submissionID string, fn func(*models.SecondaryReview)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reviewKey{promptID, submissionID}
	r, ok := s.reviews[k]
	if !ok || r.Status != models.SecondaryStatusPending {
		return false
	}
	fn(&r)
	s.reviews[k] = r
	return true
}

func (s *fakeStore) MarkSecondaryFailed(_ context.Context, promptID, submissionID string, attempts int) (bool, error) {
	return s.updatePending(promptID, submissionID, func(r *models.SecondaryReview) {
		r.Status = models.SecondaryStatusFailed
		r.Attempts = attempts
	}), nil
}

func (s *fakeStore) RecordSecondaryFailure(_ context.Context, promptID, submissionID string, attempts int) (bool, error) {
	return s.updatePending(promptID, submissionID, func(r *models.SecondaryReview) {
		r.Attempts = attempts
	}), nil
}

func (s *fakeStore) CompleteSecondaryReview(_ context.Context, promptID, submissionID, comment string, attempts int, t models.SecondaryTelemetry) (bool, error) {
	return s.updatePending(promptID, submissionID, func(r *models.SecondaryReview) {
		r.Status = models.SecondaryStatusDone
		r.EnrichedComment = &comment
		r.Attempts = attempts
		r.Telemetry = t
	}), nil
}

func (s *fakeStore) PurgeExpiredSubmissions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = append(s.purged, now)
	var n int64
	for k, sub := range s.submissions {
		if sub.ExpiresAt <= now.Unix() {
			delete(s.submissions, k)
			delete(s.reviews, k)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) PurgeRateLimits(_ context.Context, _ time.Time) (int64, error) {
	return 3, nil
}

type fakeImages struct {
	mu        sync.Mutex
	objects   map[string][]byte
	err       error
	downloads int
	removed   []string
}

func newFakeImages() *fakeImages {
	return &fakeImages{objects: map[string][]byte{}}
}

func (f *fakeImages) Download(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeImages) CreateUploadURL(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example/upload/" + key + "?token=t", nil
}

func (f *fakeImages) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example/sign/" + key + "?ttl=" + ttl.String(), nil
}

func (f *fakeImages) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeImages) Remove(_ context.Context, keys []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.objects, k)
		f.removed = append(f.removed, k)
	}
	return len(keys), nil
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []models.SecondaryReviewMessage
	err      error
}

func (q *fakeQueue) Enqueue(_ context.Context, msg models.SecondaryReviewMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

type fakeCompleter struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []inference.Request
}

func (c *fakeCompleter) Complete(_ context.Context, req inference.Request) (*inference.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return &inference.Completion{
		Text:         c.text,
		ModelID:      req.Model,
		InputTokens:  1200,
		OutputTokens: 80,
		TotalTokens:  1280,
		Latency:      900 * time.Millisecond,
	}, nil
}

func (c *fakeCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
