package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draw-backend/internal/middleware"
)

type memCounter struct {
	mu      sync.Mutex
	counts  map[string]int
	expires map[string]int64
	err     error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int{}, expires: map[string]int64{}}
}

func (m *memCounter) IncrementRateLimit(_ context.Context, key string, expiresAt int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	m.expires[key] = expiresAt
	return m.counts[key], nil
}

var windowClock = func() time.Time { return time.Unix(1_770_000_123, 0) }

func TestRateLimiter_KeyAndExpiry(t *testing.T) {
	counter := newMemCounter()
	limiter := middleware.NewRateLimiter(counter, 300*time.Second).WithClock(windowClock)

	require.NoError(t, limiter.Check(context.Background(), "submit", "203.0.113.7", 5))

	// 1770000123 floored to a 300s window is 1770000000.
	assert.Equal(t, 1, counter.counts["ip#submit#203.0.113.7#1770000000"])
	assert.Equal(t, int64(1770000000+300+60), counter.expires["ip#submit#203.0.113.7#1770000000"])
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	counter := newMemCounter()
	limiter := middleware.NewRateLimiter(counter, 300*time.Second).WithClock(windowClock)

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(context.Background(), "submit", "203.0.113.7", 5))
	}
	assert.ErrorIs(t, limiter.Check(context.Background(), "submit", "203.0.113.7", 5), middleware.ErrRateLimited)
	assert.NoError(t, limiter.Check(context.Background(), "upload", "203.0.113.7", 5))
}

func limitedRouter(counter *memCounter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	limiter := middleware.NewRateLimiter(counter, 300*time.Second).WithClock(windowClock)
	router := gin.New()
	router.POST("/submit", limiter.Limit("submit", 1), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRateLimit_Middleware(t *testing.T) {
	router := limitedRouter(newMemCounter())

	for _, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req, _ := http.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
		if want == http.StatusTooManyRequests {
			assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, w.Body.String())
		}
	}
}

func TestRateLimit_CounterErrorIs500(t *testing.T) {
	counter := newMemCounter()
	counter.err = errors.New("db down")
	router := limitedRouter(counter)

	req, _ := http.NewRequest(http.MethodPost, "/submit", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		xff    string
		remote string
		want   string
	}{
		{"forwarded", "198.51.100.1, 10.0.0.1", "10.0.0.2:5000", "198.51.100.1"},
		{"peer", "", "192.0.2.9:41000", "192.0.2.9"},
		{"bare peer", "", "192.0.2.10", "192.0.2.10"},
		{"unknown", "", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			if tt.xff != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, middleware.ClientIP(c))
		})
	}
}
