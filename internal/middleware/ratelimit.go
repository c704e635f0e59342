package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"

	"draw-backend/internal/metrics"
	"draw-backend/internal/models"
)

// ErrRateLimited is returned when a caller has used up its window.
var ErrRateLimited = errors.New("rate limit exceeded")

// Counter atomically increments a windowed counter and returns the new value.
type Counter interface {
	IncrementRateLimit(ctx context.Context, key string, expiresAt int64) (int, error)
}

// RateLimiter counts requests per client address in fixed windows.
type RateLimiter struct {
	counter Counter
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(counter Counter, window time.Duration) *RateLimiter {
	return &RateLimiter{counter: counter, window: window, now: time.Now}
}

// WithClock replaces the clock that picks the window.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// Check counts one request for action from ip.
func (l *RateLimiter) Check(ctx context.Context, action, ip string, limit int) error {
	windowSecs := int64(l.window / time.Second)
	if windowSecs <= 0 {
		windowSecs = 1
	}
	windowStart := l.now().Unix() / windowSecs * windowSecs
	key := fmt.Sprintf("ip#%s#%s#%d", action, ip, windowStart)

	count, err := l.counter.IncrementRateLimit(ctx, key, windowStart+windowSecs+60)
	if err != nil {
		return err
	}
	if count > limit {
		return ErrRateLimited
	}
	return nil
}

// Limit rejects requests over limit per window with 429.
func (l *RateLimiter) Limit(action string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		err := l.Check(ctx, action, ClientIP(c), limit)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, ErrRateLimited):
			metrics.RecordRateLimited(action)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "Rate limit exceeded"})
		default:
			clog.FromContext(ctx).Errorf("rate limit check failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}
	}
}
