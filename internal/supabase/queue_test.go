package supabase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"draw-backend/internal/supabase"
)

func TestReleaseBackoff(t *testing.T) {
	tests := []struct {
		deliveries int
		want       time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{6, 160 * time.Second},
		{7, 5 * time.Minute},
		{50, 5 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, supabase.ReleaseBackoff(tt.deliveries), "deliveries=%d", tt.deliveries)
	}
}
