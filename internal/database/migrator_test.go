package database_test

import (
	"testing"

	"draw-backend/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Ordered(t *testing.T) {
	names, err := database.Migrations()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"001_create_draw_submissions.sql",
		"002_create_draw_secondary_reviews.sql",
		"003_create_draw_rate_limits.sql",
		"004_create_draw_secondary_jobs.sql",
	}, names)
}
