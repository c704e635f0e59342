package drawing_test

import (
	"fmt"
	"testing"
	"time"

	"draw-backend/internal/drawing"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func TestSortKey_Format(t *testing.T) {
	assert.Equal(t, "015#2026-02-01T12:00:00.000Z#01ABC", drawing.SortKey(85, base, "01ABC"))
	assert.Equal(t, "100#2026-02-01T12:00:00.000Z#01ABC", drawing.SortKey(0, base, "01ABC"))
	assert.Equal(t, "000#2026-02-01T12:00:00.000Z#01ABC", drawing.SortKey(130, base, "01ABC"))
}

func TestRank_OrdersByScoreThenTimeThenID(t *testing.T) {
	high := drawing.SortKey(90, base.Add(time.Minute), "b")
	low := drawing.SortKey(80, base, "a")
	assert.Less(t, high, low, "higher score sorts first")

	early := drawing.SortKey(80, base, "z")
	late := drawing.SortKey(80, base.Add(time.Millisecond), "a")
	assert.Less(t, early, late, "earlier submission wins a tie")

	first := drawing.SortKey(80, base, "01A")
	second := drawing.SortKey(80, base, "01B")
	assert.Less(t, first, second, "smaller id wins a full tie")

	assert.Equal(t, 2, drawing.Rank([]string{high}, low))
	assert.Equal(t, 1, drawing.Rank([]string{late}, early))
	assert.Equal(t, 1, drawing.Rank(nil, first))
}

func TestRank_FullBoardOfHigherScores(t *testing.T) {
	top := make([]string, 0, drawing.LeaderboardSize)
	for i := 0; i < drawing.LeaderboardSize; i++ {
		top = append(top, drawing.SortKey(90+i%10, base.Add(time.Duration(i)*time.Second), fmt.Sprintf("s%02d", i)))
	}

	rank := drawing.Rank(top, drawing.SortKey(85, base, "new"))
	assert.Equal(t, 21, rank)
	assert.False(t, drawing.IsRanked(rank))
}

func TestRank_EntersBoard(t *testing.T) {
	top := []string{
		drawing.SortKey(95, base, "a"),
		drawing.SortKey(70, base, "b"),
	}

	rank := drawing.Rank(top, drawing.SortKey(85, base, "c"))
	assert.Equal(t, 2, rank)
	assert.True(t, drawing.IsRanked(rank))
	assert.Len(t, top, 2, "input keys are not modified")
}
