package drawing

import (
	"fmt"
	"slices"
	"time"
)

// LeaderboardSize is how many submissions per prompt count as ranked.
const LeaderboardSize = 20

// TimestampLayout is the UTC millisecond layout used in sort keys.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SortKey orders submissions by descending score, then creation time, then id.
// Lower keys rank higher.
func SortKey(score int, createdAt time.Time, submissionID string) string {
	inverted := 100 - ClampScore(float64(score))
	return fmt.Sprintf("%03d#%s#%s", inverted, FormatTimestamp(createdAt), submissionID)
}

// Rank places key among the current top keys of a prompt and returns its
// 1-based position.
func Rank(topKeys []string, key string) int {
	keys := make([]string, 0, len(topKeys)+1)
	keys = append(keys, topKeys...)
	keys = append(keys, key)
	slices.Sort(keys)
	return slices.Index(keys, key) + 1
}

// IsRanked reports whether rank falls inside the leaderboard.
func IsRanked(rank int) bool {
	return rank >= 1 && rank <= LeaderboardSize
}
