package drawing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Topics rotate one per month starting at BaseYear-BaseMonth.
var Topics = []string{
	"熊", "猫", "犬", "うさぎ", "パンダ", "きつね",
	"ペンギン", "フクロウ", "イルカ", "くじら", "ライオン", "ゾウ",
	"キリン", "カメ", "タコ", "カニ", "いちご", "りんご",
	"バナナ", "コーヒーカップ", "ハンバーガー", "おにぎり", "富士山", "雲",
	"雪だるま", "虹", "自転車", "電車", "ロケット", "家",
	"観覧車", "桜", "ひまわり", "サボテン", "ギター", "ロボット",
}

const (
	BaseYear  = 2026
	BaseMonth = 2
)

// JST is the game's calendar timezone. Japan has no daylight saving time.
var JST = time.FixedZone("JST", 9*60*60)

var (
	monthPattern    = regexp.MustCompile(`^\d{4}-\d{2}$`)
	promptIDPattern = regexp.MustCompile(`^prompt-(\d{4}-\d{2})$`)
	imageKeyPattern = regexp.MustCompile(`^draw/(prompt-\d{4}-\d{2})/[^/]+\.png$`)
)

// Prompt is the drawing topic for one calendar month.
type Prompt struct {
	PromptID   string `json:"promptId"`
	DateJST    string `json:"dateJst"`
	PromptText string `json:"promptText"`
	Month      string `json:"month"`
	Topic      string `json:"topic"`
}

// NormalizeMonth validates a YYYY-MM string.
func NormalizeMonth(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !monthPattern.MatchString(raw) {
		return "", false
	}
	year, _ := strconv.Atoi(raw[:4])
	month, _ := strconv.Atoi(raw[5:7])
	if month < 1 || month > 12 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d", year, month), true
}

// MonthFromPromptID extracts the month from a prompt-YYYY-MM id.
func MonthFromPromptID(promptID string) (string, bool) {
	m := promptIDPattern.FindStringSubmatch(strings.TrimSpace(promptID))
	if m == nil {
		return "", false
	}
	return NormalizeMonth(m[1])
}

// PromptIDFromImageKey returns the prompt id embedded in an upload key.
func PromptIDFromImageKey(imageKey string) (string, bool) {
	m := imageKeyPattern.FindStringSubmatch(imageKey)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PromptIDForMonth formats the prompt id of a normalized month.
func PromptIDForMonth(month string) string {
	return "prompt-" + month
}

// ImagePrefix is the storage folder holding a prompt's uploads.
func ImagePrefix(promptID string) string {
	return "draw/" + promptID + "/"
}

// ImageKey is the storage key of one submission's drawing.
func ImageKey(promptID, submissionID string) string {
	return ImagePrefix(promptID) + submissionID + ".png"
}

// TopicForMonth maps a normalized month to its topic.
func TopicForMonth(month string) string {
	year, _ := strconv.Atoi(month[:4])
	mon, _ := strconv.Atoi(month[5:7])
	diff := (year-BaseYear)*12 + (mon - BaseMonth)
	n := len(Topics)
	return Topics[((diff%n)+n)%n]
}

// PromptResolver maps months to prompts. The clock only matters when no
// month is given and for DateJST.
type PromptResolver struct {
	now func() time.Time
}

func NewPromptResolver(now func() time.Time) *PromptResolver {
	if now == nil {
		now = time.Now
	}
	return &PromptResolver{now: now}
}

// CurrentMonth is the current month in JST.
func (r *PromptResolver) CurrentMonth() string {
	return r.now().In(JST).Format("2006-01")
}

// PreviousMonth is the month before the current one in JST.
func (r *PromptResolver) PreviousMonth() string {
	now := r.now().In(JST)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, JST)
	return first.AddDate(0, -1, 0).Format("2006-01")
}

// Resolve picks the month from month, then promptID, then the clock.
func (r *PromptResolver) Resolve(month, promptID string) Prompt {
	resolved, ok := NormalizeMonth(month)
	if !ok {
		resolved, ok = MonthFromPromptID(promptID)
	}
	if !ok {
		resolved = r.CurrentMonth()
	}
	topic := TopicForMonth(resolved)
	return Prompt{
		PromptID:   PromptIDForMonth(resolved),
		DateJST:    r.now().In(JST).Format("2006-01-02"),
		PromptText: "30秒で" + topic + "を描いて",
		Month:      resolved,
		Topic:      topic,
	}
}
