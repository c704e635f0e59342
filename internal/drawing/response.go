package drawing

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const (
	defaultOneLiner = "前向きで良い雰囲気です。"
	maxOneLinerLen  = 90
	maxTips         = 3
	defaultRubric   = 5
)

// Number is a JSON value read as a number when it looks like one.
// Anything else decodes without error and leaves Valid false.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = Number{Value: v, Valid: true}
		}
		return nil
	}
	if v, err := strconv.ParseFloat(string(data), 64); err == nil {
		*n = Number{Value: v, Valid: true}
	}
	return nil
}

// Or returns the value, or def when the number is absent.
func (n Number) Or(def float64) float64 {
	if n.Valid {
		return n.Value
	}
	return def
}

// Text is a JSON value rendered as a string. Non-string scalars keep their
// literal JSON form; null and containers decode to the empty string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*t = Text(s)
		}
	case '{', '[', 'n':
	default:
		*t = Text(data)
	}
	return nil
}

// TextList decodes a JSON array of scalars. Non-array values decode to nil.
type TextList []Text

func (l *TextList) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make(TextList, 0, len(raw))
	for _, item := range raw {
		var t Text
		_ = t.UnmarshalJSON(item)
		out = append(out, t)
	}
	*l = out
	return nil
}

// RubricFields is the rubric object as the model wrote it.
type RubricFields struct {
	PromptMatch   Number `json:"promptMatch"`
	Composition   Number `json:"composition"`
	ShapeClarity  Number `json:"shapeClarity"`
	LineStability Number `json:"lineStability"`
	Creativity    Number `json:"creativity"`
	Completeness  Number `json:"completeness"`
}

// BreakdownFields is the legacy breakdown object as the model wrote it.
type BreakdownFields struct {
	Likeness    Number `json:"likeness"`
	Composition Number `json:"composition"`
	Originality Number `json:"originality"`
}

// PrimaryResponse is the loosely typed JSON produced by the scoring model.
// Older prompts produced a breakdown instead of a rubric; both shapes are accepted.
type PrimaryResponse struct {
	Rubric      *RubricFields    `json:"rubric"`
	Breakdown   *BreakdownFields `json:"breakdown"`
	Score       Number           `json:"score"`
	Likeness    Number           `json:"likeness"`
	Composition Number           `json:"composition"`
	Originality Number           `json:"originality"`
	OneLiner    Text             `json:"oneLiner"`
	Tips        TextList         `json:"tips"`
}

// Assessment is a scored drawing: total, breakdown and short feedback.
// Rubric is nil when the score did not come from a model rubric.
type Assessment struct {
	Score     int
	Breakdown Breakdown
	OneLiner  string
	Tips      []string
	Rubric    *Rubric
}

// NormalizeRubric clamps the model rubric into range, falling back to the
// legacy breakdown mapping when no rubric object is present.
func NormalizeRubric(p PrimaryResponse) Rubric {
	if p.Rubric != nil {
		return Rubric{
			PromptMatch:   ClampRubricValue(p.Rubric.PromptMatch.Or(defaultRubric)),
			Composition:   ClampRubricValue(p.Rubric.Composition.Or(defaultRubric)),
			ShapeClarity:  ClampRubricValue(p.Rubric.ShapeClarity.Or(defaultRubric)),
			LineStability: ClampRubricValue(p.Rubric.LineStability.Or(defaultRubric)),
			Creativity:    ClampRubricValue(p.Rubric.Creativity.Or(defaultRubric)),
			Completeness:  ClampRubricValue(p.Rubric.Completeness.Or(defaultRubric)),
		}
	}

	likeness, composition, originality := p.Likeness, p.Composition, p.Originality
	if p.Breakdown != nil {
		if p.Breakdown.Likeness.Valid {
			likeness = p.Breakdown.Likeness
		}
		if p.Breakdown.Composition.Valid {
			composition = p.Breakdown.Composition
		}
		if p.Breakdown.Originality.Valid {
			originality = p.Breakdown.Originality
		}
	}
	like := likeness.Or(50)
	comp := composition.Or(50)
	orig := originality.Or(50)
	return Rubric{
		PromptMatch:   ClampRubricValue(like / 10),
		Composition:   ClampRubricValue(comp / 10),
		ShapeClarity:  ClampRubricValue(like / 10),
		LineStability: ClampRubricValue((comp*0.5 + orig*0.5) / 10),
		Creativity:    ClampRubricValue(orig / 10),
		Completeness:  ClampRubricValue((p.Score.Or(60)*0.8 + comp*0.2) / 10),
	}
}

// Normalize turns a parsed model response into an Assessment.
func Normalize(p PrimaryResponse) Assessment {
	rubric := NormalizeRubric(p)

	oneLiner := string(p.OneLiner)
	if oneLiner == "" {
		oneLiner = defaultOneLiner
	}
	if r := []rune(oneLiner); len(r) > maxOneLinerLen {
		oneLiner = string(r[:maxOneLinerLen])
	}

	tips := make([]string, 0, maxTips)
	for _, t := range p.Tips {
		tip := strings.TrimSpace(string(t))
		if tip == "" {
			continue
		}
		tips = append(tips, tip)
		if len(tips) == maxTips {
			break
		}
	}

	return Assessment{
		Score:     rubric.Score(),
		Breakdown: rubric.Breakdown(),
		OneLiner:  oneLiner,
		Tips:      tips,
		Rubric:    &rubric,
	}
}
