package drawing

import (
	"hash/fnv"
	"math"
)

// Rubric is the six-dimension evaluation returned by the primary model.
// Every dimension is an integer in 0..10.
type Rubric struct {
	PromptMatch   int `json:"promptMatch"`
	Composition   int `json:"composition"`
	ShapeClarity  int `json:"shapeClarity"`
	LineStability int `json:"lineStability"`
	Creativity    int `json:"creativity"`
	Completeness  int `json:"completeness"`
}

// Breakdown is the legacy three-part score shown next to the total.
type Breakdown struct {
	Likeness    int `json:"likeness"`
	Composition int `json:"composition"`
	Originality int `json:"originality"`
}

// Score weights the rubric into a 0..100 total.
func (r Rubric) Score() int {
	weighted := r.PromptMatch*24 +
		r.Composition*16 +
		r.ShapeClarity*18 +
		r.LineStability*12 +
		r.Creativity*16 +
		r.Completeness*14
	return ClampScore(float64(weighted) / 10)
}

// Breakdown maps the rubric onto likeness, composition and originality.
func (r Rubric) Breakdown() Breakdown {
	return Breakdown{
		Likeness:    ClampScore((float64(r.PromptMatch)*0.6 + float64(r.ShapeClarity)*0.4) * 10),
		Composition: ClampScore((float64(r.Composition)*0.7 + float64(r.Completeness)*0.3) * 10),
		Originality: ClampScore((float64(r.Creativity)*0.7 + float64(r.LineStability)*0.3) * 10),
	}
}

// ClampScore rounds v and clamps it into 0..100.
func ClampScore(v float64) int {
	return clampRound(v, 0, 100)
}

// ClampRubricValue rounds v and clamps it into 0..10.
func ClampRubricValue(v float64) int {
	return clampRound(v, 0, 10)
}

func clampRound(v float64, lo, hi int) int {
	if math.IsNaN(v) {
		return lo
	}
	n := math.Round(v)
	if n < float64(lo) {
		return lo
	}
	if n > float64(hi) {
		return hi
	}
	return int(n)
}

// Jitter derives -1, 0 or +1 from a 32-bit FNV-1a hash of the submission id.
func Jitter(submissionID string) int {
	h := fnv.New32a()
	h.Write([]byte(submissionID))
	switch h.Sum32() % 3 {
	case 0:
		return -1
	case 1:
		return 0
	default:
		return 1
	}
}

// ApplyJitter nudges scores of 60 and above by Jitter(submissionID).
func ApplyJitter(score int, submissionID string) int {
	if score < 60 {
		return score
	}
	return ClampScore(float64(score + Jitter(submissionID)))
}
