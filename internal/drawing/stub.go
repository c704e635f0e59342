package drawing

import "math"

// GateOneLiner explains a skipped score on a near-blank drawing.
const GateOneLiner = "線がほとんど見えないため、採点をスキップしました。"

// GateAssessment is the fixed result for drawings that fail the ink gate.
func GateAssessment() Assessment {
	return Assessment{
		Score:     0,
		Breakdown: Breakdown{},
		OneLiner:  GateOneLiner,
		Tips:      []string{},
	}
}

var stubTips = []string{"勢い", "まとまり", "表情", "発想"}

// StubAssessment is the low-confidence result used when the model cannot be
// reached or read. intn must return a value in [0, n).
func StubAssessment(intn func(n int) int) Assessment {
	score := 60 + intn(36)
	oneLiner := "輪郭が安定していて見やすいです。"
	if score >= 80 {
		oneLiner = "形の捉え方が良く、勢いが伝わります。"
	}
	tips := make([]string, 2+score%2)
	copy(tips, stubTips)
	return Assessment{
		Score: score,
		Breakdown: Breakdown{
			Likeness:    int(math.Floor(float64(score) * 0.35)),
			Composition: int(math.Floor(float64(score) * 0.33)),
			Originality: int(math.Floor(float64(score) * 0.3)),
		},
		OneLiner: oneLiner,
		Tips:     tips,
	}
}
