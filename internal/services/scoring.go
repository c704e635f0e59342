package services

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/chainguard-dev/clog"

	"draw-backend/internal/drawing"
	"draw-backend/internal/inference"
	"draw-backend/internal/metrics"
	"draw-backend/internal/models"
)

// Completer sends one prompt to a model.
type Completer interface {
	Complete(ctx context.Context, req inference.Request) (*inference.Completion, error)
}

// ScoreResult is a scored drawing plus the audit trail of how it was scored.
type ScoreResult struct {
	Assessment drawing.Assessment
	Telemetry  models.PrimaryTelemetry
}

// PrimaryScorer scores drawings with the primary model. It never fails: an
// unreachable or unreadable model yields the stub assessment instead.
type PrimaryScorer struct {
	completer Completer
	modelID   string
	intn      func(n int) int
	now       func() time.Time
}

func NewPrimaryScorer(completer Completer, modelID string) *PrimaryScorer {
	return &PrimaryScorer{
		completer: completer,
		modelID:   modelID,
		intn:      rand.IntN,
		now:       time.Now,
	}
}

// WithRand replaces the stub's random source.
func (s *PrimaryScorer) WithRand(intn func(n int) int) *PrimaryScorer {
	s.intn = intn
	return s
}

// WithClock replaces the clock used for telemetry timestamps.
func (s *PrimaryScorer) WithClock(now func() time.Time) *PrimaryScorer {
	s.now = now
	return s
}

// Score rates one drawing. The jitter for submissionID is already applied.
func (s *PrimaryScorer) Score(ctx context.Context, submissionID, promptText string, png []byte) ScoreResult {
	log := clog.FromContext(ctx).With("submission_id", submissionID)

	stub := drawing.StubAssessment(s.intn)
	result := ScoreResult{
		Assessment: stub,
		Telemetry: models.PrimaryTelemetry{
			ModelID:      s.modelID,
			FallbackUsed: true,
			RecordedAt:   s.now().UTC(),
		},
	}

	if s.completer != nil {
		completion, err := s.completer.Complete(ctx, inference.PrimaryRequest(s.modelID, promptText, png))
		if err != nil {
			log.Warnf("primary scoring failed, using stub: %v", err)
			metrics.RecordPrimaryFallback("inference")
		} else {
			metrics.ObserveInference(metrics.StagePrimary, completion.Latency)
			result.Telemetry = primaryTelemetry(completion, result.Telemetry.RecordedAt)

			parsed, err := drawing.ParsePrimaryResponse(completion.Text)
			if err != nil {
				log.Warnf("primary response unparseable, using stub: %v", err)
				metrics.RecordPrimaryFallback("parse")
				result.Telemetry.FallbackUsed = true
			} else {
				log.Debugf("primary response parsed by %s stage", parsed.Stage)
				result.Assessment = drawing.Normalize(parsed.Response)
			}
		}
	} else {
		metrics.RecordPrimaryFallback("unconfigured")
	}

	result.Assessment.Score = drawing.ApplyJitter(result.Assessment.Score, submissionID)
	result.Telemetry.Rubric = result.Assessment.Rubric
	return result
}

func primaryTelemetry(c *inference.Completion, recordedAt time.Time) models.PrimaryTelemetry {
	in, out, total := c.InputTokens, c.OutputTokens, c.TotalTokens
	latency := c.Latency.Milliseconds()
	return models.PrimaryTelemetry{
		ModelID:      c.ModelID,
		InputTokens:  &in,
		OutputTokens: &out,
		TotalTokens:  &total,
		LatencyMs:    &latency,
		RecordedAt:   recordedAt,
	}
}
