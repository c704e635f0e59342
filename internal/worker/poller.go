package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"draw-backend/internal/models"
	"draw-backend/internal/supabase"
)

type JobSource interface {
	Claim(ctx context.Context, limit int) ([]supabase.Job, error)
	Ack(ctx context.Context, id uuid.UUID) error
	Release(ctx context.Context, job supabase.Job, cause error) error
}

type Processor interface {
	Process(ctx context.Context, msg models.SecondaryReviewMessage) error
}

// visibilityMargin separates a job's deadline from its visibility timeout so
// the ack or release is written before the row becomes claimable again.
const visibilityMargin = 10 * time.Second

// MinVisibilityTimeout is the shortest visibility timeout that covers one
// image download and one model call, each bounded by attempt.
func MinVisibilityTimeout(attempt time.Duration) time.Duration {
	return 2*attempt + visibilityMargin
}

// JobTimeout is the processing deadline for jobs claimed with visibility.
func JobTimeout(visibility time.Duration) time.Duration {
	return max(visibility-visibilityMargin, visibility/2)
}

// Poller moves secondary review jobs from the queue table into a Pool.
// Jobs are claimed only for idle workers so none sits in the buffer while
// its visibility timeout runs.
type Poller struct {
	source     JobSource
	processor  Processor
	pool       *Pool
	interval   time.Duration
	jobTimeout time.Duration
}

func NewPoller(source JobSource, processor Processor, concurrency int, interval time.Duration) *Poller {
	p := &Poller{
		source:    source,
		processor: processor,
		interval:  interval,
	}
	p.pool = NewPool(concurrency, concurrency, p.handle)
	return p
}

// WithJobTimeout bounds each Process call.
func (p *Poller) WithJobTimeout(d time.Duration) *Poller {
	p.jobTimeout = d
	return p
}

// Run polls until ctx is cancelled, then waits for in-flight jobs.
func (p *Poller) Run(ctx context.Context) error {
	log := clog.FromContext(ctx)
	p.pool.Start(ctx)
	defer p.pool.Stop()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Infof("secondary review worker polling every %s", p.interval)
	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("failed to poll queue: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Info("secondary review worker stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll claims one job per idle worker and dispatches them.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	idle := p.pool.Idle()
	if idle == 0 {
		return 0, nil
	}
	jobs, err := p.source.Claim(ctx, idle)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		if err := p.pool.Enqueue(job); err != nil {
			if relErr := p.source.Release(ctx, job, err); relErr != nil {
				clog.FromContext(ctx).Errorf("failed to release job %s: %v", job.ID, relErr)
			}
		}
	}
	return len(jobs), nil
}

// Start launches the pool without the polling loop.
func (p *Poller) Start(ctx context.Context) {
	p.pool.Start(ctx)
}

// Stop waits for dispatched jobs to finish.
func (p *Poller) Stop() {
	p.pool.Stop()
}

func (p *Poller) handle(ctx context.Context, job supabase.Job) {
	log := clog.FromContext(ctx).With("job_id", job.ID.String(), "deliveries", job.Deliveries)

	var msg models.SecondaryReviewMessage
	if err := json.Unmarshal(job.Body, &msg); err != nil {
		log.Warnf("dropping malformed job: %v", err)
		p.ack(ctx, log, job)
		return
	}

	procCtx := clog.WithLogger(ctx, log)
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		procCtx, cancel = context.WithTimeout(procCtx, p.jobTimeout)
		defer cancel()
	}
	if err := p.processor.Process(procCtx, msg); err != nil {
		log.Warnf("secondary review failed, releasing: %v", err)
		if relErr := p.source.Release(ctx, job, err); relErr != nil {
			log.Errorf("failed to release job: %v", errors.Join(err, relErr))
		}
		return
	}
	p.ack(ctx, log, job)
}

func (p *Poller) ack(ctx context.Context, log *clog.Logger, job supabase.Job) {
	if err := p.source.Ack(ctx, job.ID); err != nil {
		log.Errorf("failed to ack job: %v", err)
	}
}
