package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TriRecover/internal/domain/models"
	domrepo "TriRecover/internal/domain/repository"
	"TriRecover/pkg/logger"
	"TriRecover/pkg/util"
)

// Sink is the downstream store the pipeline flushes into.
type Sink interface {
	StoreBatch(ctx context.Context, evs []models.AssessmentEvent) error
}

// ArchivePipeline sits between the assessment topic and the archive. It
// validates events, batches them by size or interval, and keeps them
// buffered while the archive is unavailable.
type ArchivePipeline struct {
	sink    Sink
	metrics domrepo.Metrics
	log     *logger.Logger

	batchSize  int
	bufSize    int
	flushEvery time.Duration

	mu      sync.Mutex
	pending []models.AssessmentEvent
	flushMu sync.Mutex

	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type PipelineOption func(*ArchivePipeline)

// WithBatchSize flushes as soon as n events are pending.
func WithBatchSize(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBufferSize caps how many events are held while the archive is down.
// The oldest are dropped beyond it.
func WithBufferSize(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithFlushInterval sets the background flush period.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *ArchivePipeline) {
		if d > 0 {
			p.flushEvery = d
		}
	}
}

// NewArchivePipeline creates a new pipeline.
func NewArchivePipeline(sink Sink, metrics domrepo.Metrics, log *logger.Logger, opts ...PipelineOption) *ArchivePipeline {
	p := &ArchivePipeline{
		sink:       sink,
		metrics:    metrics,
		log:        log,
		batchSize:  500,
		bufSize:    10000,
		flushEvery: 2 * time.Second,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize < p.batchSize {
		p.bufSize = p.batchSize
	}
	return p
}

// Start launches periodic flushing.
func (p *ArchivePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		const minBackoff = 50 * time.Millisecond
		backoff := minBackoff
		ticker := time.NewTicker(p.flushEvery)
		defer ticker.Stop()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Flush(ctx); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.log.Warn("archive flush failed", logger.Int("pending", p.Pending()), logger.Error(err))
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					}
				} else {
					backoff = minBackoff
				}
			}
		}
	}()
}

// Stop ends the background loop and flushes what is left.
func (p *ArchivePipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	started := p.started
	p.started = false
	p.mu.Unlock()

	if started {
		close(p.stopCh)
		select {
		case <-p.doneCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.Flush(ctx)
}

// Process validates ev and queues it. A full batch is flushed inline; a
// failed flush keeps the events buffered for the next attempt.
func (p *ArchivePipeline) Process(ctx context.Context, ev models.AssessmentEvent) error {
	if err := validateEvent(ev); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	p.mu.Lock()
	p.pending = append(p.pending, ev)
	full := len(p.pending) >= p.batchSize
	p.trimLocked()
	p.mu.Unlock()

	if full {
		if err := p.Flush(ctx); err != nil {
			p.log.Warn("archive flush failed, buffering", logger.Int("pending", p.Pending()), logger.Error(err))
		}
	}
	return nil
}

// Flush writes every pending event in batches.
func (p *ArchivePipeline) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	for {
		p.mu.Lock()
		n := min(len(p.pending), p.batchSize)
		if n == 0 {
			p.mu.Unlock()
			return nil
		}
		batch := p.pending[:n:n]
		p.pending = p.pending[n:]
		p.mu.Unlock()

		start := time.Now()
		if err := p.sink.StoreBatch(ctx, batch); err != nil {
			p.mu.Lock()
			p.pending = append(batch, p.pending...)
			p.trimLocked()
			p.mu.Unlock()
			p.metrics.RecordError("pipeline_flush")
			return fmt.Errorf("archive downstream: %w", err)
		}
		p.metrics.RecordLatency("pipeline_flush", time.Since(start).Seconds())
	}
}

// Pending reports the buffered event count.
func (p *ArchivePipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *ArchivePipeline) trimLocked() {
	if over := len(p.pending) - p.bufSize; over > 0 {
		p.pending = append([]models.AssessmentEvent(nil), p.pending[over:]...)
		p.metrics.RecordError("pipeline_buffer_drop")
	}
}

func validateEvent(ev models.AssessmentEvent) error {
	if !util.ValidDate(ev.Date) {
		return fmt.Errorf("event date %q invalid", ev.Date)
	}
	if ev.Rec == "" {
		return fmt.Errorf("event %s has no recommendation", ev.Date)
	}
	if ev.Confidence < 0 || ev.Confidence > 100 {
		return fmt.Errorf("event %s confidence %.1f out of range", ev.Date, ev.Confidence)
	}
	return nil
}

// PipelinePublisher feeds events straight into the pipeline when there is no
// broker between the engine and the archive.
type PipelinePublisher struct {
	p *ArchivePipeline
}

var _ domrepo.Publisher = (*PipelinePublisher)(nil)

func NewPipelinePublisher(p *ArchivePipeline) *PipelinePublisher {
	return &PipelinePublisher{p: p}
}

func (pp *PipelinePublisher) Publish(ctx context.Context, ev models.AssessmentEvent) error {
	return pp.p.Process(ctx, ev)
}

func (pp *PipelinePublisher) PublishBatch(ctx context.Context, evs []models.AssessmentEvent) error {
	for _, ev := range evs {
		if err := pp.p.Process(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (pp *PipelinePublisher) Close() error { return nil }
