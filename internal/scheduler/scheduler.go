// Package scheduler runs the fixed-interval trigger that claims due publish
// jobs and hands them to the dispatch workers.
//
// The claim is atomic in the store (Pending -> Claimed conditional update), so
// overlapping ticks or concurrent dispatcher instances can never both pick up
// the same job. A tick never waits on job completion: claimed jobs go onto the
// dispatch bus and the next tick fires on schedule regardless of how slow any
// individual platform is.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

// Store defines the job selection contract.
type Store interface {
	// ClaimDueJobs atomically transitions up to limit due pending jobs to
	// Claimed and returns them, oldest due first.
	ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]domain.Job, error)
}

// Emitter hands claimed jobs to the dispatch workers. Implementations must
// not block; a job that cannot be handed off stays Claimed and is recovered
// by the sweeper.
type Emitter interface {
	Emit(ctx context.Context, job domain.Job) error
}

// MetricsSink defines the interface for recording scheduler metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	TickStarted()
	TickCompleted(duration time.Duration, jobsClaimed int, err error)
}

type Config struct {
	// TickInterval is how often due jobs are discovered. Default: 1 minute,
	// the minimum useful scheduling granularity.
	TickInterval time.Duration

	// BatchSize caps how many jobs one tick claims. Default: 10.
	BatchSize int
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Minute,
		BatchSize:    10,
	}
}

type Scheduler struct {
	config  Config
	store   Store
	emitter Emitter
	metrics MetricsSink // optional, nil = disabled
	clock   func() time.Time
}

func New(config Config, store Store, emitter Emitter) *Scheduler {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	return &Scheduler{
		config:  config,
		store:   store,
		emitter: emitter,
		clock:   time.Now,
	}
}

// WithMetrics attaches a metrics sink to the scheduler.
func (s *Scheduler) WithMetrics(sink MetricsSink) *Scheduler {
	s.metrics = sink
	return s
}

// Run starts the tick loop. It blocks until ctx is cancelled.
// A failed tick is logged and skipped; it never terminates the loop.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	log.Printf("scheduler: started (tick=%s, batch=%d)", s.config.TickInterval, s.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: stopped")
			return
		case <-ticker.C:
			if err := s.processTick(ctx); err != nil {
				log.Printf("scheduler: tick error: %v", err)
			}
		}
	}
}

// processTick claims one batch of due jobs and hands each to the dispatch bus.
func (s *Scheduler) processTick(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.TickStarted()
	}

	start := s.clock()
	now := start.UTC()

	jobs, err := s.store.ClaimDueJobs(ctx, now, s.config.BatchSize)
	if s.metrics != nil {
		s.metrics.TickCompleted(s.clock().Sub(start), len(jobs), err)
	}
	if err != nil {
		return fmt.Errorf("claim due jobs: %w", err)
	}

	for _, job := range jobs {
		if err := s.emitter.Emit(ctx, job); err != nil {
			// The job is already Claimed; the sweeper re-dispatches it once
			// the grace period passes. Nothing else to do here.
			log.Printf("scheduler: job %s not handed off: %v", job.ID, err)
			continue
		}
		log.Printf("scheduler: claimed job=%s due_at=%s platforms=%d",
			job.ID, job.DueAt.Format(time.RFC3339), len(job.TargetPlatforms))
	}

	return nil
}
