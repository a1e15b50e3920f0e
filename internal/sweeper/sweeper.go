// Package sweeper recovers publish jobs stuck in Claimed.
//
// A job is stuck when its terminal write never landed (dispatcher crash,
// store outage, full dispatch bus). The sweeper periodically scans for
// claimed jobs older than a grace period and re-dispatches them; jobs stuck
// past the abandon threshold are marked Failed so nothing waits forever.
// Re-dispatch is safe because the terminal write is a conditional update: if
// the original dispatch finished in the meantime, the second write is denied.
package sweeper

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/socailstream/social-stream-backend/internal/dispatcher"
	"github.com/socailstream/social-stream-backend/internal/domain"
)

// Store defines the sweeper's store contract.
type Store interface {
	// GetStaleClaimedJobs returns claimed jobs whose claim is older than the
	// threshold, oldest claim first, capped at limit.
	GetStaleClaimedJobs(ctx context.Context, olderThan time.Time, limit int) ([]domain.Job, error)

	// CompleteJob atomically writes a terminal status; see dispatcher.Store.
	CompleteJob(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, results map[string]domain.PlatformResult, now time.Time) error
}

// Emitter re-submits a stuck job to the dispatch workers.
type Emitter interface {
	Emit(ctx context.Context, job domain.Job) error
}

// MetricsSink defines the interface for recording sweeper metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	StaleJobsFound(count int)
	JobAbandoned()
}

// Config holds sweeper configuration.
type Config struct {
	// Interval is how often the sweeper runs. Default: 5 minutes.
	Interval time.Duration

	// Grace is the claim age after which a job counts as stuck. It must
	// comfortably exceed the longest possible dispatch (two adapter passes
	// plus backoff) so a re-dispatch never races a live one into a double
	// publish. Default: 10 minutes.
	Grace time.Duration

	// AbandonAfter is the claim age past which a stuck job is marked Failed
	// instead of re-dispatched. Default: 1 hour.
	AbandonAfter time.Duration

	// BatchSize is the maximum number of stuck jobs per cycle. Default: 100.
	BatchSize int
}

// DefaultConfig returns the default sweeper configuration.
func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Minute,
		Grace:        10 * time.Minute,
		AbandonAfter: time.Hour,
		BatchSize:    100,
	}
}

// Sweeper detects stuck claimed jobs and re-dispatches or abandons them.
type Sweeper struct {
	config  Config
	store   Store
	emitter Emitter
	metrics MetricsSink // optional, nil = disabled
	clock   func() time.Time
}

// New creates a new Sweeper.
func New(config Config, store Store, emitter Emitter) *Sweeper {
	return &Sweeper{
		config:  config,
		store:   store,
		emitter: emitter,
		clock:   time.Now,
	}
}

// WithMetrics attaches a metrics sink to the sweeper.
func (s *Sweeper) WithMetrics(sink MetricsSink) *Sweeper {
	s.metrics = sink
	return s
}

// Run starts the sweep loop. It blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	log.Printf("sweeper: started (interval=%s, grace=%s, abandon_after=%s, batch=%d)",
		s.config.Interval, s.config.Grace, s.config.AbandonAfter, s.config.BatchSize)

	// Run immediately on startup, then on ticker.
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper: stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one sweep cycle.
func (s *Sweeper) runCycle(ctx context.Context) {
	now := s.clock().UTC()
	threshold := now.Add(-s.config.Grace)

	stale, err := s.store.GetStaleClaimedJobs(ctx, threshold, s.config.BatchSize)
	if err != nil {
		// Store error: log and abort cycle. Will retry next interval.
		log.Printf("sweeper: failed to fetch stale jobs: %v", err)
		return
	}

	if s.metrics != nil {
		s.metrics.StaleJobsFound(len(stale))
	}
	if len(stale) == 0 {
		return
	}

	log.Printf("sweeper: found %d stale claimed jobs", len(stale))

	redispatched := 0
	abandoned := 0

	for _, job := range stale {
		if ctx.Err() != nil {
			log.Printf("sweeper: cycle interrupted, processed %d/%d jobs", redispatched+abandoned, len(stale))
			return
		}

		claimAge := s.config.Grace
		if job.ClaimedAt != nil {
			claimAge = now.Sub(*job.ClaimedAt)
		}

		if claimAge >= s.config.AbandonAfter {
			if s.abandon(ctx, job, now, claimAge) {
				abandoned++
			}
			continue
		}

		if err := s.emitter.Emit(ctx, job); err != nil {
			// Bus full or shutting down. Log and continue - next cycle retries.
			log.Printf("sweeper: failed to re-dispatch job=%s: %v", job.ID, err)
			continue
		}
		log.Printf("sweeper: re-dispatched job=%s (claim age=%s)", job.ID, claimAge.Round(time.Second))
		redispatched++
	}

	log.Printf("sweeper: cycle complete, re-dispatched=%d, abandoned=%d", redispatched, abandoned)
}

// abandon marks a long-stuck job Failed, filling a failure result for every
// target platform that has none persisted. Reports whether the write landed.
func (s *Sweeper) abandon(ctx context.Context, job domain.Job, now time.Time, claimAge time.Duration) bool {
	results := make(map[string]domain.PlatformResult, len(job.TargetPlatforms))
	for plat, r := range job.PerPlatformResult {
		results[plat] = r
	}
	for _, plat := range job.TargetPlatforms {
		if _, ok := results[plat]; !ok {
			results[plat] = domain.PlatformResult{
				ErrorKind: string(domain.FailureTimeout),
				Error:     "abandoned by recovery sweep after " + claimAge.Round(time.Minute).String(),
			}
		}
	}

	err := s.store.CompleteJob(ctx, job.ID, domain.JobStatusFailed, results, now)
	if err != nil {
		if errors.Is(err, dispatcher.ErrTransitionDenied) {
			// The original dispatch finished after all. Nothing to do.
			return false
		}
		log.Printf("sweeper: failed to abandon job=%s: %v", job.ID, err)
		return false
	}

	if s.metrics != nil {
		s.metrics.JobAbandoned()
	}
	log.Printf("sweeper: abandoned job=%s (claim age=%s)", job.ID, claimAge.Round(time.Second))
	return true
}
