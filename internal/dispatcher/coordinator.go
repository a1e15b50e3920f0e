// Package dispatcher contains the dispatch coordinator: the component that
// fans one claimed job out to its target platforms, collects the per-platform
// outcomes, and writes the job's terminal status.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/socailstream/social-stream-backend/internal/circuitbreaker"
	"github.com/socailstream/social-stream-backend/internal/domain"
	"github.com/socailstream/social-stream-backend/internal/metrics"
	"github.com/socailstream/social-stream-backend/internal/platform"
)

// ErrTransitionDenied is returned by the store when a terminal write would
// regress a job that is already Published or Failed. Safe to ignore on
// re-dispatch: the first writer won.
var ErrTransitionDenied = errors.New("status transition denied: job already in terminal state")

// ErrCredentialNotFound is returned by the store when the owner has no
// credential for a platform.
var ErrCredentialNotFound = errors.New("credential not found")

type Store interface {
	// GetCredential returns the owner's current credential for a platform,
	// or ErrCredentialNotFound.
	GetCredential(ctx context.Context, ownerID uuid.UUID, plat string) (domain.Credential, error)

	// CompleteJob atomically sets the terminal status and the per-platform
	// results. Implementations MUST reject the write unless the job is still
	// Claimed and return ErrTransitionDenied, preserving status monotonicity
	// under concurrent dispatch paths.
	CompleteJob(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, results map[string]domain.PlatformResult, now time.Time) error

	// InsertPublishAttempt records one adapter invocation for auditing.
	InsertPublishAttempt(ctx context.Context, attempt domain.PublishAttempt) error

	// InsertJob creates a fresh pending job (recurrence re-enqueue).
	InsertJob(ctx context.Context, job domain.Job) error
}

// Breaker gates publish attempts per platform.
type Breaker interface {
	Allow(plat string) error
	RecordSuccess(plat string)
	RecordFailure(plat string)
}

// RecurrenceParser computes the next occurrence of a recurrence expression.
type RecurrenceParser interface {
	Next(expression, timezone string, after time.Time) (time.Time, error)
}

// MetricsSink defines the interface for recording dispatcher metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	PublishAttemptCompleted(plat, outcome string, duration time.Duration)
	RetryAttempt(plat string)
	JobOutcome(outcome string)
	JobsInFlightIncr()
	JobsInFlightDecr()
}

type Config struct {
	// AdapterTimeout bounds each adapter invocation. Default 45s: long enough
	// for container-create-then-publish protocols with processing polling,
	// short enough to keep a job from pinning a worker.
	AdapterTimeout time.Duration

	// RetryBackoff is the pause before the second pass over platforms whose
	// first outcome was retryable (rate limited or timed out). Default: 2s.
	RetryBackoff time.Duration
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		AdapterTimeout: 45 * time.Second,
		RetryBackoff:   2 * time.Second,
	}
}

// Coordinator dispatches claimed jobs: credential resolution, concurrent
// adapter fan-out, outcome folding, terminal status write.
type Coordinator struct {
	config     Config
	store      Store
	registry   *platform.Registry
	breaker    Breaker          // optional, nil = disabled
	recurrence RecurrenceParser // optional, nil = recurring jobs not re-enqueued
	metrics    MetricsSink      // optional, nil = disabled
	clock      func() time.Time

	drainTimeout time.Duration
}

func New(config Config, store Store, registry *platform.Registry) *Coordinator {
	if config.AdapterTimeout <= 0 {
		config.AdapterTimeout = 45 * time.Second
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 2 * time.Second
	}
	return &Coordinator{
		config:       config,
		store:        store,
		registry:     registry,
		clock:        time.Now,
		drainTimeout: DefaultDrainTimeout,
	}
}

// WithBreaker attaches a circuit breaker to the coordinator.
func (c *Coordinator) WithBreaker(b Breaker) *Coordinator {
	c.breaker = b
	return c
}

// WithRecurrence attaches a recurrence parser to the coordinator.
func (c *Coordinator) WithRecurrence(p RecurrenceParser) *Coordinator {
	c.recurrence = p
	return c
}

// WithMetrics attaches a metrics sink to the coordinator.
func (c *Coordinator) WithMetrics(sink MetricsSink) *Coordinator {
	c.metrics = sink
	return c
}

// WithDrainTimeout overrides the shutdown drain timeout.
func (c *Coordinator) WithDrainTimeout(d time.Duration) *Coordinator {
	c.drainTimeout = d
	return c
}

// DefaultDrainTimeout is the maximum time one worker spends finishing
// buffered jobs during shutdown.
const DefaultDrainTimeout = 30 * time.Second

// Run consumes claimed jobs from the channel until ctx is cancelled, then
// drains remaining buffered jobs with a timeout. Meant to be run by several
// workers over the same channel; jobs are independent so no coordination is
// needed between workers.
func (c *Coordinator) Run(ctx context.Context, ch <-chan domain.Job) {
	for {
		select {
		case <-ctx.Done():
			c.drain(ch)
			return
		case job := <-ch:
			if err := c.Dispatch(ctx, job); err != nil {
				log.Printf("dispatcher: job=%s error: %v", job.ID, err)
			}
		}
	}
}

// drain processes jobs left in the channel buffer after the shutdown signal.
// Uses a background context since the main context is already cancelled.
func (c *Coordinator) drain(ch <-chan domain.Job) {
	drainCtx, cancel := context.WithTimeout(context.Background(), c.drainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			if count > 0 {
				log.Printf("dispatcher: drain timeout, processed %d jobs", count)
			}
			return
		case job, ok := <-ch:
			if !ok {
				log.Printf("dispatcher: drain complete, processed %d jobs", count)
				return
			}
			if err := c.Dispatch(drainCtx, job); err != nil {
				log.Printf("dispatcher: drain error: job=%s: %v", job.ID, err)
			}
			count++
		default:
			if count > 0 {
				log.Printf("dispatcher: drain complete, processed %d jobs", count)
			}
			return
		}
	}
}

// Dispatch processes one claimed job to its terminal status.
//
// Platform outcomes are collected independently: one platform failing, timing
// out, or hanging never blocks or aborts the others. The job ends Published
// when at least one platform succeeded, Failed only when every targeted
// platform failed. If the terminal write itself fails, the job is left
// Claimed and the recovery sweep picks it up later.
func (c *Coordinator) Dispatch(ctx context.Context, job domain.Job) error {
	if c.metrics != nil {
		c.metrics.JobsInFlightIncr()
		defer c.metrics.JobsInFlightDecr()
	}

	targets := dedupeOrdered(job.TargetPlatforms)

	outcomes := c.fanOut(ctx, job, targets, 1)

	// Second pass: one more attempt for platforms whose failure is
	// transient (rate limited, timed out). Never retries auth or
	// validation failures, and never retries within a pass.
	retry := retryablePlatforms(targets, outcomes)
	if len(retry) > 0 && ctx.Err() == nil {
		if c.waitBackoff(ctx) {
			for _, plat := range retry {
				if c.metrics != nil {
					c.metrics.RetryAttempt(plat)
				}
			}
			second := c.fanOut(ctx, job, retry, 2)
			for plat, outcome := range second {
				outcomes[plat] = outcome
			}
		}
	}

	results := foldResults(job.PerPlatformResult, outcomes)
	status := terminalStatus(outcomes)

	now := c.clock().UTC()
	if err := c.store.CompleteJob(ctx, job.ID, status, results, now); err != nil {
		if errors.Is(err, ErrTransitionDenied) {
			// Another dispatch path already finished this job (likely a
			// sweeper re-dispatch racing the original). First writer wins.
			log.Printf("dispatcher: job=%s already terminal, skipping status write", job.ID)
			return nil
		}
		// Store unavailable: the job stays Claimed and recoverable. This is
		// the one failure that must not be dropped silently.
		return fmt.Errorf("complete job: status not persisted, job left claimed: %w", err)
	}

	if c.metrics != nil {
		c.metrics.JobOutcome(string(status))
	}
	log.Printf("dispatcher: job=%s done status=%s platforms=%d", job.ID, status, len(targets))

	c.scheduleNext(ctx, job, now)
	return nil
}

// fanOut invokes the adapters for the given platforms concurrently and
// returns the outcome per platform. Credential problems and open circuits
// yield synthesized failures without a network call. attempt numbers the
// pass for the audit trail.
func (c *Coordinator) fanOut(ctx context.Context, job domain.Job, targets []string, attempt int) map[string]domain.DispatchOutcome {
	outcomes := make(map[string]domain.DispatchOutcome, len(targets))
	results := make(chan domain.DispatchOutcome, len(targets))
	inFlight := 0

	for _, plat := range targets {
		adapter, ok := c.registry.Lookup(plat)
		if !ok {
			outcome := domain.Failure(plat, domain.FailureValidation, "unsupported platform")
			outcomes[plat] = outcome
			c.recordAttempt(ctx, job, outcome, attempt, c.clock().UTC(), c.clock().UTC())
			continue
		}

		cred, err := c.store.GetCredential(ctx, job.OwnerID, plat)
		now := c.clock().UTC()
		switch {
		case errors.Is(err, ErrCredentialNotFound):
			outcome := domain.Failure(plat, domain.FailureAuthExpired, "no credential on file")
			outcomes[plat] = outcome
			c.recordAttempt(ctx, job, outcome, attempt, now, now)
			continue
		case err != nil:
			// Credential lookup failed for store reasons; surface as a
			// remote failure for this platform only.
			outcome := domain.Failure(plat, domain.FailureRemote, fmt.Sprintf("credential lookup: %v", err))
			outcomes[plat] = outcome
			c.recordAttempt(ctx, job, outcome, attempt, now, now)
			continue
		case cred.Expired(now):
			outcome := domain.Failure(plat, domain.FailureAuthExpired, "credential expired")
			outcomes[plat] = outcome
			c.recordAttempt(ctx, job, outcome, attempt, now, now)
			continue
		}

		if c.breaker != nil {
			if err := c.breaker.Allow(plat); err != nil {
				outcome := domain.Failure(plat, domain.FailureRemote, "circuit open")
				outcomes[plat] = outcome
				c.recordAttempt(ctx, job, outcome, attempt, now, now)
				continue
			}
		}

		inFlight++
		go c.invoke(ctx, job, adapter, cred, attempt, results)
	}

	for i := 0; i < inFlight; i++ {
		outcome := <-results
		outcomes[outcome.Platform] = outcome
	}

	return outcomes
}

// invoke runs one adapter call under its own deadline and reports the outcome.
func (c *Coordinator) invoke(ctx context.Context, job domain.Job, adapter platform.Adapter, cred domain.Credential, attempt int, results chan<- domain.DispatchOutcome) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.AdapterTimeout)
	defer cancel()

	started := c.clock().UTC()
	outcome := adapter.Publish(callCtx, cred, job.Content)
	finished := c.clock().UTC()

	if outcome.Platform == "" {
		outcome.Platform = adapter.Platform()
	}

	if c.breaker != nil {
		if outcome.OK {
			c.breaker.RecordSuccess(outcome.Platform)
		} else if outcome.ErrorKind != domain.FailureValidation {
			// Validation failures are the job's fault, not the platform's.
			c.breaker.RecordFailure(outcome.Platform)
		}
	}

	c.recordAttempt(ctx, job, outcome, attempt, started, finished)
	results <- outcome
}

// recordAttempt writes the audit row for one invocation; failures to record
// never affect dispatch correctness.
func (c *Coordinator) recordAttempt(ctx context.Context, job domain.Job, outcome domain.DispatchOutcome, attempt int, started, finished time.Time) {
	if c.metrics != nil {
		label := metrics.AttemptOutcomeOK
		if !outcome.OK {
			label = string(outcome.ErrorKind)
		}
		c.metrics.PublishAttemptCompleted(outcome.Platform, label, finished.Sub(started))
	}

	record := domain.PublishAttempt{
		ID:         uuid.New(),
		JobID:      job.ID,
		Platform:   outcome.Platform,
		Attempt:    attempt,
		OK:         outcome.OK,
		ExternalID: outcome.ExternalID,
		ErrorKind:  string(outcome.ErrorKind),
		Detail:     outcome.Detail,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err := c.store.InsertPublishAttempt(ctx, record); err != nil {
		log.Printf("dispatcher: failed to record attempt: job=%s platform=%s: %v", job.ID, outcome.Platform, err)
	}
}

// waitBackoff pauses before the retry pass. Reports false when ctx expired
// while waiting.
func (c *Coordinator) waitBackoff(ctx context.Context) bool {
	timer := time.NewTimer(c.config.RetryBackoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// scheduleNext inserts a fresh pending job for the next occurrence of a
// recurring job. The terminal job itself is never reopened.
func (c *Coordinator) scheduleNext(ctx context.Context, job domain.Job, now time.Time) {
	if job.Recurrence == "" {
		return
	}
	if c.recurrence == nil {
		log.Printf("dispatcher: job=%s has recurrence but no parser configured, not re-enqueued", job.ID)
		return
	}

	next, err := c.recurrence.Next(job.Recurrence, job.Timezone, now)
	if err != nil {
		log.Printf("dispatcher: job=%s invalid recurrence %q: %v", job.ID, job.Recurrence, err)
		return
	}

	successor := domain.Job{
		ID:              uuid.New(),
		OwnerID:         job.OwnerID,
		Content:         job.Content,
		TargetPlatforms: job.TargetPlatforms,
		DueAt:           next,
		Status:          domain.JobStatusPending,
		Recurrence:      job.Recurrence,
		Timezone:        job.Timezone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := c.store.InsertJob(ctx, successor); err != nil {
		log.Printf("dispatcher: job=%s failed to enqueue next occurrence: %v", job.ID, err)
		return
	}
	log.Printf("dispatcher: job=%s recurring, next occurrence job=%s due_at=%s",
		job.ID, successor.ID, next.Format(time.RFC3339))
}

// dedupeOrdered removes duplicate platforms while preserving target order.
func dedupeOrdered(platforms []string) []string {
	seen := make(map[string]struct{}, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// retryablePlatforms returns the platforms whose outcome warrants a second
// pass, in target order.
func retryablePlatforms(targets []string, outcomes map[string]domain.DispatchOutcome) []string {
	var retry []string
	for _, plat := range targets {
		outcome, ok := outcomes[plat]
		if ok && !outcome.OK && outcome.ErrorKind.Retryable() {
			retry = append(retry, plat)
		}
	}
	return retry
}

// foldResults merges outcomes into the job's existing results map.
// The map only grows: existing entries are overwritten per platform but
// never removed.
func foldResults(existing map[string]domain.PlatformResult, outcomes map[string]domain.DispatchOutcome) map[string]domain.PlatformResult {
	results := make(map[string]domain.PlatformResult, len(existing)+len(outcomes))
	for plat, r := range existing {
		results[plat] = r
	}
	for plat, outcome := range outcomes {
		results[plat] = outcome.Result()
	}
	return results
}

// terminalStatus applies the partial-success rule: Published when at least
// one platform succeeded, Failed only when every targeted platform failed.
// Zero eligible platforms means every outcome is a synthesized failure, so
// the job ends Failed.
func terminalStatus(outcomes map[string]domain.DispatchOutcome) domain.JobStatus {
	for _, outcome := range outcomes {
		if outcome.OK {
			return domain.JobStatusPublished
		}
	}
	return domain.JobStatusFailed
}

// Compile-time assertion: the shared circuit breaker satisfies Breaker.
var _ Breaker = (*circuitbreaker.CircuitBreaker)(nil)
