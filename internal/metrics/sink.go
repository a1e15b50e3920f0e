package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate
// errors. If the metrics backend is unavailable, implementations log warnings
// and continue.
type Sink interface {
	// Scheduler metrics
	TickStarted()
	TickCompleted(duration time.Duration, jobsClaimed int, err error)

	// Dispatcher metrics
	PublishAttemptCompleted(platform, outcome string, duration time.Duration)
	RetryAttempt(platform string)
	JobOutcome(outcome string)
	JobsInFlightIncr()
	JobsInFlightDecr()

	// Dispatch bus metrics
	BufferSizeUpdate(size int)
	EmitError()

	// Sweeper metrics
	StaleJobsFound(count int)
	JobAbandoned()

	// Leader election metrics
	LeaderStatusChanged(isLeader bool)
}

// Outcome constants for JobOutcome.
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
)

// AttemptOutcomeOK is the attempt outcome label for a successful publish;
// failed attempts are labeled with their failure kind.
const AttemptOutcomeOK = "ok"
