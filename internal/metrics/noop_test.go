package metrics

import (
	"testing"
	"time"
)

func TestNoopSink_AllMethodsSafe(t *testing.T) {
	sink := NewNoopSink()

	// Nothing to assert beyond not panicking.
	sink.TickStarted()
	sink.TickCompleted(time.Second, 5, nil)
	sink.PublishAttemptCompleted("x", AttemptOutcomeOK, time.Second)
	sink.RetryAttempt("x")
	sink.JobOutcome(OutcomePublished)
	sink.JobsInFlightIncr()
	sink.JobsInFlightDecr()
	sink.BufferSizeUpdate(1)
	sink.EmitError()
	sink.StaleJobsFound(0)
	sink.JobAbandoned()
	sink.LeaderStatusChanged(false)
}
