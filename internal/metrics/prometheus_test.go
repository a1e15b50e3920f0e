package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func exercise(s Sink) {
	s.TickStarted()
	s.TickCompleted(120*time.Millisecond, 3, nil)
	s.TickCompleted(50*time.Millisecond, 0, errors.New("db down"))
	s.PublishAttemptCompleted("x", AttemptOutcomeOK, 300*time.Millisecond)
	s.PublishAttemptCompleted("linkedin", "rate_limited", 80*time.Millisecond)
	s.RetryAttempt("linkedin")
	s.JobOutcome(OutcomePublished)
	s.JobOutcome(OutcomeFailed)
	s.JobsInFlightIncr()
	s.JobsInFlightDecr()
	s.BufferSizeUpdate(4)
	s.EmitError()
	s.StaleJobsFound(2)
	s.JobAbandoned()
	s.LeaderStatusChanged(true)
	s.LeaderStatusChanged(false)
}

func TestPrometheusSink_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	exercise(sink)

	if got := testutil.ToFloat64(sink.ticksTotal); got != 1 {
		t.Errorf("ticks total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.tickErrorsTotal); got != 1 {
		t.Errorf("tick errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.jobsClaimedTotal); got != 3 {
		t.Errorf("jobs claimed = %v, want 3", got)
	}
	if got := testutil.ToFloat64(sink.publishAttemptsTotal.WithLabelValues("linkedin", "rate_limited")); got != 1 {
		t.Errorf("linkedin rate_limited attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.retryAttemptsTotal.WithLabelValues("linkedin")); got != 1 {
		t.Errorf("linkedin retries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.jobOutcomesTotal.WithLabelValues(OutcomePublished)); got != 1 {
		t.Errorf("published outcomes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.jobsInFlight); got != 0 {
		t.Errorf("jobs in flight = %v, want 0 after incr+decr", got)
	}
	if got := testutil.ToFloat64(sink.bufferSize); got != 4 {
		t.Errorf("buffer size = %v, want 4", got)
	}
	if got := testutil.ToFloat64(sink.abandonedJobsTotal); got != 1 {
		t.Errorf("abandoned jobs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.leaderStatus); got != 0 {
		t.Errorf("leader status = %v, want 0 after demotion", got)
	}
}

func TestPrometheusSink_MetricNamesPrefixed(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	exercise(sink)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families registered")
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "socialstream_") {
			t.Errorf("metric %q missing socialstream_ prefix", mf.GetName())
		}
	}
}

// TestPrometheusSink_DuplicateRegistrationDoesNotPanic mirrors the
// fire-and-forget contract: registering against a registry that already has
// the collectors only logs.
func TestPrometheusSink_DuplicateRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusSink(reg)
	sink := NewPrometheusSink(reg) // every registration fails

	exercise(sink) // must still be safe to call
}
