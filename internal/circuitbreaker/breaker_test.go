package circuitbreaker

import (
	"testing"
	"time"

	"github.com/socailstream/social-stream-backend/internal/testutil"
)

func TestCircuitBreaker_ClosedAllowsAttempts(t *testing.T) {
	cb := New(3, time.Minute)

	if err := cb.Allow("x"); err != nil {
		t.Errorf("closed circuit should allow attempts, got %v", err)
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := New(3, time.Minute)

	cb.RecordFailure("x")
	cb.RecordFailure("x")
	if err := cb.Allow("x"); err != nil {
		t.Fatalf("circuit should stay closed below threshold, got %v", err)
	}

	cb.RecordFailure("x")
	if err := cb.Allow("x"); err != ErrCircuitOpen {
		t.Errorf("circuit should open at threshold, got %v", err)
	}
}

func TestCircuitBreaker_PlatformsAreIsolated(t *testing.T) {
	cb := New(2, time.Minute)

	cb.RecordFailure("x")
	cb.RecordFailure("x")

	if err := cb.Allow("x"); err != ErrCircuitOpen {
		t.Error("x circuit should be open")
	}
	if err := cb.Allow("linkedin"); err != nil {
		t.Errorf("linkedin circuit should be unaffected, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(3, time.Minute)

	cb.RecordFailure("x")
	cb.RecordFailure("x")
	cb.RecordSuccess("x")
	cb.RecordFailure("x")
	cb.RecordFailure("x")

	if err := cb.Allow("x"); err != nil {
		t.Errorf("failure count should reset on success, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cb := New(1, time.Minute)
	cb.clock = clock.Now

	cb.RecordFailure("x")
	if err := cb.Allow("x"); err != ErrCircuitOpen {
		t.Fatal("circuit should be open")
	}

	clock.Advance(time.Minute)

	if err := cb.Allow("x"); err != nil {
		t.Fatalf("cooldown elapsed, probe should be admitted, got %v", err)
	}
	if err := cb.Allow("x"); err != ErrCircuitOpen {
		t.Error("second attempt should be rejected while the probe is in flight")
	}
}

func TestCircuitBreaker_SuccessfulProbeCloses(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cb := New(1, time.Minute)
	cb.clock = clock.Now

	cb.RecordFailure("x")
	clock.Advance(time.Minute)

	if err := cb.Allow("x"); err != nil {
		t.Fatalf("probe should be admitted, got %v", err)
	}
	cb.RecordSuccess("x")

	if err := cb.Allow("x"); err != nil {
		t.Errorf("circuit should close after a successful probe, got %v", err)
	}
	if err := cb.Allow("x"); err != nil {
		t.Errorf("closed circuit should allow repeated attempts, got %v", err)
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cb := New(5, time.Minute)
	cb.clock = clock.Now

	for i := 0; i < 5; i++ {
		cb.RecordFailure("x")
	}
	clock.Advance(time.Minute)

	if err := cb.Allow("x"); err != nil {
		t.Fatalf("probe should be admitted, got %v", err)
	}
	cb.RecordFailure("x")

	// One failed probe reopens immediately; no second cooldown shortcut.
	if err := cb.Allow("x"); err != ErrCircuitOpen {
		t.Errorf("circuit should reopen after a failed probe, got %v", err)
	}

	clock.Advance(time.Minute)
	if err := cb.Allow("x"); err != nil {
		t.Errorf("next cooldown should admit another probe, got %v", err)
	}
}
