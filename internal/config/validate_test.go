package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		DatabaseURL:       "postgres://localhost/socialstream",
		TickIntervalStr:   "60s",
		AdapterTimeoutStr: "45s",
		AdapterTimeout:    45 * time.Second,
		RetryBackoff:      2 * time.Second,
		SweepGraceStr:     "10m",
		SweepGrace:        10 * time.Minute,
		SweepAbandonAfter: time.Hour,
	}
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestValidate_RequiresDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("expected DATABASE_URL error, got %v", err)
	}
}

func TestValidate_InvalidDuration(t *testing.T) {
	cfg := validConfig()
	cfg.TickIntervalStr = "soonish"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "TICK_INTERVAL") {
		t.Errorf("expected TICK_INTERVAL error, got %v", err)
	}
}

func TestValidate_NegativeDuration(t *testing.T) {
	cfg := validConfig()
	cfg.SweepGraceStr = "-5m"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "SWEEP_GRACE") {
		t.Errorf("expected SWEEP_GRACE error, got %v", err)
	}
}

// TestValidate_GraceBelowDispatchCeiling covers the double-publish guard: a
// sweep grace shorter than two adapter passes plus backoff is rejected.
func TestValidate_GraceBelowDispatchCeiling(t *testing.T) {
	cfg := validConfig()
	cfg.SweepGraceStr = "1m"
	cfg.SweepGrace = time.Minute

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "SWEEP_GRACE") {
		t.Errorf("expected SWEEP_GRACE floor error, got %v", err)
	}
}

func TestValidate_AbandonShorterThanGrace(t *testing.T) {
	cfg := validConfig()
	cfg.SweepAbandonAfter = time.Minute

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "SWEEP_ABANDON_AFTER") {
		t.Errorf("expected SWEEP_ABANDON_AFTER error, got %v", err)
	}
}

func TestValidate_LeaderLockKey(t *testing.T) {
	cfg := validConfig()
	cfg.LeaderElectionEnabled = true
	cfg.LeaderLockKey = 0

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "LEADER_LOCK_KEY") {
		t.Errorf("expected LEADER_LOCK_KEY error, got %v", err)
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	cfg.TickIntervalStr = "bad"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Errorf("errors = %d, want 2: %v", len(errs), errs)
	}
}
