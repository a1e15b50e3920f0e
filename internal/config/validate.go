package config

import (
	"fmt"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	// DATABASE_URL is required
	if cfg.DatabaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "DATABASE_URL",
			Message: "required",
		})
	}

	durations := []struct {
		field string
		raw   string
	}{
		{"TICK_INTERVAL", cfg.TickIntervalStr},
		{"ADAPTER_TIMEOUT", cfg.AdapterTimeoutStr},
		{"RETRY_BACKOFF", cfg.RetryBackoffStr},
		{"DB_OP_TIMEOUT", cfg.DBOpTimeoutStr},
		{"DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetimeStr},
		{"DB_CONN_MAX_IDLE_TIME", cfg.DBConnMaxIdleTimeStr},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr},
		{"DRAIN_TIMEOUT", cfg.DrainTimeoutStr},
		{"SWEEP_INTERVAL", cfg.SweepIntervalStr},
		{"SWEEP_GRACE", cfg.SweepGraceStr},
		{"SWEEP_ABANDON_AFTER", cfg.SweepAbandonAfterStr},
		{"DEDUP_RETENTION", cfg.DedupRetentionStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
		{"LEADER_RETRY_INTERVAL", cfg.LeaderRetryIntervalStr},
		{"LEADER_HEARTBEAT_INTERVAL", cfg.LeaderHeartbeatIntervalStr},
	}
	for _, dur := range durations {
		if dur.raw == "" {
			continue
		}
		d, err := time.ParseDuration(dur.raw)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   dur.field,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   dur.field,
				Message: "must be positive",
			})
		}
	}

	// A grace shorter than two adapter passes plus backoff lets the sweeper
	// re-dispatch a job the original dispatcher is still working on.
	if cfg.SweepGrace > 0 && cfg.AdapterTimeout > 0 {
		minGrace := 2*cfg.AdapterTimeout + cfg.RetryBackoff
		if cfg.SweepGrace < minGrace {
			errs = append(errs, ValidationError{
				Field:   "SWEEP_GRACE",
				Message: fmt.Sprintf("must be at least 2*ADAPTER_TIMEOUT + RETRY_BACKOFF (%s), got %s", minGrace, cfg.SweepGrace),
			})
		}
	}

	if cfg.SweepAbandonAfter > 0 && cfg.SweepGrace > 0 && cfg.SweepAbandonAfter < cfg.SweepGrace {
		errs = append(errs, ValidationError{
			Field:   "SWEEP_ABANDON_AFTER",
			Message: fmt.Sprintf("must not be shorter than SWEEP_GRACE (%s), got %s", cfg.SweepGrace, cfg.SweepAbandonAfter),
		})
	}

	if cfg.LeaderElectionEnabled && cfg.LeaderLockKey <= 0 {
		errs = append(errs, ValidationError{
			Field:   "LEADER_LOCK_KEY",
			Message: "must be a positive integer",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
