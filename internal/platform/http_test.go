package platform

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o timeout" }
func (timeoutError) Timeout() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   domain.FailureKind
	}{
		{"deadline exceeded", 0, context.DeadlineExceeded, domain.FailureTimeout},
		{"context cancelled", 0, context.Canceled, domain.FailureTimeout},
		{"net timeout", 0, timeoutError{}, domain.FailureTimeout},
		{"connection refused", 0, errors.New("connection refused"), domain.FailureRemote},
		{"unauthorized", http.StatusUnauthorized, nil, domain.FailureAuthExpired},
		{"forbidden", http.StatusForbidden, nil, domain.FailureAuthExpired},
		{"rate limited", http.StatusTooManyRequests, nil, domain.FailureRateLimited},
		{"bad request", http.StatusBadRequest, nil, domain.FailureValidation},
		{"unprocessable", http.StatusUnprocessableEntity, nil, domain.FailureValidation},
		{"server error", http.StatusInternalServerError, nil, domain.FailureRemote},
		{"bad gateway", http.StatusBadGateway, nil, domain.FailureRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.status, tt.err); got != tt.want {
				t.Errorf("classify(%d, %v) = %s, want %s", tt.status, tt.err, got, tt.want)
			}
		})
	}
}

func TestSucceeded(t *testing.T) {
	if !succeeded(http.StatusOK, nil) || !succeeded(http.StatusCreated, nil) {
		t.Error("2xx without error should succeed")
	}
	if succeeded(http.StatusOK, errors.New("read failed")) {
		t.Error("an error should never count as success")
	}
	if succeeded(http.StatusTooManyRequests, nil) {
		t.Error("429 should not count as success")
	}
}
