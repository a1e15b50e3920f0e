package domain

import "testing"

func TestFailureKind_Retryable(t *testing.T) {
	tests := []struct {
		kind      FailureKind
		retryable bool
	}{
		{FailureAuthExpired, false},
		{FailureValidation, false},
		{FailureRateLimited, true},
		{FailureRemote, false},
		{FailureTimeout, true},
	}

	for _, tt := range tests {
		if got := tt.kind.Retryable(); got != tt.retryable {
			t.Errorf("%s.Retryable() = %v, want %v", tt.kind, got, tt.retryable)
		}
	}
}

func TestDispatchOutcome_Result_Success(t *testing.T) {
	outcome := Success("x", "tweet-123")

	result := outcome.Result()
	if !result.OK {
		t.Error("result should be OK")
	}
	if result.ExternalID != "tweet-123" {
		t.Errorf("external id = %q, want tweet-123", result.ExternalID)
	}
	if result.ErrorKind != "" || result.Error != "" {
		t.Error("successful result should carry no error fields")
	}
}

func TestDispatchOutcome_Result_Failure(t *testing.T) {
	outcome := Failure("linkedin", FailureRateLimited, "429 from platform")

	result := outcome.Result()
	if result.OK {
		t.Error("result should not be OK")
	}
	if result.ErrorKind != string(FailureRateLimited) {
		t.Errorf("error kind = %q, want %q", result.ErrorKind, FailureRateLimited)
	}
	if result.Error != "429 from platform" {
		t.Errorf("error = %q, want detail preserved", result.Error)
	}
	if result.ExternalID != "" {
		t.Error("failed result should carry no external id")
	}
}
