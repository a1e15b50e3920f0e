package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

// maxResponseBody caps how much of a platform response is read (1MB).
const maxResponseBody = 1 << 20

// doJSON sends a JSON request with a bearer token and decodes the JSON
// response body into out (when out is non-nil and the body is non-empty).
// Returns the HTTP status code; transport errors are returned as-is for
// classification.
func doJSON(ctx context.Context, client *http.Client, method, url, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if out != nil && len(data) > 0 {
		// Tolerate non-JSON error bodies; the status code drives classification.
		_ = json.Unmarshal(data, out)
	}

	return resp.StatusCode, nil
}

// classify maps an HTTP status code or transport error to a failure kind.
func classify(statusCode int, err error) domain.FailureKind {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.FailureTimeout
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return domain.FailureTimeout
		}
		return domain.FailureRemote
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domain.FailureAuthExpired
	case statusCode == http.StatusTooManyRequests:
		return domain.FailureRateLimited
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return domain.FailureValidation
	default:
		return domain.FailureRemote
	}
}

// succeeded reports whether the call completed with a 2xx status.
func succeeded(statusCode int, err error) bool {
	return err == nil && statusCode >= 200 && statusCode < 300
}

// remoteFailure builds the failed outcome for a completed-but-unsuccessful call.
func remoteFailure(platform string, statusCode int, err error) domain.DispatchOutcome {
	kind := classify(statusCode, err)
	detail := fmt.Sprintf("status %d", statusCode)
	if err != nil {
		detail = err.Error()
	}
	return domain.Failure(platform, kind, detail)
}
