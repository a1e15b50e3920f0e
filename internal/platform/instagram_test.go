package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/socailstream/social-stream-backend/internal/domain"
	"github.com/socailstream/social-stream-backend/internal/testutil"
)

func TestInstagramAdapter_ImagePublish(t *testing.T) {
	var mu sync.Mutex
	var paths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/media_publish"):
			w.Write([]byte(`{"id":"ig-post-9"}`))
		case strings.HasSuffix(r.URL.Path, "/media"):
			w.Write([]byte(`{"id":"container-1"}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	adapter := NewInstagramAdapter(srv.Client(), srv.URL)
	content := domain.Content{
		Text:  "caption",
		Media: []domain.MediaRef{{URL: "https://cdn.example.com/a.jpg", Kind: domain.MediaKindImage}},
	}

	outcome := adapter.Publish(testutil.TestContext(t), testCred("ig-user-1"), content)

	if !outcome.OK || outcome.ExternalID != "ig-post-9" {
		t.Fatalf("outcome = %+v, want success", outcome)
	}

	// Images publish without a processing poll: container create, then publish.
	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[0] != "/ig-user-1/media" || paths[1] != "/ig-user-1/media_publish" {
		t.Errorf("request sequence = %v", paths)
	}
}

// TestInstagramAdapter_VideoPollsUntilFinished walks the full async video
// path: container create, status polls through IN_PROGRESS, then publish.
func TestInstagramAdapter_VideoPollsUntilFinished(t *testing.T) {
	var mu sync.Mutex
	statusPolls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			mu.Lock()
			statusPolls++
			n := statusPolls
			mu.Unlock()
			if n < 3 {
				w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
			} else {
				w.Write([]byte(`{"status_code":"FINISHED"}`))
			}
		case strings.HasSuffix(r.URL.Path, "/media_publish"):
			w.Write([]byte(`{"id":"ig-video-3"}`))
		default:
			w.Write([]byte(`{"id":"container-7"}`))
		}
	}))
	defer srv.Close()

	adapter := NewInstagramAdapter(srv.Client(), srv.URL)
	adapter.pollInterval = 5 * time.Millisecond

	content := domain.Content{
		Media: []domain.MediaRef{{URL: "https://cdn.example.com/clip.mp4", Kind: domain.MediaKindVideo}},
	}
	outcome := adapter.Publish(testutil.TestContext(t), testCred("ig-user-1"), content)

	if !outcome.OK || outcome.ExternalID != "ig-video-3" {
		t.Fatalf("outcome = %+v, want success", outcome)
	}

	mu.Lock()
	defer mu.Unlock()
	if statusPolls != 3 {
		t.Errorf("status polls = %d, want 3", statusPolls)
	}
}

func TestInstagramAdapter_ProcessingErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"status_code":"ERROR"}`))
			return
		}
		w.Write([]byte(`{"id":"container-7"}`))
	}))
	defer srv.Close()

	adapter := NewInstagramAdapter(srv.Client(), srv.URL)
	adapter.pollInterval = 5 * time.Millisecond

	content := domain.Content{
		Media: []domain.MediaRef{{URL: "https://cdn.example.com/clip.mp4", Kind: domain.MediaKindVideo}},
	}
	outcome := adapter.Publish(testutil.TestContext(t), testCred("ig-user-1"), content)

	if outcome.OK || outcome.ErrorKind != domain.FailureRemote {
		t.Errorf("outcome = %+v, want remote_error for failed processing", outcome)
	}
}

// TestInstagramAdapter_PollDeadlineIsTimeout verifies the adapter converts a
// context deadline during processing into a timeout outcome instead of
// spinning forever.
func TestInstagramAdapter_PollDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
			return
		}
		w.Write([]byte(`{"id":"container-7"}`))
	}))
	defer srv.Close()

	adapter := NewInstagramAdapter(srv.Client(), srv.URL)
	adapter.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	content := domain.Content{
		Media: []domain.MediaRef{{URL: "https://cdn.example.com/clip.mp4", Kind: domain.MediaKindVideo}},
	}
	outcome := adapter.Publish(ctx, testCred("ig-user-1"), content)

	if outcome.OK || outcome.ErrorKind != domain.FailureTimeout {
		t.Errorf("outcome = %+v, want timeout", outcome)
	}
}

func TestInstagramAdapter_TextOnlyFailsFast(t *testing.T) {
	adapter := NewInstagramAdapter(http.DefaultClient, "http://127.0.0.1:1") // never reached

	outcome := adapter.Publish(testutil.TestContext(t), testCred("ig-user-1"), domain.Content{Text: "no media"})
	if outcome.ErrorKind != domain.FailureValidation {
		t.Errorf("outcome = %+v, want validation failure", outcome)
	}
}
