package platform

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/socailstream/social-stream-backend/internal/domain"
	"github.com/socailstream/social-stream-backend/internal/testutil"
)

func TestLinkedInAdapter_PublishSuccess(t *testing.T) {
	var gotBody linkedInPostRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/posts" {
			t.Errorf("path = %q, want /rest/posts", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"urn:li:share:99"}`))
	}))
	defer srv.Close()

	adapter := NewLinkedInAdapter(srv.Client(), srv.URL)
	content := domain.Content{Text: "announcement", LinkURL: "https://example.com/blog"}

	outcome := adapter.Publish(testutil.TestContext(t), testCred("urn:li:person:123"), content)

	if !outcome.OK || outcome.ExternalID != "urn:li:share:99" {
		t.Fatalf("outcome = %+v, want success with share urn", outcome)
	}
	if gotBody.Author != "urn:li:person:123" {
		t.Errorf("author = %q, want routing target", gotBody.Author)
	}
	if gotBody.Article == nil || gotBody.Article.Source != "https://example.com/blog" {
		t.Error("link should be carried as an article")
	}
}

// TestLinkedInAdapter_VideoFailsFast verifies the unsupported-media rule is
// enforced before any network call.
func TestLinkedInAdapter_VideoFailsFast(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	adapter := NewLinkedInAdapter(srv.Client(), srv.URL)
	content := domain.Content{
		Text:  "demo",
		Media: []domain.MediaRef{{URL: "https://cdn.example.com/clip.mp4", Kind: domain.MediaKindVideo}},
	}

	outcome := adapter.Publish(testutil.TestContext(t), testCred("urn:li:person:123"), content)

	if outcome.OK || outcome.ErrorKind != domain.FailureValidation {
		t.Errorf("outcome = %+v, want validation failure", outcome)
	}
	if called {
		t.Error("video rejection must not hit the network")
	}
}

func TestLinkedInAdapter_MissingAuthorFailsFast(t *testing.T) {
	adapter := NewLinkedInAdapter(http.DefaultClient, "http://127.0.0.1:1") // never reached

	outcome := adapter.Publish(testutil.TestContext(t), testCred(""), domain.Content{Text: "hi"})
	if outcome.ErrorKind != domain.FailureValidation {
		t.Errorf("outcome = %+v, want validation failure", outcome)
	}
}
