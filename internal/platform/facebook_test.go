package platform

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/socailstream/social-stream-backend/internal/domain"
	"github.com/socailstream/social-stream-backend/internal/testutil"
)

func TestFacebookAdapter_PublishSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"id":"page_post_77"}`))
	}))
	defer srv.Close()

	adapter := NewFacebookAdapter(srv.Client(), srv.URL)
	outcome := adapter.Publish(testutil.TestContext(t), testCred("page-55"), domain.Content{Text: "news"})

	if !outcome.OK || outcome.ExternalID != "page_post_77" {
		t.Fatalf("outcome = %+v, want success", outcome)
	}
	if gotPath != "/page-55/feed" {
		t.Errorf("path = %q, want /page-55/feed", gotPath)
	}
}

func TestFacebookAdapter_MissingPageFailsFast(t *testing.T) {
	adapter := NewFacebookAdapter(http.DefaultClient, "http://127.0.0.1:1") // never reached

	outcome := adapter.Publish(testutil.TestContext(t), testCred(""), domain.Content{Text: "hi"})
	if outcome.ErrorKind != domain.FailureValidation {
		t.Errorf("outcome = %+v, want validation failure", outcome)
	}
}

func TestFacebookAdapter_ServerErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewFacebookAdapter(srv.Client(), srv.URL)
	outcome := adapter.Publish(testutil.TestContext(t), testCred("page-55"), domain.Content{Text: "hi"})

	if outcome.OK || outcome.ErrorKind != domain.FailureRemote {
		t.Errorf("outcome = %+v, want remote_error", outcome)
	}
}
