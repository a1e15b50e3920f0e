// fakeplatform is a local stand-in for the platform publish APIs, useful for
// exercising a running dispatcher without real credentials. Point the adapter
// base URLs at it and every publish call lands here.
//
// Set FAIL_STATUS to force a status code on publish endpoints (e.g. 429 to
// watch the retry pass, 401 to watch auth failures).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type request struct {
	Timestamp string `json:"timestamp"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Auth      string `json:"auth,omitempty"`
	Body      string `json:"body"`
}

type stats struct {
	Count        int64     `json:"count"`
	LastRequests []request `json:"last_requests"`
	Since        string    `json:"since"`
}

var (
	mu           sync.Mutex
	count        int64
	lastRequests []request
	since        time.Time
	maxStored    = 50

	failStatus int
)

func main() {
	since = time.Now().UTC()

	addr := ":9000"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}
	if v := os.Getenv("FAIL_STATUS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid FAIL_STATUS %q", v)
		}
		failStatus = n
		log.Printf("fakeplatform: forcing status %d on publish endpoints", failStatus)
	}

	http.HandleFunc("/stats", statsHandler)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	http.HandleFunc("/reset", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		count = 0
		lastRequests = nil
		since = time.Now().UTC()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "reset")
	})
	http.HandleFunc("/", publishHandler)

	log.Printf("fakeplatform listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

// publishHandler accepts any publish-shaped call and answers the way the
// matching platform endpoint would.
func publishHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	current := record(r, body)
	log.Printf("publish #%d: %s %s %s", current, r.Method, r.URL.Path, string(body))

	// Container status poll (GET /{container}?fields=status_code).
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status_code":"FINISHED","id":"container-%d"}`, current)
		return
	}

	if failStatus != 0 {
		w.WriteHeader(failStatus)
		fmt.Fprintf(w, `{"error":{"message":"forced failure %d"}}`, failStatus)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/2/tweets":
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"data":{"id":"tweet-%d"}}`, current)
	case r.URL.Path == "/rest/posts":
		fmt.Fprintf(w, `{"id":"urn:li:share:%d"}`, current)
	case strings.HasSuffix(r.URL.Path, "/media_publish"):
		fmt.Fprintf(w, `{"id":"ig-post-%d"}`, current)
	case strings.HasSuffix(r.URL.Path, "/media"):
		fmt.Fprintf(w, `{"id":"container-%d"}`, current)
	default:
		// Facebook page feed or anything else publish-shaped.
		fmt.Fprintf(w, `{"id":"post-%d"}`, current)
	}
}

func record(r *http.Request, body []byte) int64 {
	req := request{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Method:    r.Method,
		Path:      r.URL.Path,
		Auth:      r.Header.Get("Authorization"),
		Body:      string(body),
	}

	mu.Lock()
	count++
	lastRequests = append(lastRequests, req)
	if len(lastRequests) > maxStored {
		lastRequests = lastRequests[len(lastRequests)-maxStored:]
	}
	current := count
	mu.Unlock()
	return current
}

func statsHandler(w http.ResponseWriter, _ *http.Request) {
	mu.Lock()
	s := stats{
		Count:        count,
		LastRequests: lastRequests,
		Since:        since.Format(time.RFC3339),
	}
	mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}
