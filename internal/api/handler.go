// Package api exposes the HTTP surface for managing publish jobs and
// platform credentials.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/socailstream/social-stream-backend/internal/dedup"
	"github.com/socailstream/social-stream-backend/internal/domain"
)

// Pagination defaults and limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Store interface {
	InsertJob(ctx context.Context, job domain.Job) error
	GetJob(ctx context.Context, jobID uuid.UUID) (domain.Job, error)
	ListJobs(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Job, error)
	UpsertCredential(ctx context.Context, cred domain.Credential) error
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	store     Store
	platforms map[string]bool
	guard     dedup.Guard // optional, nil = idempotency keys ignored
	db        HealthChecker
	clock     func() time.Time
}

// NewHandler creates a Handler accepting jobs targeting the given platforms.
func NewHandler(store Store, platforms []string) *Handler {
	known := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		known[p] = true
	}
	return &Handler{store: store, platforms: known, clock: time.Now}
}

// WithIdempotencyGuard enables Idempotency-Key handling on job submission.
func (h *Handler) WithIdempotencyGuard(guard dedup.Guard) *Handler {
	h.guard = guard
	return h
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case path == "/jobs" && r.Method == http.MethodPost:
		h.createJob(w, r)

	case path == "/jobs" && r.Method == http.MethodGet:
		h.listJobs(w, r)

	case strings.HasPrefix(path, "/jobs/") && r.Method == http.MethodGet:
		h.getJob(w, r)

	case path == "/credentials" && r.Method == http.MethodPost:
		h.upsertCredential(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateCreateJob(req, h.platforms); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A retried submission with the same key must not create a second job.
	if key := r.Header.Get("Idempotency-Key"); key != "" && h.guard != nil {
		fresh, err := h.guard.MarkIfUnseen(r.Context(), "jobs", key)
		if err != nil {
			log.Printf("api: idempotency check error: %v", err)
			writeError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}
		if !fresh {
			writeError(w, http.StatusConflict, "duplicate submission")
			return
		}
	}

	now := h.clock().UTC()

	dueAt := now
	if req.DueAt != "" {
		parsed, _ := time.Parse(time.RFC3339, req.DueAt) // validated above
		dueAt = parsed.UTC()
	}

	media := make([]domain.MediaRef, len(req.Media))
	for i, m := range req.Media {
		media[i] = domain.MediaRef{URL: m.URL, Kind: domain.MediaKind(m.Kind)}
	}
	if len(media) == 0 {
		media = nil
	}

	ownerID, _ := uuid.Parse(req.OwnerID) // validated above

	job := domain.Job{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Content: domain.Content{
			Text:    req.Text,
			Media:   media,
			LinkURL: req.LinkURL,
		},
		TargetPlatforms: dedupeOrdered(req.TargetPlatforms),
		DueAt:           dueAt,
		Status:          domain.JobStatusPending,
		Recurrence:      req.Recurrence,
		Timezone:        req.Timezone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.store.InsertJob(r.Context(), job); err != nil {
		log.Printf("api: create job error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	writeJSON(w, http.StatusCreated, jobToResponse(job))
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner_id")
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := h.store.ListJobs(r.Context(), ownerID, limit, offset)
	if err != nil {
		log.Printf("api: list jobs error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, len(jobs))}
	for i, job := range jobs {
		resp.Jobs[i] = jobToResponse(job)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	// Extract job ID from path: /jobs/{id}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[0] != "jobs" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	jobID, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Printf("api: get job error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, jobToResponse(job))
}

func (h *Handler) upsertCredential(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req UpsertCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateUpsertCredential(req, h.platforms); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ownerID, _ := uuid.Parse(req.OwnerID) // validated above
	now := h.clock().UTC()

	cred := domain.Credential{
		OwnerID:       ownerID,
		Platform:      req.Platform,
		AccessToken:   req.AccessToken,
		RoutingTarget: req.RoutingTarget,
		UpdatedAt:     now,
	}
	if req.ExpiresAt != "" {
		parsed, _ := time.Parse(time.RFC3339, req.ExpiresAt) // validated above
		cred.ExpiresAt = parsed.UTC()
	}

	if err := h.store.UpsertCredential(r.Context(), cred); err != nil {
		log.Printf("api: upsert credential error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}

	resp := CredentialResponse{
		OwnerID:       cred.OwnerID.String(),
		Platform:      cred.Platform,
		RoutingTarget: cred.RoutingTarget,
		UpdatedAt:     formatTime(cred.UpdatedAt),
	}
	if !cred.ExpiresAt.IsZero() {
		resp.ExpiresAt = formatTime(cred.ExpiresAt)
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// dedupeOrdered removes duplicate platform names, keeping first occurrence order.
func dedupeOrdered(platforms []string) []string {
	seen := make(map[string]bool, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// parsePagination extracts and validates limit/offset query parameters.
// Returns DefaultLimit if limit is not specified, and 0 for offset if not specified.
// Returns an error if limit exceeds MaxLimit or if values are negative/invalid.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = DefaultLimit
	offset = 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
		if limit < 0 {
			return 0, 0, strconv.ErrRange
		}
		if limit > MaxLimit {
			return 0, 0, &limitExceededError{max: MaxLimit}
		}
		if limit == 0 {
			limit = DefaultLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
		if offset < 0 {
			return 0, 0, strconv.ErrRange
		}
	}

	return limit, offset, nil
}

type limitExceededError struct {
	max int
}

func (e *limitExceededError) Error() string {
	return "limit exceeds maximum of " + strconv.Itoa(e.max)
}
