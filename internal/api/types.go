package api

import (
	"time"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

type CreateJobRequest struct {
	OwnerID         string         `json:"owner_id"`
	Text            string         `json:"text"`
	LinkURL         string         `json:"link_url,omitempty"`
	Media           []MediaRequest `json:"media,omitempty"`
	TargetPlatforms []string       `json:"target_platforms"`
	DueAt           string         `json:"due_at"` // RFC3339; empty means publish as soon as possible
	Recurrence      string         `json:"recurrence,omitempty"`
	Timezone        string         `json:"timezone,omitempty"`
}

type MediaRequest struct {
	URL  string `json:"url"`
	Kind string `json:"kind"` // "image" or "video"
}

type UpsertCredentialRequest struct {
	OwnerID       string `json:"owner_id"`
	Platform      string `json:"platform"`
	AccessToken   string `json:"access_token"`
	ExpiresAt     string `json:"expires_at,omitempty"` // RFC3339; empty means no expiry
	RoutingTarget string `json:"routing_target,omitempty"`
}

type JobResponse struct {
	ID              string                           `json:"id"`
	OwnerID         string                           `json:"owner_id"`
	Text            string                           `json:"text"`
	LinkURL         string                           `json:"link_url,omitempty"`
	Media           []MediaRequest                   `json:"media,omitempty"`
	TargetPlatforms []string                         `json:"target_platforms"`
	DueAt           string                           `json:"due_at"`
	Status          string                           `json:"status"`
	Results         map[string]domain.PlatformResult `json:"per_platform_result,omitempty"`
	Recurrence      string                           `json:"recurrence,omitempty"`
	Timezone        string                           `json:"timezone,omitempty"`
	CreatedAt       string                           `json:"created_at"`
	UpdatedAt       string                           `json:"updated_at"`
}

type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type CredentialResponse struct {
	OwnerID       string `json:"owner_id"`
	Platform      string `json:"platform"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	RoutingTarget string `json:"routing_target,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func jobToResponse(job domain.Job) JobResponse {
	media := make([]MediaRequest, len(job.Content.Media))
	for i, m := range job.Content.Media {
		media[i] = MediaRequest{URL: m.URL, Kind: string(m.Kind)}
	}
	if len(media) == 0 {
		media = nil
	}
	return JobResponse{
		ID:              job.ID.String(),
		OwnerID:         job.OwnerID.String(),
		Text:            job.Content.Text,
		LinkURL:         job.Content.LinkURL,
		Media:           media,
		TargetPlatforms: job.TargetPlatforms,
		DueAt:           formatTime(job.DueAt),
		Status:          string(job.Status),
		Results:         job.PerPlatformResult,
		Recurrence:      job.Recurrence,
		Timezone:        job.Timezone,
		CreatedAt:       formatTime(job.CreatedAt),
		UpdatedAt:       formatTime(job.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
