package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusClaimed   JobStatus = "claimed"
	JobStatusPublished JobStatus = "published"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusPublished || s == JobStatusFailed
}

// Job is a unit of content scheduled for publication to one or more platforms.
type Job struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	Content         Content
	TargetPlatforms []string

	DueAt  time.Time
	Status JobStatus

	// PerPlatformResult only grows while a job is processed. It is written
	// in the same atomic update as the terminal status.
	PerPlatformResult map[string]PlatformResult

	// Recurrence is an optional cron expression. When a recurring job reaches
	// a terminal state, a fresh pending job is inserted for the next
	// occurrence; the original job itself never leaves its terminal state.
	Recurrence string
	Timezone   string

	ClaimedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlatformResult is the persisted outcome of one platform's publish attempt.
type PlatformResult struct {
	OK         bool   `json:"ok"`
	ExternalID string `json:"external_id,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}
