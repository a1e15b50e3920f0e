package domain

import (
	"time"

	"github.com/google/uuid"
)

// PublishAttempt records a single adapter invocation for auditing, including
// synthesized failures that never reached the network.
type PublishAttempt struct {
	ID       uuid.UUID
	JobID    uuid.UUID
	Platform string
	Attempt  int

	OK         bool
	ExternalID string
	ErrorKind  string
	Detail     string

	StartedAt  time.Time
	FinishedAt time.Time
}
