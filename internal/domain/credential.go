package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential is read-only to the dispatch core. Acquisition and refresh are
// handled by the OAuth glue outside this subsystem.
type Credential struct {
	OwnerID     uuid.UUID
	Platform    string
	AccessToken string
	ExpiresAt   time.Time

	// RoutingTarget is platform-specific routing data, e.g. a page or
	// board identifier the content should be published under.
	RoutingTarget string

	UpdatedAt time.Time
}

// Expired reports whether the credential is past its expiry at the given time.
// A zero ExpiresAt means the token does not expire.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
