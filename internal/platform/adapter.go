// Package platform contains the per-platform publish adapters.
//
// An adapter turns generic post content into one platform-specific publish
// call and normalizes the result. Adapters never retry internally: a success
// return means exactly one externally visible post was created, and retry
// policy belongs to the dispatch coordinator.
package platform

import (
	"context"
	"sort"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

// Platform identifiers accepted in a job's target list.
const (
	PlatformX         = "x"
	PlatformLinkedIn  = "linkedin"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

// Adapter publishes content to a single destination platform.
//
// Publish must honor ctx cancellation and its deadline; an expired deadline
// is reported as a Timeout outcome, never as a panic or a leaked call.
type Adapter interface {
	Platform() string
	Publish(ctx context.Context, cred domain.Credential, content domain.Content) domain.DispatchOutcome
}

// Registry maps platform identifiers to adapters.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// Lookup returns the adapter for a platform identifier.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Platforms returns the registered platform identifiers, sorted.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
