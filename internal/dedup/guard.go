// Package dedup provides a namespaced, time-bounded idempotency guard.
//
// A Guard records keys at most once within a retention window. Duplicate
// arrivals inside the window are no-ops that report "already seen". Keys are
// partitioned by namespace so unrelated callers (job submission, OAuth
// callbacks) share one guard without colliding.
package dedup

import (
	"context"
	"log"
	"sync"
	"time"
)

// Guard records keys at most once within a retention window.
type Guard interface {
	// MarkIfUnseen atomically records namespace:key and reports whether it
	// was newly recorded. Safe under concurrent calls with the same key:
	// exactly one caller observes true.
	MarkIfUnseen(ctx context.Context, namespace, key string) (bool, error)
}

// MemoryGuard is an in-process Guard backed by an expiring map.
// Suitable for single-instance deployments; multi-instance deployments
// should use RedisGuard so duplicates are caught across processes.
type MemoryGuard struct {
	mu        sync.Mutex
	seen      map[string]time.Time // key -> expiry
	retention time.Duration
	clock     func() time.Time
}

// NewMemoryGuard creates a MemoryGuard with the given retention window.
func NewMemoryGuard(retention time.Duration) *MemoryGuard {
	return &MemoryGuard{
		seen:      make(map[string]time.Time),
		retention: retention,
		clock:     time.Now,
	}
}

// MarkIfUnseen implements Guard.
func (g *MemoryGuard) MarkIfUnseen(ctx context.Context, namespace, key string) (bool, error) {
	k := namespace + ":" + key

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	if expiry, ok := g.seen[k]; ok && now.Before(expiry) {
		return false, nil
	}
	g.seen[k] = now.Add(g.retention)
	return true, nil
}

// Run prunes expired keys until ctx is cancelled. The prune interval is half
// the retention window so memory stays bounded by roughly one window of keys.
func (g *MemoryGuard) Run(ctx context.Context) {
	interval := g.retention / 2
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := g.prune(); pruned > 0 {
				log.Printf("dedup: pruned %d expired keys", pruned)
			}
		}
	}
}

func (g *MemoryGuard) prune() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	pruned := 0
	for k, expiry := range g.seen {
		if !now.Before(expiry) {
			delete(g.seen, k)
			pruned++
		}
	}
	return pruned
}

// size returns the current number of tracked keys. Test hook.
func (g *MemoryGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
