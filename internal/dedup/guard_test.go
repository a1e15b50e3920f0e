package dedup

import (
	"sync"
	"testing"
	"time"

	"github.com/socailstream/social-stream-backend/internal/testutil"
)

func TestMemoryGuard_FirstSeenWins(t *testing.T) {
	guard := NewMemoryGuard(5 * time.Minute)
	ctx := testutil.TestContext(t)

	fresh, err := guard.MarkIfUnseen(ctx, "jobs", "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fresh {
		t.Error("first mark should report fresh")
	}

	fresh, err = guard.MarkIfUnseen(ctx, "jobs", "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh {
		t.Error("second mark of same key should report already seen")
	}
}

func TestMemoryGuard_NamespacesDoNotCollide(t *testing.T) {
	guard := NewMemoryGuard(5 * time.Minute)
	ctx := testutil.TestContext(t)

	if fresh, _ := guard.MarkIfUnseen(ctx, "jobs", "key-1"); !fresh {
		t.Fatal("first mark in jobs namespace should be fresh")
	}
	if fresh, _ := guard.MarkIfUnseen(ctx, "credentials", "key-1"); !fresh {
		t.Error("same key in a different namespace should be fresh")
	}
}

// TestMemoryGuard_ConcurrentSameKey verifies the core guarantee: under
// concurrent marking of one key, exactly one caller observes fresh.
func TestMemoryGuard_ConcurrentSameKey(t *testing.T) {
	guard := NewMemoryGuard(5 * time.Minute)
	ctx := testutil.TestContext(t)

	const goroutines = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	freshCount := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, err := guard.MarkIfUnseen(ctx, "jobs", "contested")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if fresh {
				mu.Lock()
				freshCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if freshCount != 1 {
		t.Errorf("fresh count = %d, want exactly 1", freshCount)
	}
}

func TestMemoryGuard_KeyExpiresAfterRetention(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	guard := NewMemoryGuard(5 * time.Minute)
	guard.clock = clock.Now
	ctx := testutil.TestContext(t)

	if fresh, _ := guard.MarkIfUnseen(ctx, "jobs", "key-1"); !fresh {
		t.Fatal("first mark should be fresh")
	}

	clock.Advance(4 * time.Minute)
	if fresh, _ := guard.MarkIfUnseen(ctx, "jobs", "key-1"); fresh {
		t.Error("mark inside the retention window should be a duplicate")
	}

	clock.Advance(2 * time.Minute)
	if fresh, _ := guard.MarkIfUnseen(ctx, "jobs", "key-1"); !fresh {
		t.Error("mark after the retention window should be fresh again")
	}
}

func TestMemoryGuard_PruneRemovesExpiredKeys(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	guard := NewMemoryGuard(5 * time.Minute)
	guard.clock = clock.Now
	ctx := testutil.TestContext(t)

	guard.MarkIfUnseen(ctx, "jobs", "old")
	clock.Advance(3 * time.Minute)
	guard.MarkIfUnseen(ctx, "jobs", "recent")

	if guard.size() != 2 {
		t.Fatalf("size = %d, want 2", guard.size())
	}

	// "old" is past retention, "recent" is not.
	clock.Advance(3 * time.Minute)
	guard.prune()

	if guard.size() != 1 {
		t.Errorf("size after prune = %d, want 1", guard.size())
	}
	if fresh, _ := guard.MarkIfUnseen(ctx, "jobs", "recent"); fresh {
		t.Error("unexpired key should survive the prune")
	}
}
