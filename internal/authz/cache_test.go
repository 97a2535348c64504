package authz

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingChecker struct {
	calls   atomic.Int64
	granted bool
}

func (c *countingChecker) CheckGuildAdmin(ctx context.Context, guildID, accessToken string) bool {
	c.calls.Add(1)
	return c.granted
}

func TestHasAdmin_CachesWithinTTL(t *testing.T) {
	checker := &countingChecker{granted: true}
	cache := NewPermissionCache(checker)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if !cache.HasAdmin(ctx, "u1", "g1", "tok") {
			t.Fatalf("expected admin verdict")
		}
	}
	if n := checker.calls.Load(); n != 1 {
		t.Fatalf("expected one upstream call, got %d", n)
	}
}

func TestHasAdmin_NegativeVerdictCachedToo(t *testing.T) {
	checker := &countingChecker{granted: false}
	cache := NewPermissionCache(checker)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if cache.HasAdmin(ctx, "u1", "g1", "tok") {
			t.Fatalf("expected denial")
		}
	}
	if n := checker.calls.Load(); n != 1 {
		t.Fatalf("expected one upstream call, got %d", n)
	}
}

func TestHasAdmin_RefetchesAfterTTL(t *testing.T) {
	checker := &countingChecker{granted: true}
	cache := NewPermissionCache(checker)

	current := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return current }

	ctx := context.Background()
	cache.HasAdmin(ctx, "u1", "g1", "tok")
	cache.HasAdmin(ctx, "u1", "g1", "tok")
	if n := checker.calls.Load(); n != 1 {
		t.Fatalf("expected one upstream call before expiry, got %d", n)
	}

	current = current.Add(61 * time.Second)
	cache.HasAdmin(ctx, "u1", "g1", "tok")
	if n := checker.calls.Load(); n != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", n)
	}
}

func TestHasAdmin_SweepEvictsAllExpiredEntries(t *testing.T) {
	checker := &countingChecker{granted: true}
	cache := NewPermissionCache(checker)

	current := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return current }

	ctx := context.Background()
	cache.HasAdmin(ctx, "u1", "g1", "tok")
	cache.HasAdmin(ctx, "u2", "g2", "tok")
	cache.HasAdmin(ctx, "u3", "g3", "tok")
	if got := cache.Len(); got != 3 {
		t.Fatalf("expected 3 entries, got %d", got)
	}

	// A lookup for a fourth key sweeps the whole map first.
	current = current.Add(2 * time.Minute)
	cache.HasAdmin(ctx, "u4", "g4", "tok")
	if got := cache.Len(); got != 1 {
		t.Fatalf("expected 1 entry after sweep, got %d", got)
	}
}

func TestHasAdmin_DistinctKeysCheckedSeparately(t *testing.T) {
	checker := &countingChecker{granted: true}
	cache := NewPermissionCache(checker)

	ctx := context.Background()
	cache.HasAdmin(ctx, "u1", "g1", "tok")
	cache.HasAdmin(ctx, "u1", "g2", "tok")
	cache.HasAdmin(ctx, "u2", "g1", "tok")
	if n := checker.calls.Load(); n != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", n)
	}
}

type blockingChecker struct {
	release chan struct{}
	calls   atomic.Int64
}

func (c *blockingChecker) CheckGuildAdmin(ctx context.Context, guildID, accessToken string) bool {
	c.calls.Add(1)
	<-c.release
	return true
}

func TestHasAdmin_ConcurrentMissesCollapse(t *testing.T) {
	checker := &blockingChecker{release: make(chan struct{})}
	cache := NewPermissionCache(checker)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !cache.HasAdmin(ctx, "u1", "g1", "tok") {
				t.Error("expected admin verdict")
			}
		}()
	}

	// Give the goroutines time to pile up on the same key.
	time.Sleep(50 * time.Millisecond)
	close(checker.release)
	wg.Wait()

	if n := checker.calls.Load(); n != 1 {
		t.Fatalf("expected collapsed upstream call, got %d", n)
	}
}
