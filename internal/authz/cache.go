package authz

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// permissionTTL bounds how long a guild-admin verdict is trusted before
// Discord is asked again. Denials are cached for the same window, so a user
// granted admin externally may still be denied by stale cache for up to a
// minute.
const permissionTTL = 60 * time.Second

// AdminChecker is the upstream permission check the cache shields from
// repeated, rate-limited calls.
type AdminChecker interface {
	CheckGuildAdmin(ctx context.Context, guildID, accessToken string) bool
}

type cacheKey struct {
	userID  string
	guildID string
}

type cacheEntry struct {
	granted  bool
	cachedAt time.Time
}

// PermissionCache memoizes "does user U hold admin in guild G" verdicts.
// Shared process-wide; entries outlive any single request and disappear only
// via TTL eviction or process restart.
type PermissionCache struct {
	checker AdminChecker
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry

	// flight collapses concurrent misses on the same key into one upstream
	// call.
	flight singleflight.Group
}

func NewPermissionCache(checker AdminChecker) *PermissionCache {
	return &PermissionCache{
		checker: checker,
		ttl:     permissionTTL,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// HasAdmin returns the cached verdict for (userID, guildID), consulting the
// upstream checker on a miss and storing the result. Expired entries across
// the whole map are swept before each lookup; there is no background
// janitor.
func (p *PermissionCache) HasAdmin(ctx context.Context, userID, guildID, accessToken string) bool {
	key := cacheKey{userID: userID, guildID: guildID}

	p.mu.Lock()
	p.sweepLocked()
	if e, ok := p.entries[key]; ok {
		p.mu.Unlock()
		return e.granted
	}
	p.mu.Unlock()

	v, _, _ := p.flight.Do(userID+"\x00"+guildID, func() (any, error) {
		granted := p.checker.CheckGuildAdmin(ctx, guildID, accessToken)

		p.mu.Lock()
		p.entries[key] = cacheEntry{granted: granted, cachedAt: p.now()}
		p.mu.Unlock()

		return granted, nil
	})
	return v.(bool)
}

func (p *PermissionCache) sweepLocked() {
	now := p.now()
	for k, e := range p.entries {
		if now.Sub(e.cachedAt) >= p.ttl {
			delete(p.entries, k)
		}
	}
}

// Len reports the number of live entries; used by tests and debug endpoints.
func (p *PermissionCache) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
