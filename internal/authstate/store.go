package authstate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "oauth_state:"

	// stateTTL bounds how long an issued state may sit between the authorize
	// redirect and the callback.
	stateTTL = 10 * time.Minute
)

// Store persists one-shot anti-CSRF state values across the OAuth
// authorize/callback round trip. The state itself round-trips through
// Discord unmodified.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Issue generates and stores a fresh state value.
func (s *Store) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.rdb.Set(ctx, keyPrefix+state, "1", stateTTL).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return state, nil
}

// Consume verifies and burns a state value. Each state is valid exactly
// once; replays and unknown values report false.
func (s *Store) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	n, err := s.rdb.Del(ctx, keyPrefix+state).Result()
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return n == 1, nil
}
