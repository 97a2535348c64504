package ratelimit

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFixedWindowScriptLoads(t *testing.T) {
	if fixedWindowScript == nil || fixedWindowScript.Hash() == "" {
		t.Fatalf("script must be defined")
	}
}

func TestNewLimiter_Validation(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	if _, err := NewLimiter(nil, "login", 10, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewLimiter(rdb, "", 10, time.Minute); err == nil {
		t.Fatalf("expected error for empty prefix")
	}
	if _, err := NewLimiter(rdb, "login", 0, time.Minute); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewLimiter(rdb, "login", 10, 0); err == nil {
		t.Fatalf("expected error for zero window")
	}
	if _, err := NewLimiter(rdb, "login", 10, time.Minute); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
