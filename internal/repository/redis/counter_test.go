package redis

import (
	"context"
	"testing"
	"time"
)

func TestCounterRepository_IncrementWithExpiry(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewCounterRepository(client, "ledger:quota")

	ctx := context.Background()
	ttl := 30 * time.Second

	count, err := repo.IncrementWithExpiry(ctx, "scope-1:100", ttl)
	if err != nil {
		t.Fatalf("IncrementWithExpiry returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1 on creation, got %d", count)
	}

	remaining := server.TTL("ledger:quota:scope-1:100")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}

	server.FastForward(10 * time.Second)

	count, err = repo.IncrementWithExpiry(ctx, "scope-1:100", ttl)
	if err != nil {
		t.Fatalf("second IncrementWithExpiry returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	// The second increment must not reset the window TTL.
	remaining = server.TTL("ledger:quota:scope-1:100")
	if remaining > 20*time.Second {
		t.Fatalf("expected ttl unchanged by increment, got %v", remaining)
	}
}

func TestCounterRepository_WindowSelfDeletes(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewCounterRepository(client, "")

	ctx := context.Background()

	if _, err := repo.IncrementWithExpiry(ctx, "scope-1:100", time.Second); err != nil {
		t.Fatalf("IncrementWithExpiry returned error: %v", err)
	}

	server.FastForward(2 * time.Second)

	count, err := repo.Get(ctx, "scope-1:100")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected expired window to read 0, got %d", count)
	}

	count, err = repo.IncrementWithExpiry(ctx, "scope-1:100", time.Second)
	if err != nil {
		t.Fatalf("IncrementWithExpiry after expiry returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh window to restart at 1, got %d", count)
	}
}

func TestCounterRepository_GetMissReadsZero(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewCounterRepository(client, "")

	count, err := repo.Get(context.Background(), "never-incremented")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 for absent counter, got %d", count)
	}
}
