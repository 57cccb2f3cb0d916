package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
	calls  int
}

func newStubCounterStore() *stubCounterStore {
	return &stubCounterStore{
		counts: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *stubCounterStore) IncrementWithExpiry(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return 0, s.err
	}

	s.counts[key]++
	if s.counts[key] == 1 {
		s.ttls[key] = ttl
	}
	return s.counts[key], nil
}

func (s *stubCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}
	return s.counts[key], nil
}

func TestQuotaTracker_AdmitWithinLimit(t *testing.T) {
	counters := newStubCounterStore()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewQuotaTracker(counters, time.Minute, 3).WithNow(func() time.Time { return base })

	ctx := context.Background()
	expected := []int{2, 1, 0}

	for i, want := range expected {
		verdict, err := tracker.Admit(ctx, "u1")
		if err != nil {
			t.Fatalf("Admit %d returned error: %v", i+1, err)
		}
		if !verdict.Allowed {
			t.Fatalf("expected submission %d within limit", i+1)
		}
		if verdict.Remaining != want {
			t.Fatalf("expected remaining %d after submission %d, got %d", want, i+1, verdict.Remaining)
		}
	}

	verdict, err := tracker.Admit(ctx, "u1")
	if err != nil {
		t.Fatalf("Admit over limit returned error: %v", err)
	}
	if verdict.Allowed {
		t.Fatalf("expected fourth submission to exceed limit")
	}
	if !verdict.ResetAt.Equal(base.Truncate(time.Minute).Add(time.Minute)) {
		t.Fatalf("unexpected reset time %v", verdict.ResetAt)
	}
}

func TestQuotaTracker_WindowRollover(t *testing.T) {
	counters := newStubCounterStore()
	now := time.Date(2026, time.March, 1, 12, 0, 30, 0, time.UTC)
	tracker := NewQuotaTracker(counters, time.Minute, 1).WithNow(func() time.Time { return now })

	ctx := context.Background()

	if verdict, err := tracker.Admit(ctx, "u1"); err != nil || !verdict.Allowed {
		t.Fatalf("first Admit: allowed=%v err=%v", verdict.Allowed, err)
	}
	if verdict, err := tracker.Admit(ctx, "u1"); err != nil || verdict.Allowed {
		t.Fatalf("second Admit in window: allowed=%v err=%v", verdict.Allowed, err)
	}

	// Cross the window boundary; a fresh window admits again.
	now = now.Add(61 * time.Second)

	verdict, err := tracker.Admit(ctx, "u1")
	if err != nil {
		t.Fatalf("Admit after rollover returned error: %v", err)
	}
	if !verdict.Allowed {
		t.Fatalf("expected admission in the new window")
	}
}

func TestQuotaTracker_ScopesAreIndependent(t *testing.T) {
	counters := newStubCounterStore()
	tracker := NewQuotaTracker(counters, time.Minute, 1)

	ctx := context.Background()

	if verdict, err := tracker.Admit(ctx, "u1"); err != nil || !verdict.Allowed {
		t.Fatalf("u1 Admit: allowed=%v err=%v", verdict.Allowed, err)
	}
	if verdict, err := tracker.Admit(ctx, "u2"); err != nil || !verdict.Allowed {
		t.Fatalf("u2 Admit: allowed=%v err=%v", verdict.Allowed, err)
	}
}

func TestQuotaTracker_CounterTTLMatchesWindow(t *testing.T) {
	counters := newStubCounterStore()
	window := 45 * time.Second
	tracker := NewQuotaTracker(counters, window, 5)

	if _, err := tracker.Admit(context.Background(), "u1"); err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}

	for key, ttl := range counters.ttls {
		if ttl != window {
			t.Fatalf("expected counter %s ttl %v, got %v", key, window, ttl)
		}
	}
}

func TestQuotaTracker_StoreFaultBubbles(t *testing.T) {
	counters := newStubCounterStore()
	counters.err = errors.New("connection refused")
	tracker := NewQuotaTracker(counters, time.Minute, 3)

	if _, err := tracker.Admit(context.Background(), "u1"); err == nil {
		t.Fatalf("expected store fault to bubble")
	}
}
