package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
	"github.com/Vaanter/alphapack-ledger/internal/repository"
)

type stubLedgerStore struct {
	mu      sync.Mutex
	entries map[domain.Fingerprint]domain.LedgerEntry

	insertErr error
	getErr    error
	deleteErr error

	inserts int
	deletes int
	gets    int
}

func newStubLedgerStore() *stubLedgerStore {
	return &stubLedgerStore{entries: make(map[domain.Fingerprint]domain.LedgerEntry)}
}

func (s *stubLedgerStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts + s.deletes + s.gets
}

func (s *stubLedgerStore) TryInsert(_ context.Context, entry domain.LedgerEntry, ttl time.Duration) (bool, *domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts++
	if s.insertErr != nil {
		return false, nil, s.insertErr
	}

	if existing, ok := s.entries[entry.Fingerprint]; ok {
		copied := existing
		return false, &copied, nil
	}

	entry.ExpiresAt = entry.FirstSeen.Add(ttl)
	s.entries[entry.Fingerprint] = entry
	return true, nil, nil
}

func (s *stubLedgerStore) Get(_ context.Context, fp domain.Fingerprint) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}

	entry, ok := s.entries[fp]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := entry
	return &copied, nil
}

func (s *stubLedgerStore) Delete(_ context.Context, fp domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.entries, fp)
	return nil
}

func newTestService(ledger port.LedgerStore, limit int) *LedgerService {
	quota := NewQuotaTracker(newStubCounterStore(), time.Minute, limit)
	return NewLedgerService(ledger, quota, LedgerOptions{RetentionPeriod: time.Hour})
}

func TestLedgerService_AdmitThenDuplicate(t *testing.T) {
	store := newStubLedgerStore()
	svc := newTestService(store, 10)

	ctx := context.Background()
	token := []byte("pack-content")

	first, err := svc.Submit(ctx, token, "guild-1:user-1")
	if err != nil {
		t.Fatalf("first Submit returned error: %v", err)
	}
	if first.Outcome != domain.OutcomeAdmitted {
		t.Fatalf("expected first submission admitted, got %s", first.Outcome)
	}
	if first.Remaining != 9 {
		t.Fatalf("expected remaining 9, got %d", first.Remaining)
	}

	// The same content from a different scope is still a duplicate.
	second, err := svc.Submit(ctx, token, "guild-1:user-2")
	if err != nil {
		t.Fatalf("second Submit returned error: %v", err)
	}
	if second.Outcome != domain.OutcomeDuplicateRejected {
		t.Fatalf("expected duplicate rejection, got %s", second.Outcome)
	}
	if second.DuplicateOf == nil {
		t.Fatalf("expected duplicate decision to carry the original entry")
	}
	if second.DuplicateOf.Scope != "guild-1:user-1" {
		t.Fatalf("expected original scope guild-1:user-1, got %s", second.DuplicateOf.Scope)
	}
}

func TestLedgerService_NoDoubleAdmitUnderRace(t *testing.T) {
	store := newStubLedgerStore()
	svc := newTestService(store, 1000)

	const parallel = 64
	token := []byte("contested-pack")

	var wg sync.WaitGroup
	outcomes := make(chan domain.Outcome, parallel)

	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := svc.Submit(context.Background(), token, "guild-1:user-1")
			if err != nil {
				t.Errorf("Submit returned error: %v", err)
				return
			}
			outcomes <- decision.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	admitted := 0
	for outcome := range outcomes {
		if outcome == domain.OutcomeAdmitted {
			admitted++
		}
	}
	if admitted != 1 {
		t.Fatalf("expected exactly one admission under race, got %d", admitted)
	}
}

func TestLedgerService_QuotaRejectionRollsBack(t *testing.T) {
	store := newStubLedgerStore()
	svc := newTestService(store, 1)

	ctx := context.Background()

	first, err := svc.Submit(ctx, []byte("pack-a"), "u1")
	if err != nil || first.Outcome != domain.OutcomeAdmitted {
		t.Fatalf("first Submit: outcome=%s err=%v", first.Outcome, err)
	}

	second, err := svc.Submit(ctx, []byte("pack-b"), "u1")
	if err != nil {
		t.Fatalf("second Submit returned error: %v", err)
	}
	if second.Outcome != domain.OutcomeQuotaRejected {
		t.Fatalf("expected quota rejection, got %s", second.Outcome)
	}

	// The rejected fingerprint must not stay on the ledger.
	if _, err := svc.Query(ctx, second.Fingerprint); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected rolled-back entry to be absent, got %v", err)
	}

	// Resubmitting the same content later within quota succeeds.
	later := NewQuotaTracker(newStubCounterStore(), time.Minute, 1)
	svc.quota = later

	third, err := svc.Submit(ctx, []byte("pack-b"), "u1")
	if err != nil {
		t.Fatalf("third Submit returned error: %v", err)
	}
	if third.Outcome != domain.OutcomeAdmitted {
		t.Fatalf("expected resubmission admitted, got %s", third.Outcome)
	}
}

func TestLedgerService_RollbackFailureLeavesEntryToExpire(t *testing.T) {
	store := newStubLedgerStore()
	store.deleteErr = errors.New("connection refused")
	svc := newTestService(store, 1)

	if warmup, err := svc.Submit(context.Background(), []byte("pack-warmup"), "u1"); err != nil || warmup.Outcome != domain.OutcomeAdmitted {
		t.Fatalf("warmup Submit: outcome=%s err=%v", warmup.Outcome, err)
	}

	decision, err := svc.Submit(context.Background(), []byte("pack-c"), "u1")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if decision.Outcome != domain.OutcomeQuotaRejected {
		t.Fatalf("expected quota rejection, got %s", decision.Outcome)
	}

	// The entry stays behind with its TTL as the bounded-cost fallback.
	if _, err := svc.Query(context.Background(), decision.Fingerprint); err != nil {
		t.Fatalf("expected entry to remain after failed rollback, got %v", err)
	}
}

func TestLedgerService_InvalidInputSkipsStore(t *testing.T) {
	store := newStubLedgerStore()
	svc := newTestService(store, 10)

	ctx := context.Background()

	if _, err := svc.Submit(ctx, nil, "u1"); !errors.Is(err, domain.ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}

	oversized := make([]byte, domain.DefaultMaxTokenBytes+1)
	if _, err := svc.Submit(ctx, oversized, "u1"); !errors.Is(err, domain.ErrTokenTooLarge) {
		t.Fatalf("expected ErrTokenTooLarge, got %v", err)
	}

	if _, err := svc.Submit(ctx, []byte("ok"), "   "); !errors.Is(err, domain.ErrScopeRequired) {
		t.Fatalf("expected ErrScopeRequired, got %v", err)
	}

	if calls := store.calls(); calls != 0 {
		t.Fatalf("expected no store interaction on invalid input, got %d calls", calls)
	}
}

func TestLedgerService_StoreFaultIsNotADuplicate(t *testing.T) {
	store := newStubLedgerStore()
	store.insertErr = repository.ErrUnavailable
	svc := newTestService(store, 10)

	_, err := svc.Submit(context.Background(), []byte("pack-d"), "u1")
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable to bubble, got %v", err)
	}
}

type capturingArchive struct {
	decisions chan port.ArchivedDecision
}

func (a *capturingArchive) InsertDecision(_ context.Context, decision port.ArchivedDecision) error {
	a.decisions <- decision
	return nil
}

func (a *capturingArchive) ListRecentByScope(context.Context, domain.Scope, int) ([]port.ArchivedDecision, error) {
	return nil, nil
}

func (a *capturingArchive) ScopeStats(context.Context, domain.Scope) (*port.ScopeStats, error) {
	return nil, nil
}

func TestLedgerService_ArchivesDecisions(t *testing.T) {
	store := newStubLedgerStore()
	archive := &capturingArchive{decisions: make(chan port.ArchivedDecision, 1)}
	svc := newTestService(store, 5).WithArchive(archive)

	decision, err := svc.Submit(context.Background(), []byte("pack-e"), "u1")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	select {
	case archived := <-archive.decisions:
		if archived.Outcome != domain.OutcomeAdmitted {
			t.Fatalf("expected archived outcome admitted, got %s", archived.Outcome)
		}
		if archived.Fingerprint != decision.Fingerprint {
			t.Fatalf("archived fingerprint mismatch")
		}
		if archived.Remaining == nil || *archived.Remaining != decision.Remaining {
			t.Fatalf("expected archived remaining %d, got %v", decision.Remaining, archived.Remaining)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for archived decision")
	}
}
