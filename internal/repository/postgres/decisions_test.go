package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
)

func testFingerprint(t *testing.T, token string) domain.Fingerprint {
	t.Helper()

	fp, err := domain.Canonicalize([]byte(token), 0)
	if err != nil {
		t.Fatalf("Canonicalize returned error: %v", err)
	}
	return fp
}

func TestDecisionRepository_InsertDecision(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDecisionRepository(mock)

	fp := testFingerprint(t, "pack-1")
	decidedAt := time.Now().UTC()
	remaining := 2

	mock.ExpectExec(`INSERT INTO ledger\.decisions`).
		WithArgs(
			"decision-123",
			fp.String(),
			"guild-1:user-1",
			"admitted",
			remaining,
			decidedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.InsertDecision(context.Background(), port.ArchivedDecision{
		ID:          "decision-123",
		Fingerprint: fp,
		Scope:       "guild-1:user-1",
		Outcome:     domain.OutcomeAdmitted,
		Remaining:   &remaining,
		DecidedAt:   decidedAt,
	})
	if err != nil {
		t.Fatalf("InsertDecision returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDecisionRepository_InsertDecisionRejectsUnknownOutcome(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDecisionRepository(mock)

	err = repo.InsertDecision(context.Background(), port.ArchivedDecision{
		Fingerprint: testFingerprint(t, "pack-2"),
		Scope:       "s1",
		Outcome:     domain.Outcome("exploded"),
	})
	if err == nil {
		t.Fatalf("expected error for unknown outcome")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected store interaction: %v", err)
	}
}

func TestDecisionRepository_ListRecentByScope(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDecisionRepository(mock)

	fp := testFingerprint(t, "pack-3")
	decidedAt := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "fingerprint", "scope", "outcome", "remaining", "decided_at"}).
		AddRow("d1", fp.String(), "s1", "admitted", int64(1), decidedAt).
		AddRow("d2", fp.String(), "s1", "duplicate_rejected", nil, decidedAt.Add(-time.Minute))

	mock.ExpectQuery(`SELECT .+ FROM ledger\.decisions WHERE scope = \$1 ORDER BY decided_at DESC`).
		WithArgs("s1").
		WillReturnRows(rows)

	decisions, err := repo.ListRecentByScope(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("ListRecentByScope returned error: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(decisions))
	}
	if decisions[0].Outcome != domain.OutcomeAdmitted {
		t.Fatalf("expected first outcome admitted, got %s", decisions[0].Outcome)
	}
	if decisions[0].Remaining == nil || *decisions[0].Remaining != 1 {
		t.Fatalf("expected remaining 1, got %v", decisions[0].Remaining)
	}
	if decisions[1].Remaining != nil {
		t.Fatalf("expected nil remaining on rejection, got %v", *decisions[1].Remaining)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDecisionRepository_ScopeStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDecisionRepository(mock)

	first := time.Now().UTC().Add(-time.Hour)
	last := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"admitted", "duplicate_rejected", "quota_rejected", "min", "max"}).
		AddRow(int64(5), int64(2), int64(1), first, last)

	mock.ExpectQuery(`SELECT .+ FROM ledger\.decisions WHERE scope = \$1`).
		WithArgs("s1").
		WillReturnRows(rows)

	stats, err := repo.ScopeStats(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ScopeStats returned error: %v", err)
	}
	if stats.Admitted != 5 || stats.DuplicateRejected != 2 || stats.QuotaRejected != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.FirstDecision == nil || !stats.FirstDecision.Equal(first) {
		t.Fatalf("expected first decision %v, got %v", first, stats.FirstDecision)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
