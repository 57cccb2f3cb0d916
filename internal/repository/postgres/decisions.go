package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
	"github.com/Vaanter/alphapack-ledger/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DecisionRepository archives ledger decisions in PostgreSQL. The archive is
// diagnostic history only: nothing on the admit path reads from it.
type DecisionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDecisionRepository constructs the repository from a generic executor.
func NewDecisionRepository(exec pgExecutor) *DecisionRepository {
	repo := &DecisionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

var _ port.DecisionArchive = (*DecisionRepository)(nil)

// InsertDecision appends one decision to the archive.
func (r *DecisionRepository) InsertDecision(ctx context.Context, decision port.ArchivedDecision) error {
	id := strings.TrimSpace(decision.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if !decision.Outcome.Valid() {
		return fmt.Errorf("unknown outcome %q", decision.Outcome)
	}

	decidedAt := decision.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	var remaining any
	if decision.Remaining != nil {
		remaining = *decision.Remaining
	}

	stmt, args, err := r.builder.
		Insert("ledger.decisions").
		Columns("id", "fingerprint", "scope", "outcome", "remaining", "decided_at").
		Values(id, decision.Fingerprint.String(), decision.Scope.String(), string(decision.Outcome), remaining, decidedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert decision sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}

	return nil
}

// ListRecentByScope returns the newest archived decisions for a scope.
func (r *DecisionRepository) ListRecentByScope(ctx context.Context, scope domain.Scope, limit int) ([]port.ArchivedDecision, error) {
	if scope == "" {
		return nil, fmt.Errorf("scope is required")
	}
	if limit <= 0 {
		limit = 50
	}

	stmt, args, err := r.builder.
		Select("id", "fingerprint", "scope", "outcome", "remaining", "decided_at").
		From("ledger.decisions").
		Where(squirrel.Eq{"scope": scope.String()}).
		OrderBy("decided_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select decisions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []port.ArchivedDecision
	for rows.Next() {
		var (
			decision    port.ArchivedDecision
			fingerprint string
			scopeValue  string
			outcome     string
			remaining   sql.NullInt64
		)

		if err := rows.Scan(&decision.ID, &fingerprint, &scopeValue, &outcome, &remaining, &decision.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}

		fp, err := domain.ParseFingerprint(fingerprint)
		if err != nil {
			return nil, fmt.Errorf("parse archived fingerprint: %w", err)
		}
		decision.Fingerprint = fp
		decision.Scope = domain.Scope(scopeValue)
		decision.Outcome = domain.Outcome(outcome)
		if remaining.Valid {
			value := int(remaining.Int64)
			decision.Remaining = &value
		}

		decisions = append(decisions, decision)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}

	return decisions, nil
}

// ScopeStats aggregates archived outcomes for one scope.
func (r *DecisionRepository) ScopeStats(ctx context.Context, scope domain.Scope) (*port.ScopeStats, error) {
	if scope == "" {
		return nil, fmt.Errorf("scope is required")
	}

	stmt, args, err := r.builder.
		Select(
			"count(*) FILTER (WHERE outcome = 'admitted')",
			"count(*) FILTER (WHERE outcome = 'duplicate_rejected')",
			"count(*) FILTER (WHERE outcome = 'quota_rejected')",
			"min(decided_at)",
			"max(decided_at)",
		).
		From("ledger.decisions").
		Where(squirrel.Eq{"scope": scope.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scope stats sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		stats port.ScopeStats
		first sql.NullTime
		last  sql.NullTime
	)
	if err := row.Scan(&stats.Admitted, &stats.DuplicateRejected, &stats.QuotaRejected, &first, &last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan scope stats: %w", err)
	}

	stats.Scope = scope
	if first.Valid {
		ts := first.Time
		stats.FirstDecision = &ts
	}
	if last.Valid {
		ts := last.Time
		stats.MostRecentDecision = &ts
	}

	return &stats, nil
}
