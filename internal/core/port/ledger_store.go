package port

import (
	"context"
	"time"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
)

// LedgerStore is the transactional seam over the shared key-value store for
// ledger entries. Implementations must make TryInsert a single atomic round
// trip; a separate read-then-write reintroduces the duplicate-admission race.
type LedgerStore interface {
	// TryInsert atomically records the entry under its fingerprint with the
	// supplied TTL. When the fingerprint is already present the existing
	// entry is returned and inserted is false.
	TryInsert(ctx context.Context, entry domain.LedgerEntry, ttl time.Duration) (inserted bool, existing *domain.LedgerEntry, err error)
	// Get retrieves the live entry for a fingerprint.
	// Returns repository.ErrNotFound when absent or expired.
	Get(ctx context.Context, fp domain.Fingerprint) (*domain.LedgerEntry, error)
	// Delete removes the entry, used to roll back a quota-rejected insert.
	Delete(ctx context.Context, fp domain.Fingerprint) error
}
