package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
	"github.com/Vaanter/alphapack-ledger/internal/repository"
)

const defaultLedgerKeyPrefix = "ledger:entry"

// LedgerRepository persists ledger entries in Redis keyed by fingerprint.
// The store owns expiry: entries are written with a TTL and disappear on
// their own, no sweeper required.
type LedgerRepository struct {
	client *red.Client
	prefix string
}

// NewLedgerRepository constructs a repository over the provided client.
func NewLedgerRepository(client *red.Client, prefix string) *LedgerRepository {
	if prefix == "" {
		prefix = defaultLedgerKeyPrefix
	}
	return &LedgerRepository{client: client, prefix: prefix}
}

var _ port.LedgerStore = (*LedgerRepository)(nil)

// entryEnvelope is the serialized value stored under a fingerprint key.
type entryEnvelope struct {
	Scope     string    `json:"scope"`
	FirstSeen time.Time `json:"first_seen"`
}

// TryInsert performs the duplicate check and the record write in one atomic
// round trip using SET NX GET. First writer wins as ordered by the store,
// independent of wall-clock skew between service instances.
func (r *LedgerRepository) TryInsert(ctx context.Context, entry domain.LedgerEntry, ttl time.Duration) (bool, *domain.LedgerEntry, error) {
	key := r.key(entry.Fingerprint)

	payload, err := json.Marshal(entryEnvelope{
		Scope:     entry.Scope.String(),
		FirstSeen: entry.FirstSeen.UTC(),
	})
	if err != nil {
		return false, nil, fmt.Errorf("marshal ledger entry: %w", err)
	}

	prev, err := r.client.SetArgs(ctx, key, payload, red.SetArgs{
		Mode: "NX",
		TTL:  ttl,
		Get:  true,
	}).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			// No previous value: the write happened.
			return true, nil, nil
		}
		return false, nil, wrapUnavailable("redis set nx", err)
	}

	existing, err := r.decodeEntry(ctx, entry.Fingerprint, []byte(prev))
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

// Get retrieves the live entry for a fingerprint together with its expiry.
func (r *LedgerRepository) Get(ctx context.Context, fp domain.Fingerprint) (*domain.LedgerEntry, error) {
	raw, err := r.client.Get(ctx, r.key(fp)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, wrapUnavailable("redis get", err)
	}

	return r.decodeEntry(ctx, fp, raw)
}

// Delete removes the entry. Used by the engine to roll back an insert whose
// submission was quota-rejected. Deleting an absent key is not an error.
func (r *LedgerRepository) Delete(ctx context.Context, fp domain.Fingerprint) error {
	if err := r.client.Del(ctx, r.key(fp)).Err(); err != nil {
		return wrapUnavailable("redis del", err)
	}
	return nil
}

func (r *LedgerRepository) decodeEntry(ctx context.Context, fp domain.Fingerprint, raw []byte) (*domain.LedgerEntry, error) {
	var envelope entryEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode ledger entry for %s: %v", repository.ErrInconsistent, fp.Short(), err)
	}
	if envelope.Scope == "" {
		return nil, fmt.Errorf("%w: ledger entry for %s has no scope", repository.ErrInconsistent, fp.Short())
	}

	entry := &domain.LedgerEntry{
		Fingerprint: fp,
		Scope:       domain.Scope(envelope.Scope),
		FirstSeen:   envelope.FirstSeen,
	}

	// Expiry metadata is display-only; a missing TTL (key expired between
	// calls) simply leaves ExpiresAt zero.
	if remaining, err := r.client.PTTL(ctx, r.key(fp)).Result(); err == nil && remaining > 0 {
		entry.ExpiresAt = time.Now().UTC().Add(remaining)
	}

	return entry, nil
}

func (r *LedgerRepository) key(fp domain.Fingerprint) string {
	return fmt.Sprintf("%s:%s", r.prefix, fp.String())
}
