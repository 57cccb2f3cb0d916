package port

import (
	"context"
	"time"
)

// CounterStore provides atomic window counters backed by the shared store.
type CounterStore interface {
	// IncrementWithExpiry atomically increments the counter and returns the
	// new value. A counter created by this call starts at 1 with the given
	// TTL; later increments never reset the TTL.
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Get returns the current counter value, 0 when the key is absent.
	Get(ctx context.Context, key string) (int64, error)
}
