package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Vaanter/alphapack-ledger/internal/core/port"
)

const defaultCounterKeyPrefix = "ledger:quota"

// incrementWithExpiry increments a counter and attaches the TTL only when
// the key is created by this call, so later increments never extend the
// window. Scripted to stay atomic against concurrent service instances.
var incrementWithExpiry = red.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// CounterRepository implements atomic window counters in Redis.
type CounterRepository struct {
	client *red.Client
	prefix string
}

// NewCounterRepository constructs a repository over the provided client.
func NewCounterRepository(client *red.Client, prefix string) *CounterRepository {
	if prefix == "" {
		prefix = defaultCounterKeyPrefix
	}
	return &CounterRepository{client: client, prefix: prefix}
}

var _ port.CounterStore = (*CounterRepository)(nil)

// IncrementWithExpiry atomically increments the counter, creating it with
// the supplied TTL when absent, and returns the new value.
func (r *CounterRepository) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	result, err := incrementWithExpiry.Run(ctx, r.client, []string{r.key(key)}, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, wrapUnavailable("redis incr script", err)
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type %T", result)
	}
	return count, nil
}

// Get returns the current counter value, 0 when the key is absent.
func (r *CounterRepository) Get(ctx context.Context, key string) (int64, error) {
	count, err := r.client.Get(ctx, r.key(key)).Int64()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return 0, nil
		}
		return 0, wrapUnavailable("redis get", err)
	}
	return count, nil
}

func (r *CounterRepository) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}
