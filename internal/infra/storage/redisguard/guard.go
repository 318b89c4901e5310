package redisguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"islandstay/internal/domain/booking"
)

const (
	keyPrefix = "admitted:"
	// Keys expire after the booking date is long past; the ledger is the
	// source of truth, the counter only serializes in-flight admissions.
	keyTTL = 72 * time.Hour
)

// reserveScript bumps the per-key admitted counter only while it stays
// within capacity. Runs atomically inside Redis, so two concurrent
// admissions cannot both claim the last unit.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call('GET', key) or '0')
if current + quantity > capacity then
	return 0
end

redis.call('INCRBY', key, quantity)
redis.call('EXPIRE', key, ttl)
return 1
`)

// Guard is a per-conflict-key admission serializer in front of the
// ledger, for ledgers that cannot enforce the capacity invariant in a
// single conditional write.
type Guard struct {
	client *redis.Client
}

func New(client *redis.Client) *Guard {
	return &Guard{client: client}
}

func (g *Guard) Reserve(ctx context.Context, key booking.ConflictKey, quantity, capacity int) (bool, error) {
	result, err := reserveScript.Run(ctx, g.client, []string{redisKey(key)}, quantity, capacity, int(keyTTL.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("redisguard: reserve: %w", err)
	}
	return result == 1, nil
}

func (g *Guard) Release(ctx context.Context, key booking.ConflictKey, quantity int) error {
	if err := g.client.DecrBy(ctx, redisKey(key), int64(quantity)).Err(); err != nil {
		return fmt.Errorf("redisguard: release: %w", err)
	}
	return nil
}

func redisKey(key booking.ConflictKey) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, key.ListingID, key.Date, key.Slot)
}
