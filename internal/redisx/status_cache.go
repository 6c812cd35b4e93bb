package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// OrderStatus is the cached read model of an order. FromCollectiveID is kept
// so reads can be authorized without touching Postgres. Version is the id of
// the activity the entry was derived from, 0 when filled from Postgres.
type OrderStatus struct {
	Status           string `json:"status"`
	IsActive         bool   `json:"isActive"`
	FromCollectiveID int64  `json:"fromCollectiveId"`
	Version          int64  `json:"version"`
}

// setIfNewer writes ARGV[1] unless the stored entry has a version >= ARGV[2].
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, v = pcall(cjson.decode, cur)
  if ok and type(v) == 'table' and tonumber(v['version'] or 0) >= tonumber(ARGV[2]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

type StatusCache struct{ RDB redis.Cmdable }

func statusKey(orderID int64) string { return fmt.Sprintf(KeyOrderStatus, orderID) }

// Get returns nil, nil on a cache miss.
func (c *StatusCache) Get(ctx context.Context, orderID int64) (*OrderStatus, error) {
	b, err := c.RDB.Get(ctx, statusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st OrderStatus
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, errors.Wrap(err, "decode cached order status")
	}
	return &st, nil
}

// SetIfAbsent fills a missing entry and never replaces one.
func (c *StatusCache) SetIfAbsent(ctx context.Context, orderID int64, st OrderStatus) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.RDB.SetNX(ctx, statusKey(orderID), b, TTLStatusCache).Err()
}

// SetIfNewer stores st only when its version is above the cached one, so
// late or replayed activities cannot roll an order back.
func (c *StatusCache) SetIfNewer(ctx context.Context, orderID int64, st OrderStatus) (bool, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return false, err
	}
	n, err := setIfNewer.Run(ctx, c.RDB, []string{statusKey(orderID)},
		string(b), st.Version, TTLStatusCache.Milliseconds()).Int()
	if err != nil {
		return false, errors.Wrap(err, "write order status")
	}
	return n == 1, nil
}

// Dedup remembers processed event ids per consumer.
type Dedup struct {
	RDB     redis.Cmdable
	Service string
}

func (d *Dedup) key(eventID string) string { return fmt.Sprintf(KeyDedup, d.Service, eventID) }

func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.RDB, d.key(eventID))
}

func (d *Dedup) Mark(ctx context.Context, eventID string) error {
	return d.RDB.Set(ctx, d.key(eventID), "1", TTLDedup).Err()
}
