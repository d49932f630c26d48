// Package cache holds the Redis backed caches used by the booking service.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// generationTTL outlives any seat map read by a wide margin; an expired
// counter only makes a pending Set miss.
const generationTTL = 24 * time.Hour

// setIfGeneration writes the map only while the screening's generation
// still equals the one the caller read before loading the data.
// KEYS[1] generation key, KEYS[2] map key; ARGV[1] generation, ARGV[2]
// payload, ARGV[3] ttl in milliseconds.
var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// SeatMapCache keeps encoded seat maps per screening.  Entries expire
// after ttl and are dropped explicitly whenever a booking of the
// screening is created or cancelled.  Each invalidation bumps a
// per-screening generation so a map computed before the invalidation can
// not be written back afterwards.
type SeatMapCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSeatMapCache returns a cache storing keys under prefix.
func NewSeatMapCache(client *redis.Client, prefix string, ttl time.Duration) *SeatMapCache {
	if prefix == "" {
		prefix = "cache"
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &SeatMapCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached bytes and whether they were present.
func (c *SeatMapCache) Get(ctx context.Context, screeningID uint64) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(screeningID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Generation returns the current invalidation counter of the screening.
// Read it before loading the data passed to Set.
func (c *SeatMapCache) Generation(ctx context.Context, screeningID uint64) (uint64, error) {
	n, err := c.client.Get(ctx, c.genKey(screeningID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Set stores data for the screening unless it was invalidated since gen
// was read.  The boolean reports whether the entry was written.
func (c *SeatMapCache) Set(ctx context.Context, screeningID, gen uint64, data []byte) (bool, error) {
	n, err := setIfGeneration.Run(ctx, c.client,
		[]string{c.genKey(screeningID), c.key(screeningID)},
		strconv.FormatUint(gen, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Invalidate bumps the generation and drops the cached map.
func (c *SeatMapCache) Invalidate(ctx context.Context, screeningID uint64) error {
	genKey := c.genKey(screeningID)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Expire(ctx, genKey, generationTTL)
		p.Del(ctx, c.key(screeningID))
		return nil
	})
	return err
}

func (c *SeatMapCache) key(screeningID uint64) string {
	return fmt.Sprintf("%s:seatmap:screening:%d", c.prefix, screeningID)
}

func (c *SeatMapCache) genKey(screeningID uint64) string {
	return fmt.Sprintf("%s:seatmap:gen:%d", c.prefix, screeningID)
}
