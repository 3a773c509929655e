package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"wslink-server/internal/modules/weather/types"
)

const latestKey = "weather:latest"

// setIfNewer stores the record only when it sorts after the cached one:
// greater ts, or equal ts and greater id. With ARGV[5] == "0" a missing key
// is left missing. Returns 1 when stored, 0 when rejected, -1 when missing.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'ts', 'id')
if not cur[1] then
  if ARGV[5] == '0' then
    return -1
  end
else
  local cts = tonumber(cur[1])
  local nts = tonumber(ARGV[1])
  if nts < cts or (nts == cts and tonumber(ARGV[2]) <= tonumber(cur[2])) then
    return 0
  end
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'id', ARGV[2], 'rec', ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return 1
`)

// CachedRepository keeps the most recent record in Redis in front of another
// WeatherRepository. The cached entry only ever moves forward in recency
// order. Redis failures are logged and the call falls through to the store.
type CachedRepository struct {
	store  WeatherRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRepository(store WeatherRepository, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{store: store, client: client, ttl: ttl, logger: logger}
}

func (c *CachedRepository) Insert(ctx context.Context, rec types.WeatherRecord) (int64, error) {
	id, err := c.store.Insert(ctx, rec)
	if err != nil {
		return 0, err
	}
	rec.ID = id
	// Match the precision the store reads back.
	rec.Timestamp = rec.Timestamp.UTC().Truncate(time.Microsecond)

	stored, err := c.offer(ctx, rec, false)
	if err != nil {
		c.logger.Warn("cache update failed", "id", id, "error", err)
		return id, nil
	}
	if stored == -1 {
		// Nothing cached: the new record may be a backfill, so seed from the store.
		if latest, err := c.store.MostRecent(ctx); err == nil && latest != nil {
			if _, err := c.offer(ctx, *latest, true); err != nil {
				c.logger.Warn("cache seed failed", "error", err)
			}
		}
	}
	return id, nil
}

func (c *CachedRepository) MostRecent(ctx context.Context) (*types.WeatherRecord, error) {
	raw, err := c.client.HGet(ctx, latestKey, "rec").Result()
	switch {
	case err == nil:
		var rec types.WeatherRecord
		if err := json.Unmarshal([]byte(raw), &rec); err == nil {
			return &rec, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", latestKey)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "error", err)
	}

	rec, err := c.store.MostRecent(ctx)
	if err != nil || rec == nil {
		return rec, err
	}
	if _, err := c.offer(ctx, *rec, true); err != nil {
		c.logger.Warn("cache fill failed", "id", rec.ID, "error", err)
	}
	return rec, nil
}

func (c *CachedRepository) SinceInclusive(ctx context.Context, since time.Time) ([]types.WeatherRecord, error) {
	return c.store.SinceInclusive(ctx, since)
}

// Ping checks the backing store only; a down cache degrades to store reads.
func (c *CachedRepository) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Warn("cache ping failed", "error", err)
	}
	return c.store.Ping(ctx)
}

func (c *CachedRepository) offer(ctx context.Context, rec types.WeatherRecord, create bool) (int64, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}
	createArg := "0"
	if create {
		createArg = "1"
	}
	return setIfNewer.Run(ctx, c.client, []string{latestKey},
		rec.Timestamp.UnixMicro(),
		rec.ID,
		string(payload),
		c.ttl.Milliseconds(),
		createArg,
	).Int64()
}
