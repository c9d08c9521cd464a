package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lutefd/fairplay-api/internal/domain/stats"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const DefaultTTL = 10 * time.Minute

// setScript stores a snapshot only when it is newer than what the key has
// seen. The ts field outlives Invalidate so a late fill cannot resurrect an
// older snapshot.
var setScript = redis.NewScript(`
local seen = redis.call('HGET', KEYS[1], 'ts')
if seen and tonumber(seen) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// SnapshotCache keeps msgpack encoded snapshots in Redis hashes under a TTL.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// Get returns nil, nil on a miss.
func (c *SnapshotCache) Get(ctx context.Context, key stats.Key) (*stats.PlayerPositionHistory, error) {
	data, err := c.client.HGet(ctx, snapshotKey(key), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cached snapshot: %w", err)
	}
	h, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Set is a no-op when the cache already saw a snapshot at least as new.
func (c *SnapshotCache) Set(ctx context.Context, h stats.PlayerPositionHistory) error {
	data, err := encode(h)
	if err != nil {
		return err
	}
	keys := []string{snapshotKey(h.Key())}
	if err := setScript.Run(ctx, c.client, keys, h.UpdatedAt.UnixMicro(), data, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("write cached snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the payload but keeps the ts marker until the TTL runs out.
func (c *SnapshotCache) Invalidate(ctx context.Context, key stats.Key) error {
	return c.client.HDel(ctx, snapshotKey(key), "data").Err()
}

func snapshotKey(key stats.Key) string {
	return fmt.Sprintf("fairplay:snapshot:%s:%s:%s", key.TeamID, key.Season, key.PlayerID)
}

// Field names follow the JSON record so cached and persisted shapes match.
func encode(h stats.PlayerPositionHistory) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (stats.PlayerPositionHistory, error) {
	var h stats.PlayerPositionHistory
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&h); err != nil {
		return stats.PlayerPositionHistory{}, fmt.Errorf("decode snapshot: %w", err)
	}
	h.UpdatedAt = h.UpdatedAt.UTC()
	return h, nil
}
