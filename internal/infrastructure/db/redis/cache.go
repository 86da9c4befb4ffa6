package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a typed view over Redis strings and hashes. Keys and fields are
// stored as their string form; values are JSON encoded.
//
// It implements both ports.ValueCache[K, V] and ports.HashCache[K, F, V].
// Missing keys and fields are reported with ok == false; only transport and
// decoding failures are returned as errors.
type Cache[K ~string, F ~string, V any] struct {
	client redis.Cmdable
}

// NewCache returns a Cache backed by client.
func NewCache[K ~string, F ~string, V any](client redis.Cmdable) *Cache[K, F, V] {
	return &Cache[K, F, V]{client: client}
}

// ── Scalar values ─────────────────────────────────────────────────────────────

// SetValue overwrites key unconditionally. Any TTL on key is cleared.
func (c *Cache[K, F, V]) SetValue(ctx context.Context, key K, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, string(key), data, 0).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache[K, F, V]) GetValue(ctx context.Context, key K) (V, bool, error) {
	var zero V
	raw, err := c.client.Get(ctx, string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return decode[V](raw, string(key))
}

// SetExpiration sets a TTL on key. Redis ignores EXPIRE on a missing key and
// so does this method.
func (c *Cache[K, F, V]) SetExpiration(ctx context.Context, key K, ttl time.Duration) error {
	if err := c.client.Expire(ctx, string(key), ttl).Err(); err != nil {
		return fmt.Errorf("cache expire %s: %w", key, err)
	}
	return nil
}

func (c *Cache[K, F, V]) DeleteKey(ctx context.Context, key K) error {
	if err := c.client.Del(ctx, string(key)).Err(); err != nil {
		return fmt.Errorf("cache del %s: %w", key, err)
	}
	return nil
}

// ── Hash fields ───────────────────────────────────────────────────────────────

func (c *Cache[K, F, V]) PutHashField(ctx context.Context, key K, field F, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s/%s: %w", key, field, err)
	}
	if err := c.client.HSet(ctx, string(key), string(field), data).Err(); err != nil {
		return fmt.Errorf("cache hset %s/%s: %w", key, field, err)
	}
	return nil
}

func (c *Cache[K, F, V]) GetHashField(ctx context.Context, key K, field F) (V, bool, error) {
	var zero V
	raw, err := c.client.HGet(ctx, string(key), string(field)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("cache hget %s/%s: %w", key, field, err)
	}
	return decode[V](raw, string(key)+"/"+string(field))
}

func (c *Cache[K, F, V]) HasHashField(ctx context.Context, key K, field F) (bool, error) {
	ok, err := c.client.HExists(ctx, string(key), string(field)).Result()
	if err != nil {
		return false, fmt.Errorf("cache hexists %s/%s: %w", key, field, err)
	}
	return ok, nil
}

// GetAllHashFields returns every field of key. A missing key yields an empty map.
func (c *Cache[K, F, V]) GetAllHashFields(ctx context.Context, key K) (map[F]V, error) {
	entries, err := c.client.HGetAll(ctx, string(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache hgetall %s: %w", key, err)
	}
	out := make(map[F]V, len(entries))
	for field, raw := range entries {
		v, _, err := decode[V]([]byte(raw), string(key)+"/"+field)
		if err != nil {
			return nil, err
		}
		out[F(field)] = v
	}
	return out, nil
}

// GetHashFieldsByPrefix returns the values whose field name starts with
// prefix. It reads the whole hash, so the cost grows with the field count.
func (c *Cache[K, F, V]) GetHashFieldsByPrefix(ctx context.Context, key K, prefix F) ([]V, error) {
	entries, err := c.client.HGetAll(ctx, string(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache hgetall %s: %w", key, err)
	}
	var out []V
	for field, raw := range entries {
		if !strings.HasPrefix(field, string(prefix)) {
			continue
		}
		v, _, err := decode[V]([]byte(raw), string(key)+"/"+field)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Cache[K, F, V]) DeleteHashField(ctx context.Context, key K, field F) error {
	if err := c.client.HDel(ctx, string(key), string(field)).Err(); err != nil {
		return fmt.Errorf("cache hdel %s/%s: %w", key, field, err)
	}
	return nil
}

func (c *Cache[K, F, V]) DeleteHashFields(ctx context.Context, key K, fields []F) error {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	if err := c.client.HDel(ctx, string(key), names...).Err(); err != nil {
		return fmt.Errorf("cache hdel %s: %w", key, err)
	}
	return nil
}

func decode[V any](raw []byte, where string) (V, bool, error) {
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("cache decode %s: %w", where, err)
	}
	return v, true, nil
}
