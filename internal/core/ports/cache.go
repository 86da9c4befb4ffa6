package ports

import (
	"context"
	"time"
)

// ValueCache is the scalar half of the cache abstraction. A missing key is
// reported as ok == false, never as an error.
type ValueCache[K comparable, V any] interface {
	SetValue(ctx context.Context, key K, value V) error
	GetValue(ctx context.Context, key K) (value V, ok bool, err error)
	// SetExpiration is a no-op when key does not exist.
	SetExpiration(ctx context.Context, key K, ttl time.Duration) error
	DeleteKey(ctx context.Context, key K) error
}

// HashCache is the field-addressed half of the cache abstraction.
type HashCache[K comparable, F comparable, V any] interface {
	PutHashField(ctx context.Context, key K, field F, value V) error
	GetHashField(ctx context.Context, key K, field F) (value V, ok bool, err error)
	HasHashField(ctx context.Context, key K, field F) (bool, error)
	GetAllHashFields(ctx context.Context, key K) (map[F]V, error)
	// GetHashFieldsByPrefix scans every field of key; cost is O(fields).
	GetHashFieldsByPrefix(ctx context.Context, key K, prefix F) ([]V, error)
	DeleteHashField(ctx context.Context, key K, field F) error
	DeleteHashFields(ctx context.Context, key K, fields []F) error
}

// UserCache is the side cache the user service reads through and writes
// through. It is not transactional with the store; readers tolerate staleness.
type UserCache interface {
	Get(ctx context.Context, id string) (*UserView, bool, error)
	IDForUsername(ctx context.Context, username string) (string, bool, error)
	Put(ctx context.Context, user *UserView) error
	Remove(ctx context.Context, id, username string) error
}
