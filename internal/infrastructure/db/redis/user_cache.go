package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identitystore/identity-service/internal/core/ports"
)

var (
	_ ports.UserCache                                 = (*UserCache)(nil)
	_ ports.ValueCache[string, ports.UserView]        = (*Cache[string, string, ports.UserView])(nil)
	_ ports.HashCache[string, string, ports.UserView] = (*Cache[string, string, ports.UserView])(nil)
)

const (
	userKeyPrefix     = "identity:user:"
	usernameKeyPrefix = "identity:username:"
)

// UserCache projects user views into Redis: one key per view
// (identity:user:<id>) plus a username → id key per user. Each key carries
// its own TTL, refreshed only when that user is written, so no view outlives
// the TTL after its last write.
type UserCache struct {
	views *Cache[string, string, ports.UserView]
	index *Cache[string, string, string]
	ttl   time.Duration
}

// NewUserCache returns a UserCache. ttl <= 0 keeps entries until evicted.
func NewUserCache(client redis.Cmdable, ttl time.Duration) *UserCache {
	return &UserCache{
		views: NewCache[string, string, ports.UserView](client),
		index: NewCache[string, string, string](client),
		ttl:   ttl,
	}
}

func (c *UserCache) Get(ctx context.Context, id string) (*ports.UserView, bool, error) {
	v, ok, err := c.views.GetValue(ctx, userKeyPrefix+id)
	if err != nil || !ok {
		return nil, false, err
	}
	return &v, true, nil
}

func (c *UserCache) IDForUsername(ctx context.Context, username string) (string, bool, error) {
	return c.index.GetValue(ctx, usernameKeyPrefix+username)
}

func (c *UserCache) Put(ctx context.Context, user *ports.UserView) error {
	viewKey := userKeyPrefix + user.ID
	if err := c.views.SetValue(ctx, viewKey, *user); err != nil {
		return err
	}
	indexKey := usernameKeyPrefix + user.Username
	if err := c.index.SetValue(ctx, indexKey, user.ID); err != nil {
		return err
	}
	if c.ttl <= 0 {
		return nil
	}
	if err := c.views.SetExpiration(ctx, viewKey, c.ttl); err != nil {
		return err
	}
	return c.index.SetExpiration(ctx, indexKey, c.ttl)
}

func (c *UserCache) Remove(ctx context.Context, id, username string) error {
	if err := c.views.DeleteKey(ctx, userKeyPrefix+id); err != nil {
		return err
	}
	if username == "" {
		return nil
	}
	return c.index.DeleteKey(ctx, usernameKeyPrefix+username)
}
