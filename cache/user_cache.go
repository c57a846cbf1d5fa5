package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medprofile/model"

	"github.com/go-redis/redis/v8"
)

const (
	userIdentityKey = "user:identity:%s"
	userIdentityTTL = 10 * time.Minute
)

// UserCache keeps the default projection of users resolved from access
// tokens. The password hash and medical notes are never written to it.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache 创建用户缓存
func NewUserCache(client *redis.Client) *UserCache {
	return &UserCache{client: client, ttl: userIdentityTTL}
}

func identityKey(id string) string {
	return fmt.Sprintf(userIdentityKey, id)
}

// Get returns the cached user, or nil on a miss.
func (c *UserCache) Get(ctx context.Context, id string) (*model.User, error) {
	data, err := c.client.Get(ctx, identityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached user %s: %w", id, err)
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user %s: %w", id, err)
	}
	return &user, nil
}

// Set stores user under its id.
func (c *UserCache) Set(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user.WithoutNotes())
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return c.client.Set(ctx, identityKey(user.ID), data, c.ttl).Err()
}

// Invalidate drops the cached entry for id.
func (c *UserCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, identityKey(id)).Err()
}

// Ping checks the redis connection.
func (c *UserCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
