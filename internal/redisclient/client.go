package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireCartLock takes the per-user cart mutation lock. Returns false when
// another request already holds it.
func (c *Client) AcquireCartLock(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, cartLockKey(userID), "1", ttl).Result()
}

// ReleaseCartLock releases the per-user cart mutation lock.
func (c *Client) ReleaseCartLock(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, cartLockKey(userID)).Err()
}

func cartLockKey(userID int64) string {
	return fmt.Sprintf("lock:cart:%d", userID)
}
