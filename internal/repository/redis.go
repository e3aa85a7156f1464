package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a client and verifies it with a ping.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MaxIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

type RedisPresenceCache struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisPresenceCache(client *redis.Client, keyPrefix string) *RedisPresenceCache {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceCache")
	}
	if keyPrefix == "" {
		keyPrefix = "tempvoice:"
	}
	return &RedisPresenceCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisPresenceCache) key(roomID string) string {
	return fmt.Sprintf("%spresence:%s", c.keyPrefix, roomID)
}

func (c *RedisPresenceCache) Get(ctx context.Context, roomID string) ([]string, bool, error) {
	val, err := c.client.Get(ctx, c.key(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get presence of room %s: %w", roomID, err)
	}

	var members []string
	if err := json.Unmarshal(val, &members); err != nil {
		return nil, false, fmt.Errorf("redis: decode presence of room %s: %w", roomID, err)
	}
	return members, true, nil
}

func (c *RedisPresenceCache) Set(ctx context.Context, roomID string, members []string, ttl time.Duration) error {
	if members == nil {
		members = []string{}
	}
	b, err := json.Marshal(members)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(roomID), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set presence of room %s: %w", roomID, err)
	}
	return nil
}

func (c *RedisPresenceCache) Delete(ctx context.Context, roomID string) error {
	if err := c.client.Del(ctx, c.key(roomID)).Err(); err != nil {
		return fmt.Errorf("redis: delete presence of room %s: %w", roomID, err)
	}
	return nil
}
