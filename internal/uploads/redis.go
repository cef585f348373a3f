package uploads

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "weblogd:upload-session:"

// RedisOptions configures a shared registry.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisRegistry keeps tokens in Redis so several server processes share
// one token per blog. Idle tokens expire through key TTLs.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry connects to Redis and verifies the connection.
func NewRedisRegistry(ctx context.Context, opts RedisOptions) (*RedisRegistry, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisRegistryFromClient(client, opts.TTL), nil
}

// NewRedisRegistryFromClient wraps an existing client.
func NewRedisRegistryFromClient(client *redis.Client, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRegistry{client: client, ttl: ttl}
}

// Token implements Registry. SET NX decides the winner when two processes
// create a token for the same blog at once.
func (r *RedisRegistry) Token(ctx context.Context, blogID int64) (string, error) {
	key := redisKey(blogID)
	for attempt := 0; attempt < 3; attempt++ {
		token, err := r.client.Get(ctx, key).Result()
		if err == nil {
			if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
				return "", err
			}
			return token, nil
		}
		if !errors.Is(err, redis.Nil) {
			return "", err
		}

		candidate := newToken()
		created, err := r.client.SetNX(ctx, key, candidate, r.ttl).Result()
		if err != nil {
			return "", err
		}
		if created {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("upload session for blog %d keeps changing", blogID)
}

// Peek implements Registry.
func (r *RedisRegistry) Peek(ctx context.Context, blogID int64) (string, bool, error) {
	token, err := r.client.Get(ctx, redisKey(blogID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Forget implements Registry.
func (r *RedisRegistry) Forget(ctx context.Context, blogID int64) error {
	return r.client.Del(ctx, redisKey(blogID)).Err()
}

// Evict implements Registry. Redis expires keys on its own.
func (r *RedisRegistry) Evict(context.Context) (int, error) {
	return 0, nil
}

// Close releases the client.
func (r *RedisRegistry) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func redisKey(blogID int64) string {
	return redisKeyPrefix + strconv.FormatInt(blogID, 10)
}
