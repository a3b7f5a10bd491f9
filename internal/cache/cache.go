package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

const DefaultTTL = 10 * time.Minute

// Redis caches merged tests under "<prefix>test:<rootID>".
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Dial connects to a single Redis server and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *Redis) key(rootID string) string { return r.prefix + "test:" + rootID }

// LoadTest returns the cached test for rootID, or calls load and caches its
// result. A Redis failure falls through to load.
func (r *Redis) LoadTest(ctx context.Context, rootID string, load func(context.Context) (exam.Test, error)) (exam.Test, error) {
	var t exam.Test
	err := r.CacheOrExecute(ctx, r.key(rootID), &t, func() (any, error) {
		return load(ctx)
	})
	return t, err
}

// CacheOrExecute decodes key into dest, or runs fn, stores its result under
// key and decodes that into dest.
func (r *Redis) CacheOrExecute(ctx context.Context, key string, dest any, fn func() (any, error)) error {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		if jerr := json.Unmarshal(raw, dest); jerr == nil {
			return nil
		}
	}
	v, err := fn()
	if err != nil {
		return err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		return err
	}
	// best effort
	_ = r.client.Set(ctx, key, raw, r.ttl).Err()
	return json.Unmarshal(raw, dest)
}

func (r *Redis) Invalidate(ctx context.Context, rootID string) error {
	err := r.client.Del(ctx, r.key(rootID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Nop never caches.
type Nop struct{}

func (Nop) LoadTest(ctx context.Context, _ string, load func(context.Context) (exam.Test, error)) (exam.Test, error) {
	return load(ctx)
}

func (Nop) Invalidate(context.Context, string) error { return nil }
