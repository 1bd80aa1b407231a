// Package cache provides the Redis-backed position cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signalsfoundry/astro-aspects/model"
)

// DefaultPrefix namespaces every key written by the cache.
const DefaultPrefix = "astro:"

// SubjectEventsChannel carries subject store events for other replicas.
const SubjectEventsChannel = "astro:subjects"

// Options configures a Redis cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisCache stores resolved charts as JSON. It satisfies
// ephem.PositionCache.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Key returns the namespaced Redis key for key.
func (r *RedisCache) Key(key string) string { return r.prefix + key }

// Get returns the cached chart for key. A missing key is not an error.
func (r *RedisCache) Get(ctx context.Context, key string) (*model.Chart, bool, error) {
	raw, err := r.client.Get(ctx, r.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	chart, err := DecodeChart(raw)
	if err != nil {
		return nil, false, err
	}
	return chart, true, nil
}

// Set stores chart under key with the given expiry (zero keeps it forever).
func (r *RedisCache) Set(ctx context.Context, key string, chart *model.Chart, ttl time.Duration) error {
	raw, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	if err := r.client.Set(ctx, r.Key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// PublishSubjectEvent announces a subject change on SubjectEventsChannel.
func (r *RedisCache) PublishSubjectEvent(ctx context.Context, kind string, subjectID string) error {
	msg, err := json.Marshal(map[string]string{"event": kind, "subject_id": subjectID})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, SubjectEventsChannel, msg).Err()
}

// Close releases the underlying client.
func (r *RedisCache) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// DecodeChart parses a cached chart payload.
func DecodeChart(raw []byte) (*model.Chart, error) {
	var chart model.Chart
	if err := json.Unmarshal(raw, &chart); err != nil {
		return nil, fmt.Errorf("decode cached chart: %w", err)
	}
	return &chart, nil
}
