// Package cache holds the optional read-through cache for search results.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"plateau/logging"
	"plateau/models"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// SearchCache stores search results keyed by index generation and request.
// A miss is (nil, false, nil); errors are reported but callers treat them as
// misses.
type SearchCache interface {
	Get(ctx context.Context, generation uint64, req models.SearchRequest) (*models.SearchResult, bool, error)
	Set(ctx context.Context, generation uint64, req models.SearchRequest, result *models.SearchResult) error
}

// Key derives the cache key. Bumping the generation on every write makes old
// entries unreachable; they age out through the TTL.
func Key(generation uint64, req models.SearchRequest) string {
	payload, _ := json.Marshal(req)
	hash := md5.Sum(payload)
	return fmt.Sprintf("kb:search:%d:%x", generation, hash)
}

type redisSearchCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisSearchCache caches results in redis for ttl.
func NewRedisSearchCache(client *redis.Client, ttl time.Duration) SearchCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisSearchCache{client: client, ttl: ttl, log: logging.Component("SearchCache")}
}

func (c *redisSearchCache) Get(ctx context.Context, generation uint64, req models.SearchRequest) (*models.SearchResult, bool, error) {
	key := Key(generation, req)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read search cache: %w", err)
	}
	var result models.SearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return nil, false, nil
	}
	c.log.Debug().Str("key", key).Msg("search cache hit")
	return &result, true, nil
}

func (c *redisSearchCache) Set(ctx context.Context, generation uint64, req models.SearchRequest, result *models.SearchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode search result: %w", err)
	}
	if err := c.client.Set(ctx, Key(generation, req), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write search cache: %w", err)
	}
	return nil
}

type nopSearchCache struct{}

// NewNopSearchCache returns a cache that never hits.
func NewNopSearchCache() SearchCache {
	return nopSearchCache{}
}

func (nopSearchCache) Get(context.Context, uint64, models.SearchRequest) (*models.SearchResult, bool, error) {
	return nil, false, nil
}

func (nopSearchCache) Set(context.Context, uint64, models.SearchRequest, *models.SearchResult) error {
	return nil
}

// Connect opens a redis client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
