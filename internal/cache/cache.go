// Package cache is the redis read-through cache in front of the question
// store's listing queries. A rebuild invalidates it by flushing every key
// under the bank's prefix.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/store"
	pkgredis "github.com/bagu-prep/questionbank/pkg/redis"
)

// KeyPrefix namespaces every key the question bank writes.
const KeyPrefix = "bagu:"

const (
	categoriesKey      = KeyPrefix + "categories"
	questionsKeyPrefix = KeyPrefix + "questions:"
)

// QuestionCache is a read-through Redis cache of categories and questions.
type QuestionCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a QuestionCache whose entries expire after ttl.
func New(client *pkgredis.Client, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "question-cache"),
	}
}

// Categories returns the cached category listing, calling load on a miss.
// Concurrent misses share one load. hit reports whether redis answered.
func (c *QuestionCache) Categories(ctx context.Context, load func(ctx context.Context) ([]store.Category, error)) ([]store.Category, bool, error) {
	return getOrCompute(ctx, c, categoriesKey, load)
}

// Questions is Categories for the question list of one category.
func (c *QuestionCache) Questions(ctx context.Context, category string, load func(ctx context.Context) ([]store.Question, error)) ([]store.Question, bool, error) {
	return getOrCompute(ctx, c, questionsKeyPrefix+category, load)
}

func getOrCompute[T any](ctx context.Context, c *QuestionCache, key string, load func(ctx context.Context) (T, error)) (T, bool, error) {
	var value T
	if c.get(ctx, key, &value) {
		return value, true, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		var cached T
		if c.get(ctx, key, &cached) {
			return cached, nil
		}
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return value, false, err
	}
	return v.(T), false, nil
}

func (c *QuestionCache) get(ctx context.Context, key string, dst any) bool {
	data, found, err := c.client.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if !found {
		c.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return false
	}
	c.hits.Add(1)
	return true
}

func (c *QuestionCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Name identifies the cache in invalidation logs.
func (c *QuestionCache) Name() string { return "redis" }

// Invalidate drops every cached listing.
func (c *QuestionCache) Invalidate(ctx context.Context, event ingestion.RebuildEvent) error {
	deleted, err := c.client.FlushByPattern(ctx, KeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating question cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted, "run_id", event.RunID)
	return nil
}

// Stats reports hits and misses since the cache was created.
func (c *QuestionCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
