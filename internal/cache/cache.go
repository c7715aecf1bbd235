// Package cache memoises pipeline answers in Redis. Keys are derived from the
// corpus fingerprint, the normalised query terms and the requested match
// counts, so a corpus reload naturally stops old entries from matching.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/pipeline"
	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/resilience"
)

const (
	keyPrefix = "qa:answer:"

	defaultComputeTimeout = 30 * time.Second
)

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cacheable answer.
type Key struct {
	Fingerprint     string
	Terms           []string
	FileMatches     int
	SentenceMatches int
}

type AnswerCache struct {
	store          Store
	ttl            time.Duration
	computeTimeout time.Duration
	group          singleflight.Group
	logger         *slog.Logger
	hits           atomic.Int64
	misses         atomic.Int64
}

func New(store Store, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		store:          store,
		ttl:            ttl,
		computeTimeout: defaultComputeTimeout,
		logger:         slog.Default().With("component", "answer-cache"),
	}
}

// Get returns a cached answer. Store failures count as misses.
func (c *AnswerCache) Get(ctx context.Context, k Key) (*pipeline.Result, bool) {
	key := buildKey(k)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		switch {
		case pkgredis.IsNilError(err):
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.logger.Debug("cache bypassed", "key", key, "error", err)
		default:
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result pipeline.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

func (c *AnswerCache) Set(ctx context.Context, k Key, result *pipeline.Result) {
	key := buildKey(k)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached answer for k or computes it once, even
// when many callers ask for the same key concurrently. The shared
// computation runs detached from any single caller's cancellation, bounded
// by computeTimeout; each caller stops waiting when its own ctx ends.
func (c *AnswerCache) GetOrCompute(
	ctx context.Context,
	k Key,
	compute func(ctx context.Context) (*pipeline.Result, error),
) (*pipeline.Result, bool, error) {
	if result, ok := c.Get(ctx, k); ok {
		return result, true, nil
	}
	ch := c.group.DoChan(buildKey(k), func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		result, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		c.Set(cctx, k, result)
		return result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*pipeline.Result), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate drops every cached answer.
func (c *AnswerCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *AnswerCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// CircuitState reports the breaker state when the store is a BreakerStore.
func (c *AnswerCache) CircuitState() (string, bool) {
	bs, ok := c.store.(*BreakerStore)
	if !ok {
		return "", false
	}
	return bs.State().String(), true
}

// buildKey expects k.Terms already sorted and deduplicated, as produced by
// ranking.Query.
func buildKey(k Key) string {
	raw := fmt.Sprintf("%s|%s|files=%d|sentences=%d",
		k.Fingerprint, strings.Join(k.Terms, ","), k.FileMatches, k.SentenceMatches)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
