package cache

import (
	"context"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/resilience"
)

// BreakerStore guards a Store with a circuit breaker so a failing Redis
// costs one fast error per request instead of a network timeout. Missing
// keys are not failures.
type BreakerStore struct {
	store   Store
	breaker *resilience.Breaker
}

func NewBreakerStore(store Store, cfg resilience.BreakerConfig) *BreakerStore {
	cfg.IsFailure = func(err error) bool {
		return err != nil && !pkgredis.IsNilError(err)
	}
	return &BreakerStore{store: store, breaker: resilience.NewBreaker("answer-cache", cfg)}
}

func (s *BreakerStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.breaker.Do(func() error {
		var err error
		value, err = s.store.Get(ctx, key)
		return err
	})
	return value, err
}

func (s *BreakerStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return s.breaker.Do(func() error {
		return s.store.Set(ctx, key, value, ttl)
	})
}

func (s *BreakerStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	err := s.breaker.Do(func() error {
		var err error
		deleted, err = s.store.FlushByPattern(ctx, pattern)
		return err
	})
	return deleted, err
}

// State reports the breaker state for the stats endpoint.
func (s *BreakerStore) State() resilience.State {
	return s.breaker.State()
}
