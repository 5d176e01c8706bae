package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/cinebase/cache"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerStore short-circuits calls to a failing remote store. While the
// breaker is open every operation fails fast with a *cache.TransportError,
// so reads fall back to the repository without waiting on a dead backend.
type BreakerStore struct {
	next cache.Store
	cb   *gobreaker.CircuitBreaker
}

var _ cache.Store = (*BreakerStore)(nil)

// NewBreakerStore wraps next. A zero ConsecutiveFailures returns next unchanged.
func NewBreakerStore(next cache.Store, cfg BreakerConfig, logger *zap.Logger) cache.Store {
	if cfg.ConsecutiveFailures == 0 {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !cache.IsTransport(err)
		},
	})

	return &BreakerStore{next: next, cb: cb}
}

// State reports the breaker state, used by health checks.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerStore) Unwrap() cache.Store {
	return s.next
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		value []byte
		found bool
	}
	out, err := s.cb.Execute(func() (interface{}, error) {
		value, found, err := s.next.Get(ctx, key)
		return result{value: value, found: found}, err
	})
	if err != nil {
		return nil, false, breakerError("get", key, err)
	}
	r := out.(result)
	return r.value, r.found, nil
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Set(ctx, key, value, ttl)
	})
	return breakerError("set", key, err)
}

func (s *BreakerStore) Delete(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Delete(ctx, key)
	})
	return breakerError("delete", key, err)
}

func (s *BreakerStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.DeleteByPrefix(ctx, prefix)
	})
	return breakerError("delete_prefix", prefix, err)
}

// breakerError maps gobreaker rejections to transport errors.
func breakerError(op, key string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &cache.TransportError{Op: op, Key: key, Err: err}
	}
	return err
}
