package cacheinfra

import (
	"context"
	"time"

	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/internal/metrics"
	"go.uber.org/zap"
)

// InstrumentedStore records latency and outcome of every store operation and
// logs transport failures. It never changes results.
type InstrumentedStore struct {
	next    cache.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

var _ cache.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps next. Both m and logger may be nil.
func NewInstrumentedStore(next cache.Store, m *metrics.Metrics, logger *zap.Logger) *InstrumentedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedStore{next: next, metrics: m, logger: logger}
}

func (s *InstrumentedStore) Unwrap() cache.Store {
	return s.next
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, found, err := s.next.Get(ctx, key)

	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case found:
		result = "hit"
	}
	s.observe("get", key, result, start, err)
	return value, found, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := s.next.Set(ctx, key, value, ttl)
	s.observe("set", key, outcome(err), start, err)
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.observe("delete", key, outcome(err), start, err)
	return err
}

func (s *InstrumentedStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	start := time.Now()
	err := s.next.DeleteByPrefix(ctx, prefix)
	s.observe("delete_prefix", prefix, outcome(err), start, err)
	return err
}

func (s *InstrumentedStore) observe(op, key, result string, start time.Time, err error) {
	elapsed := time.Since(start)
	s.metrics.ObserveCacheOp(op, result, elapsed)

	if err != nil {
		s.logger.Debug("cache operation failed",
			zap.String("op", op),
			zap.String("key", key),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
