package repositorycache

import (
	"context"
	"time"

	"github.com/goliatone/cinebase/cache"
	"go.uber.org/zap"
)

const (
	// DefaultInvalidationRetries is the number of extra attempts made for a
	// failed invalidation before it is reported.
	DefaultInvalidationRetries = 2

	// DefaultRetryBackoff is the pause between invalidation attempts.
	DefaultRetryBackoff = 10 * time.Millisecond
)

// Recorder receives read and invalidation outcomes, typically for Prometheus.
type Recorder interface {
	RecordRead(kind, origin string)
	RecordInvalidationFailure(kind string)
}

// InvalidationFailureHandler is called when a committed write could not
// invalidate its cache entries. Use it to schedule a repair, for example.
type InvalidationFailureHandler func(ctx context.Context, err *InvalidationError)

type options struct {
	ttl                   cache.KindTTL
	logger                *zap.Logger
	stats                 *cache.Stats
	recorder              Recorder
	coalesce              bool
	retries               int
	retryBackoff          time.Duration
	onInvalidationFailure InvalidationFailureHandler
}

func defaultOptions(kind string) options {
	return options{
		ttl:          cache.DefaultPolicy().For(kind),
		logger:       zap.NewNop(),
		retries:      DefaultInvalidationRetries,
		retryBackoff: DefaultRetryBackoff,
	}
}

// Option configures a CachedRepository.
type Option func(*options)

// WithTTL overrides the entity and list TTLs.
func WithTTL(ttl cache.KindTTL) Option {
	return func(o *options) {
		if ttl.Entity > 0 {
			o.ttl.Entity = ttl.Entity
		}
		if ttl.List > 0 {
			o.ttl.List = ttl.List
		}
	}
}

// WithLogger sets the logger for absorbed cache failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStats shares a stats collector across repositories.
func WithStats(stats *cache.Stats) Option {
	return func(o *options) {
		o.stats = stats
	}
}

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithCoalescing collapses concurrent misses on the same key into a single
// repository load.
func WithCoalescing() Option {
	return func(o *options) {
		o.coalesce = true
	}
}

// WithInvalidationRetries sets how many extra invalidation attempts are made
// and the pause between them. Negative values are treated as zero.
func WithInvalidationRetries(retries int, pause time.Duration) Option {
	return func(o *options) {
		o.retries = max(retries, 0)
		o.retryBackoff = max(pause, 0)
	}
}

// WithInvalidationFailureHandler registers h for failed invalidations.
func WithInvalidationFailureHandler(h InvalidationFailureHandler) Option {
	return func(o *options) {
		o.onInvalidationFailure = h
	}
}
