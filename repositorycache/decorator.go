package repositorycache

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goliatone/cinebase/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Query is a list query that knows its canonical cache parameters.
// Two queries that select the same rows must return equal Params.
type Query interface {
	CacheParams() cache.Params
}

// Repository is the persistence contract the cached repository decorates.
// Load returns the domain not-found error for a missing id. Update applies
// mutate to the stored record and persists the result.
type Repository[T any, Q Query] interface {
	Load(ctx context.Context, id string) (T, error)
	Query(ctx context.Context, q Q) ([]T, int, error)
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, id string, mutate func(T) (T, error)) (T, error)
	Delete(ctx context.Context, id string) error
}

// Page is a cached list result.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// CachedRepository decorates a base repository with a cache-aside read path
// and a write-invalidation path for one entity kind.
type CachedRepository[T any, Q Query] struct {
	base  Repository[T, Q]
	store cache.Store
	kind  string
	opts  options
	group singleflight.Group
}

// New creates a CachedRepository for kind that wraps base with store.
func New[T any, Q Query](kind string, base Repository[T, Q], store cache.Store, opts ...Option) *CachedRepository[T, Q] {
	o := defaultOptions(kind)
	for _, opt := range opts {
		opt(&o)
	}
	return &CachedRepository[T, Q]{
		base:  base,
		store: store,
		kind:  kind,
		opts:  o,
	}
}

// Kind returns the entity kind used in cache keys.
func (c *CachedRepository[T, Q]) Kind() string {
	return c.kind
}

// Get returns the entity with id, from the cache when possible.
func (c *CachedRepository[T, Q]) Get(ctx context.Context, id string) (T, cache.Origin, error) {
	key := cache.BuildEntityKey(c.kind, id)
	return readThrough(ctx, c, key, c.opts.ttl.Entity, func(ctx context.Context) (T, error) {
		return c.base.Load(ctx, id)
	})
}

// List returns one page of q, from the cache when possible.
func (c *CachedRepository[T, Q]) List(ctx context.Context, q Q) (Page[T], cache.Origin, error) {
	key := cache.BuildListKey(c.kind, q.CacheParams())
	return readThrough(ctx, c, key, c.opts.ttl.List, func(ctx context.Context) (Page[T], error) {
		items, total, err := c.base.Query(ctx, q)
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: items, Total: total}, nil
	})
}

// Create persists record and then invalidates every list of the kind.
func (c *CachedRepository[T, Q]) Create(ctx context.Context, record T) (T, error) {
	created, err := c.base.Create(ctx, record)
	if err != nil {
		return created, err
	}
	c.invalidate(ctx, opCreate, "")
	return created, nil
}

// Update persists the mutation and then invalidates the entity and every list.
func (c *CachedRepository[T, Q]) Update(ctx context.Context, id string, mutate func(T) (T, error)) (T, error) {
	updated, err := c.base.Update(ctx, id, mutate)
	if err != nil {
		return updated, err
	}
	c.invalidate(ctx, opUpdate, id)
	return updated, nil
}

// Delete removes the entity and then invalidates it and every list.
func (c *CachedRepository[T, Q]) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, opDelete, id)
	return nil
}

type loaded[V any] struct {
	value V
	data  []byte
}

// readThrough implements lookup, load and populate for a single key.
func readThrough[V any, T any, Q Query](
	ctx context.Context,
	c *CachedRepository[T, Q],
	key string,
	ttl time.Duration,
	load func(context.Context) (V, error),
) (V, cache.Origin, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, "", err
	}

	if !IsCacheBypassed(ctx) {
		if v, ok := lookup[V](ctx, c, key); ok {
			c.recordRead(cache.OriginHit)
			return v, cache.OriginHit, nil
		}
	}

	fetch := func(ctx context.Context) (loaded[V], error) {
		v, err := load(ctx)
		if err != nil {
			return loaded[V]{}, err
		}
		return loaded[V]{value: v, data: c.populate(ctx, key, v, ttl)}, nil
	}

	var (
		res loaded[V]
		err error
	)
	if c.opts.coalesce {
		res, err = coalesce(ctx, &c.group, key, fetch)
	} else {
		res, err = fetch(ctx)
	}
	if err != nil {
		return zero, "", err
	}

	c.recordRead(cache.OriginMiss)
	return res.value, cache.OriginMiss, nil
}

// lookup returns the decoded entry under key. Transport failures and
// undecodable entries are logged and reported as a miss.
func lookup[V any, T any, Q Query](ctx context.Context, c *CachedRepository[T, Q], key string) (V, bool) {
	var v V

	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.storeFailed("get", key, err)
		return v, false
	}
	if !found {
		return v, false
	}

	if err := cache.Decode(data, &v); err != nil {
		c.opts.logger.Warn("dropping undecodable cache entry",
			zap.String("kind", c.kind),
			zap.String("key", key),
			zap.Error(err),
		)
		if err := c.store.Delete(context.WithoutCancel(ctx), key); err != nil {
			c.storeFailed("delete", key, err)
		}
		var empty V
		return empty, false
	}
	return v, true
}

// populate writes v under key on a detached context so a caller that goes
// away after the load still leaves a warm cache behind. It returns the
// encoded value, or nil when encoding failed.
func (c *CachedRepository[T, Q]) populate(ctx context.Context, key string, v any, ttl time.Duration) []byte {
	data, err := cache.Encode(v)
	if err != nil {
		c.opts.logger.Warn("failed to encode cache entry",
			zap.String("kind", c.kind),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}
	if err := c.store.Set(context.WithoutCancel(ctx), key, data, ttl); err != nil {
		c.storeFailed("set", key, err)
	}
	return data
}

// coalesce collapses concurrent loads of key into one. The shared load runs
// detached from any single caller; each caller still honours its own context.
// Followers decode their own copy so no caller shares mutable state.
func coalesce[V any](ctx context.Context, group *singleflight.Group, key string, fetch func(context.Context) (loaded[V], error)) (loaded[V], error) {
	ch := group.DoChan(key, func() (any, error) {
		return fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return loaded[V]{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return loaded[V]{}, r.Err
		}
		res := r.Val.(loaded[V])
		if r.Shared && res.data != nil {
			var v V
			if err := cache.Decode(res.data, &v); err == nil {
				res.value = v
			}
		}
		return res, nil
	}
}

type writeOp string

const (
	opCreate writeOp = "create"
	opUpdate writeOp = "update"
	opDelete writeOp = "delete"
)

// invalidate removes the entity key (when id is set) and every list key of
// the kind. It runs after the repository commit on a detached context, and
// never fails the write: exhausted retries are reported out of band.
func (c *CachedRepository[T, Q]) invalidate(ctx context.Context, op writeOp, id string) {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	var keys []string

	if id != "" {
		key := cache.BuildEntityKey(c.kind, id)
		if err := c.retry(ctx, func() error { return c.store.Delete(ctx, key) }); err != nil {
			errs = append(errs, err)
			keys = append(keys, key)
		}
	}

	prefix := cache.ListPrefix(c.kind)
	if err := c.retry(ctx, func() error { return c.store.DeleteByPrefix(ctx, prefix) }); err != nil {
		errs = append(errs, err)
		keys = append(keys, prefix+"*")
	}

	if len(errs) == 0 {
		c.opts.stats.RecordInvalidation(c.kind)
		return
	}

	failure := &InvalidationError{
		Kind: c.kind,
		Op:   string(op),
		ID:   id,
		Keys: keys,
		Err:  errors.Join(errs...),
	}

	c.opts.stats.RecordError(c.kind)
	if c.opts.recorder != nil {
		c.opts.recorder.RecordInvalidationFailure(c.kind)
	}
	c.opts.logger.Warn("cache invalidation failed after write, entries may be stale until TTL expiry",
		zap.String("kind", c.kind),
		zap.String("op", string(op)),
		zap.String("id", id),
		zap.Strings("keys", keys),
		zap.Error(failure.Err),
	)
	if c.opts.onInvalidationFailure != nil {
		c.opts.onInvalidationFailure(ctx, failure)
	}
}

// retry runs fn up to 1+retries times with a constant backoff between attempts.
func (c *CachedRepository[T, Q]) retry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.retryBackoff), uint64(c.opts.retries)),
		ctx,
	)
	return backoff.Retry(fn, b)
}

func (c *CachedRepository[T, Q]) storeFailed(op, key string, err error) {
	c.opts.stats.RecordError(c.kind)
	c.opts.logger.Debug("cache unavailable, falling back to repository",
		zap.String("kind", c.kind),
		zap.String("op", op),
		zap.String("key", key),
		zap.Bool("transport", cache.IsTransport(err)),
		zap.Error(err),
	)
}

func (c *CachedRepository[T, Q]) recordRead(origin cache.Origin) {
	c.opts.stats.RecordRead(c.kind, origin)
	if c.opts.recorder != nil {
		c.opts.recorder.RecordRead(c.kind, origin.String())
	}
}
