package repositorycache

import (
	"context"
)

type cacheBypassContextKey struct{}

// WithCacheBypass marks ctx so reads skip the cache lookup. The fresh result
// is still written back, which makes this a forced refresh.
func WithCacheBypass(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheBypassContextKey{}, true)
}

// IsCacheBypassed reports whether ctx was marked with WithCacheBypass.
func IsCacheBypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypass, _ := ctx.Value(cacheBypassContextKey{}).(bool)
	return bypass
}
