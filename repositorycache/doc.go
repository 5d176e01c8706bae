// Package repositorycache decorates a repository with a cache-aside read path
// and a write-invalidation path.
//
// # Reads
//
// Get and List build a key with the cache package, look it up in a cache.Store
// and return the decoded value with cache.OriginHit. On a miss the base
// repository is called, the result is written back with the per-kind TTL, and
// the value is returned with cache.OriginMiss:
//
//	repo := repositorycache.New[catalog.Movie, catalog.MovieQuery]("movies", base, store,
//		repositorycache.WithTTL(policy.For("movies")),
//		repositorycache.WithLogger(logger),
//	)
//
//	movie, origin, err := repo.Get(ctx, id)
//	page, origin, err := repo.List(ctx, catalog.MovieQuery{Genre: "action", Page: 1})
//
// Repository errors, including not-found, are returned unchanged and never
// cached. Store failures are logged and treated as a miss, so an unavailable
// cache only costs latency. Population runs on a context detached from the
// caller.
//
// WithCoalescing collapses concurrent misses on the same key into a single
// repository load. WithCacheBypass forces a reload for one request.
//
// # Writes
//
// Create, Update and Delete call the base repository first. Only after it
// succeeds are cache entries removed:
//
//   - update and delete remove <kind>:entity:<id>
//   - every write removes all keys under <kind>:list:
//
// Invalidation is retried a bounded number of times. If it still fails the
// write is reported as successful: the failure is logged, counted through the
// Recorder and passed to the InvalidationFailureHandler. Stale entries then
// live at most until their TTL expires.
package repositorycache
