// Package cache defines the building blocks of the read-through cache: key
// construction, the Store contract, per-kind TTL policy, the value codec and
// hit/miss statistics.
//
// # Keys
//
// Every key lives under an entity kind namespace:
//
//	movies:entity:<id>                      single entity
//	movies:list:genre=action&page=1         list query
//
// List keys are built from Params, an ordered list of normalized
// (name, value) pairs:
//
//	params := cache.NewParams(3).
//		AddFold("genre", "Action").
//		Add("page", 1).
//		Add("pageSize", 20)
//	key := cache.BuildListKey("movies", params)
//	// movies:list:genre=action&page=1&page_size=20
//
// Normalization guarantees that the same logical query always yields the same
// key: names are folded to snake_case, pairs are sorted, integers carry no
// leading zeros, set values are sorted and de-duplicated, and empty values are
// dropped. Strings are lower-cased only through AddFold, for filters whose
// underlying query is case-insensitive.
//
// Because all list variants of a kind share ListPrefix(kind), a writer can
// invalidate every cached list for the kind with a single DeleteByPrefix call
// without knowing which parameter combinations were ever cached.
//
// # Store
//
// Store is the backend contract. Get reports backend failures as a
// *TransportError alongside found=false, so callers fall back to the system of
// record and never surface cache problems to users. Concrete stores (sturdyc in
// process, Redis) live in internal/cacheinfra.
//
// # Values
//
// Encode and Decode use msgpack with json struct tags; fields tagged json:"-"
// (password hashes, for example) are never written to the cache.
//
// See the repositorycache package for the read and write paths built on top.
package cache
