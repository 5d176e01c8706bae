package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/cinebase/cache"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a cache.Store shared by every service replica. Keys are
// namespaced under the configured prefix. Every round trip is bounded by
// OpTimeout and failures surface as *cache.TransportError.
type RedisStore struct {
	client redis.UniversalClient
	cfg    RedisConfig
}

var (
	_ cache.Store     = (*RedisStore)(nil)
	_ cache.Inspector = (*RedisStore)(nil)
	_ cache.Pinger    = (*RedisStore)(nil)
)

// NewRedisStore wraps an existing redis client. The caller owns the client.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) (*RedisStore, error) {
	if client == nil {
		return nil, &ConfigError{Field: "client", Message: "cannot be nil"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client, cfg: cfg}, nil
}

func (s *RedisStore) key(key string) string {
	if s.cfg.Prefix == "" {
		return key
	}
	return s.cfg.Prefix + cache.KeySeparator + key
}

func (s *RedisStore) strip(key string) string {
	if s.cfg.Prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.cfg.Prefix+cache.KeySeparator)
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.OpTimeout)
}

// Get returns the payload stored under key. A missing key is a miss, not an error.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cache.NewTransportError("get", key, err)
	}
	return value, true, nil
}

// Set stores value under key with the given ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return cache.NewTransportError("set", key, s.client.Set(ctx, s.key(key), value, ttl).Err())
}

// Delete removes key. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return cache.NewTransportError("delete", key, s.client.Del(ctx, s.key(key)).Err())
}

// deletePasses bounds how often DeleteByPrefix rescans for keys that
// appeared or survived while it was deleting.
const deletePasses = 3

// DeleteByPrefix collects every matching key with SCAN, then deletes them in
// batches. Deleting while the cursor is live makes SCAN skip keys, so the
// scan always completes first. The keyspace is rescanned until it is empty;
// keys that survive every pass are reported as a transport error rather
// than a silent success.
func (s *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout*10)
	defer cancel()

	for range deletePasses {
		keys, err := s.scan(ctx, prefix)
		if err != nil {
			return cache.NewTransportError("delete_prefix", prefix, err)
		}
		if len(keys) == 0 {
			return nil
		}
		for batch := range slices.Chunk(keys, s.cfg.DeleteBatch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return cache.NewTransportError("delete_prefix", prefix, err)
			}
		}
	}

	keys, err := s.scan(ctx, prefix)
	if err != nil {
		return cache.NewTransportError("delete_prefix", prefix, err)
	}
	if len(keys) > 0 {
		return cache.NewTransportError("delete_prefix", prefix,
			fmt.Errorf("%d keys survived %d delete passes", len(keys), deletePasses))
	}
	return nil
}

// scan returns every full redis key under prefix.
func (s *RedisStore) scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.match(prefix), s.cfg.ScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// Keys lists keys under prefix with their remaining TTL, sorted by key.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]cache.KeyInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout*10)
	defer cancel()

	var infos []cache.KeyInfo
	iter := s.client.Scan(ctx, 0, s.match(prefix), s.cfg.ScanCount).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		ttl, err := s.client.TTL(ctx, full).Result()
		if err != nil {
			return nil, cache.NewTransportError("ttl", full, err)
		}
		// -2 means the key expired between SCAN and TTL.
		if ttl == -2 {
			continue
		}
		infos = append(infos, cache.KeyInfo{Key: s.strip(full), TTL: ttl})
	}
	if err := iter.Err(); err != nil {
		return nil, cache.NewTransportError("keys", prefix, err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Size counts the keys under the store prefix. DBSIZE is avoided since the
// database may be shared with other services.
func (s *RedisStore) Size(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout*10)
	defer cancel()

	count := 0
	iter := s.client.Scan(ctx, 0, s.match(""), s.cfg.ScanCount).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, cache.NewTransportError("size", "", err)
	}
	return count, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return cache.NewTransportError("ping", "", s.client.Ping(ctx).Err())
}

// match builds a SCAN pattern for keys under prefix. Glob metacharacters in
// the prefix are escaped so they match literally.
func (s *RedisStore) match(prefix string) string {
	return escapeGlob(s.key(prefix)) + "*"
}

func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
