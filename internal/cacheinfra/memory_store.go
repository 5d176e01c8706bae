package cacheinfra

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/cinebase/cache"
	"github.com/viccon/sturdyc"
)

// entry wraps a cached payload with its own deadline. sturdyc applies a single
// TTL to the whole client, so per-key TTLs are enforced here on read.
type entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// MemoryStore is an in-process cache.Store backed by a sharded sturdyc client.
type MemoryStore struct {
	client *sturdyc.Client[entry]
	maxTTL time.Duration
	now    func() time.Time
}

var (
	_ cache.Store     = (*MemoryStore)(nil)
	_ cache.Inspector = (*MemoryStore)(nil)
)

// NewMemoryStore validates cfg and initializes the sturdyc client.
//
// Capacity, NumShards, MaxTTL and EvictionPercentage are passed to sturdyc.New.
// The remaining options are applied via ToSturdycOptions.
func NewMemoryStore(cfg Config) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryStore{client: client, maxTTL: cfg.MaxTTL, now: now}, nil
}

// Get returns the payload stored under key. Entries past their own deadline
// are dropped and reported as absent.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.ExpiresAt) {
		s.client.Delete(key)
		return nil, false, nil
	}
	return e.Value, true, nil
}

// Set stores value under key for ttl. A ttl above MaxTTL is clamped since
// sturdyc would evict the entry at MaxTTL anyway.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		s.client.Delete(key)
		return nil
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	s.client.Set(key, entry{Value: buf, ExpiresAt: s.now().Add(ttl)})
	return nil
}

// Delete removes a single key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (s *MemoryStore) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Keys lists live keys under prefix with their remaining TTL, sorted by key.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]cache.KeyInfo, error) {
	now := s.now()

	var infos []cache.KeyInfo
	for _, key := range s.client.ScanKeys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e, ok := s.client.Get(key)
		if !ok || !now.Before(e.ExpiresAt) {
			continue
		}
		infos = append(infos, cache.KeyInfo{Key: key, TTL: e.ExpiresAt.Sub(now)})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Size reports the number of entries held by sturdyc, including entries
// whose per-key deadline passed but have not been swept yet.
func (s *MemoryStore) Size(_ context.Context) (int, error) {
	return s.client.Size(), nil
}
