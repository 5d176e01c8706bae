package cacheinfra

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/cinebase/pkg/testsupport"
)

func newTestMemoryStore(t *testing.T, clock *testsupport.Clock) *MemoryStore {
	t.Helper()

	cfg := Config{
		Capacity:           100,
		NumShards:          2,
		MaxTTL:             time.Hour,
		EvictionPercentage: 10,
		Clock:              clock.Now,
	}
	store, err := NewMemoryStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantErr: "config error in field Capacity: must be greater than 0"},
		{name: "zero shards", mutate: func(c *Config) { c.NumShards = 0 }, wantErr: "config error in field NumShards: must be greater than 0"},
		{name: "zero ttl", mutate: func(c *Config) { c.MaxTTL = 0 }, wantErr: "config error in field MaxTTL: must be greater than 0"},
		{name: "eviction too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, wantErr: "config error in field EvictionPercentage: must be between 1 and 100"},
		{name: "negative interval", mutate: func(c *Config) { c.EvictionInterval = -time.Second }, wantErr: "config error in field EvictionInterval: must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options for defaults, got %d", got)
	}

	cfg.EvictionInterval = time.Minute
	if got := len(cfg.ToSturdycOptions()); got != 1 {
		t.Errorf("expected 1 option with an eviction interval, got %d", got)
	}
}

func TestNewMemoryStore_InvalidConfig(t *testing.T) {
	store, err := NewMemoryStore(Config{})
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("expected *ConfigError, got %T", err)
	}
	if store != nil {
		t.Error("expected nil store on error")
	}
}

func TestMemoryStore_GetSet(t *testing.T) {
	clock := testsupport.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := newTestMemoryStore(t, clock)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "movies:entity:1"); found || err != nil {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}

	value := []byte("payload")
	if err := store.Set(ctx, "movies:entity:1", value, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X'

	got, found, err := store.Get(ctx, "movies:entity:1")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if string(got) != "payload" {
		t.Errorf("stored value was aliased with the caller's buffer: %q", got)
	}
}

func TestMemoryStore_PerKeyTTL(t *testing.T) {
	clock := testsupport.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := newTestMemoryStore(t, clock)
	ctx := context.Background()

	_ = store.Set(ctx, "movies:list:all", []byte("list"), 60*time.Second)
	_ = store.Set(ctx, "movies:entity:1", []byte("entity"), 10*time.Minute)

	clock.Advance(59 * time.Second)
	if _, found, _ := store.Get(ctx, "movies:list:all"); !found {
		t.Error("list entry expired early")
	}

	clock.Advance(time.Second)
	if _, found, _ := store.Get(ctx, "movies:list:all"); found {
		t.Error("list entry outlived its TTL")
	}
	if _, found, _ := store.Get(ctx, "movies:entity:1"); !found {
		t.Error("entity entry expired with the list TTL")
	}
}

func TestMemoryStore_NonPositiveTTLRemoves(t *testing.T) {
	clock := testsupport.NewClock(time.Now())
	store := newTestMemoryStore(t, clock)
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("v"), time.Minute)
	_ = store.Set(ctx, "k", []byte("v2"), 0)

	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("expected ttl <= 0 to remove the entry")
	}
}

func TestMemoryStore_DeleteByPrefix(t *testing.T) {
	clock := testsupport.NewClock(time.Now())
	store := newTestMemoryStore(t, clock)
	ctx := context.Background()

	keys := []string{
		"movies:list:all",
		"movies:list:genre=action",
		"movies:entity:1",
		"users:list:all",
	}
	for _, key := range keys {
		_ = store.Set(ctx, key, []byte(key), time.Minute)
	}

	if err := store.DeleteByPrefix(ctx, "movies:list:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	infos, err := store.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "movies:entity:1" || infos[1].Key != "users:list:all" {
		t.Errorf("unexpected keys after prefix delete: %+v", infos)
	}

	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("deleting an absent key should succeed, got %v", err)
	}
}

func TestMemoryStore_Keys(t *testing.T) {
	clock := testsupport.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := newTestMemoryStore(t, clock)
	ctx := context.Background()

	_ = store.Set(ctx, "movies:entity:2", []byte("b"), time.Minute)
	_ = store.Set(ctx, "movies:entity:1", []byte("a"), 2*time.Minute)
	clock.Advance(30 * time.Second)

	infos, err := store.Keys(ctx, "movies:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 keys, got %+v", infos)
	}
	if infos[0].Key != "movies:entity:1" || infos[0].TTL != 90*time.Second {
		t.Errorf("unexpected first key: %+v", infos[0])
	}
	if infos[1].TTL != 30*time.Second {
		t.Errorf("unexpected remaining ttl: %+v", infos[1])
	}

	size, err := store.Size(ctx)
	if err != nil || size != 2 {
		t.Errorf("Size() = %d, %v; want 2", size, err)
	}
}
