package cacheinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/cinebase/cache"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultRedisConfig()
	cfg.OpTimeout = time.Second
	cfg.DeleteBatch = 3
	cfg.ScanCount = 2

	store, err := NewRedisStore(client, cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, mr
}

func TestNewRedisStore_Validation(t *testing.T) {
	if _, err := NewRedisStore(nil, DefaultRedisConfig()); err == nil {
		t.Error("expected error for nil client")
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	cfg := DefaultRedisConfig()
	cfg.OpTimeout = 0
	if _, err := NewRedisStore(client, cfg); err == nil {
		t.Error("expected error for zero op timeout")
	}
}

func TestRedisStore_GetSetDelete(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "movies:entity:1"); found || err != nil {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}

	if err := store.Set(ctx, "movies:entity:1", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists("cinebase:movies:entity:1") {
		t.Error("expected key to be written under the store prefix")
	}
	if ttl := mr.TTL("cinebase:movies:entity:1"); ttl != time.Minute {
		t.Errorf("expected ttl of 1m, got %v", ttl)
	}

	got, found, err := store.Get(ctx, "movies:entity:1")
	if err != nil || !found || string(got) != "payload" {
		t.Fatalf("Get() = %q, %v, %v", got, found, err)
	}

	if err := store.Delete(ctx, "movies:entity:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "movies:entity:1"); err != nil {
		t.Errorf("deleting an absent key should succeed, got %v", err)
	}
	if mr.Exists("cinebase:movies:entity:1") {
		t.Error("expected key to be deleted")
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "movies:list:all", []byte("list"), 60*time.Second)
	mr.FastForward(61 * time.Second)

	if _, found, _ := store.Get(ctx, "movies:list:all"); found {
		t.Error("expected entry to expire")
	}
}

func TestRedisStore_DeleteByPrefix(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = store.Set(ctx, fmt.Sprintf("movies:list:page=%d", i), []byte("x"), time.Minute)
	}
	_ = store.Set(ctx, "movies:entity:1", []byte("x"), time.Minute)
	_ = store.Set(ctx, "users:list:all", []byte("x"), time.Minute)
	mr.Set("other-service:movies:list:all", "x")

	if err := store.DeleteByPrefix(ctx, "movies:list:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	keys := mr.Keys()
	want := []string{"cinebase:movies:entity:1", "cinebase:users:list:all", "other-service:movies:list:all"}
	if len(keys) != len(want) {
		t.Fatalf("unexpected keys after prefix delete: %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestRedisStore_DeleteByPrefix_ClearsWholeNamespace(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		_ = store.Set(ctx, fmt.Sprintf("movies:list:page=%02d", i), []byte("x"), time.Minute)
		_ = store.Set(ctx, fmt.Sprintf("users:entity:%02d", i), []byte("x"), time.Minute)
	}
	mr.Set("other-service:key", "x")

	if err := store.DeleteByPrefix(ctx, ""); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "other-service:key" {
		t.Errorf("expected only the foreign key to survive, got %d keys: %v", len(keys), keys)
	}
	if size, err := store.Size(ctx); err != nil || size != 0 {
		t.Errorf("Size() = %d, %v; want 0", size, err)
	}
}

func TestRedisStore_DeleteByPrefix_Empty(t *testing.T) {
	store, _ := newTestRedisStore(t)

	if err := store.DeleteByPrefix(context.Background(), "movies:list:"); err != nil {
		t.Errorf("deleting an empty prefix should succeed, got %v", err)
	}
}

func TestRedisStore_KeysAndSize(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "movies:entity:2", []byte("b"), time.Minute)
	_ = store.Set(ctx, "movies:entity:1", []byte("a"), 2*time.Minute)
	mr.Set("unrelated", "x")

	infos, err := store.Keys(ctx, "movies:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "movies:entity:1" || infos[0].TTL != 2*time.Minute {
		t.Errorf("unexpected keys: %+v", infos)
	}

	size, err := store.Size(ctx)
	if err != nil || size != 2 {
		t.Errorf("Size() = %d, %v; want 2", size, err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisStore_TransportErrors(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	mr.Close()

	if _, found, err := store.Get(ctx, "movies:entity:1"); found || !cache.IsTransport(err) {
		t.Errorf("Get: expected transport error, got found=%v err=%v", found, err)
	}
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); !cache.IsTransport(err) {
		t.Errorf("Set: expected transport error, got %v", err)
	}
	if err := store.Delete(ctx, "k"); !cache.IsTransport(err) {
		t.Errorf("Delete: expected transport error, got %v", err)
	}
	if err := store.DeleteByPrefix(ctx, "movies:list:"); !cache.IsTransport(err) {
		t.Errorf("DeleteByPrefix: expected transport error, got %v", err)
	}
	if err := store.Ping(ctx); !cache.IsTransport(err) {
		t.Errorf("Ping: expected transport error, got %v", err)
	}
}

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob(`a*b?c[d]e\f`); got != `a\*b\?c\[d\]e\\f` {
		t.Errorf("escapeGlob() = %q", got)
	}
}
