package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStats_Snapshot(t *testing.T) {
	stats := NewStats()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				stats.RecordRead("movies", OriginMiss)
				return
			}
			stats.RecordRead("Movies", OriginHit)
		}(i)
	}
	wg.Wait()
	stats.RecordError("users")
	stats.RecordInvalidation("users")

	snapshot := stats.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 kinds, got %d: %+v", len(snapshot), snapshot)
	}

	movies := snapshot[0]
	if movies.Kind != "movies" || movies.Hits != 40 || movies.Misses != 10 {
		t.Errorf("unexpected movie stats: %+v", movies)
	}
	if movies.HitRatio != 0.8 {
		t.Errorf("expected hit ratio 0.8, got %v", movies.HitRatio)
	}

	users := snapshot[1]
	if users.Errors != 1 || users.Invalidations != 1 || users.HitRatio != 0 {
		t.Errorf("unexpected user stats: %+v", users)
	}
}

func TestStats_NilIsNoop(t *testing.T) {
	var stats *Stats
	stats.RecordRead("movies", OriginHit)
	stats.RecordError("movies")
	if got := stats.Snapshot(); got != nil {
		t.Errorf("expected nil snapshot, got %+v", got)
	}
}

func TestCodec_HonoursJSONTags(t *testing.T) {
	type record struct {
		ID       string    `json:"id"`
		Secret   string    `json:"-"`
		Tags     []string  `json:"tags"`
		Released time.Time `json:"released"`
	}

	in := record{ID: "1", Secret: "hash", Tags: []string{"a"}, Released: time.Date(1999, 3, 31, 0, 0, 0, 0, time.UTC)}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out record
	if err := Decode(data, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.ID != "1" || len(out.Tags) != 1 || !out.Released.Equal(in.Released) {
		t.Errorf("round trip lost data: %+v", out)
	}
	if out.Secret != "" {
		t.Errorf("json:\"-\" field leaked into the cache: %q", out.Secret)
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewTransportError("get", "movies:entity:1", cause)

	if !IsTransport(err) {
		t.Error("expected IsTransport to match")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be preserved")
	}
	if NewTransportError("get", "k", nil) != nil {
		t.Error("expected nil for a nil cause")
	}
	if again := NewTransportError("delete", "k", err); again != err {
		t.Error("expected an existing TransportError to be returned as is")
	}
	if IsTransport(errors.New("other")) {
		t.Error("unexpected match for an unrelated error")
	}
}

func TestPolicy(t *testing.T) {
	policy := DefaultPolicy()

	if got := policy.For("Movies"); got.List != 60*time.Second || got.Entity != 10*time.Minute {
		t.Errorf("unexpected movie TTLs: %+v", got)
	}
	if got := policy.For("reviews"); got != policy.Default {
		t.Errorf("expected default TTLs for unknown kind, got %+v", got)
	}
	if got := policy.MaxTTL(); got != 10*time.Minute {
		t.Errorf("MaxTTL() = %v, want 10m", got)
	}
	if err := policy.Validate(); err != nil {
		t.Errorf("default policy should validate: %v", err)
	}

	policy.Kinds["movies"] = KindTTL{Entity: time.Minute}
	if err := policy.Validate(); err == nil {
		t.Error("expected a zero list TTL to be rejected")
	}
}
