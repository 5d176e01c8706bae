package cache

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Origin tells a caller where a read result came from.
type Origin string

const (
	OriginHit  Origin = "HIT"
	OriginMiss Origin = "MISS"
)

// String returns the header value for the origin.
func (o Origin) String() string {
	return string(o)
}

type kindCounters struct {
	hits          *xsync.Counter
	misses        *xsync.Counter
	errors        *xsync.Counter
	invalidations *xsync.Counter
}

// Stats tracks read outcomes per entity kind. It is safe for concurrent use.
type Stats struct {
	kinds *xsync.MapOf[string, *kindCounters]
}

// KindStats is a point-in-time snapshot for one kind.
type KindStats struct {
	Kind          string  `json:"kind"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Errors        int64   `json:"errors"`
	Invalidations int64   `json:"invalidations"`
	HitRatio      float64 `json:"hit_ratio"`
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{kinds: xsync.NewMapOf[string, *kindCounters]()}
}

func (s *Stats) counters(kind string) *kindCounters {
	c, _ := s.kinds.LoadOrCompute(namespace(kind), func() *kindCounters {
		return &kindCounters{
			hits:          xsync.NewCounter(),
			misses:        xsync.NewCounter(),
			errors:        xsync.NewCounter(),
			invalidations: xsync.NewCounter(),
		}
	})
	return c
}

// RecordRead counts a read served with origin.
func (s *Stats) RecordRead(kind string, origin Origin) {
	if s == nil {
		return
	}
	c := s.counters(kind)
	if origin == OriginHit {
		c.hits.Inc()
		return
	}
	c.misses.Inc()
}

// RecordError counts a store failure absorbed by the read or write path.
func (s *Stats) RecordError(kind string) {
	if s == nil {
		return
	}
	s.counters(kind).errors.Inc()
}

// RecordInvalidation counts a completed write invalidation.
func (s *Stats) RecordInvalidation(kind string) {
	if s == nil {
		return
	}
	s.counters(kind).invalidations.Inc()
}

// Snapshot returns the counters for every kind seen so far, sorted by kind.
func (s *Stats) Snapshot() []KindStats {
	if s == nil {
		return nil
	}
	out := make([]KindStats, 0, s.kinds.Size())
	s.kinds.Range(func(kind string, c *kindCounters) bool {
		ks := KindStats{
			Kind:          kind,
			Hits:          c.hits.Value(),
			Misses:        c.misses.Value(),
			Errors:        c.errors.Value(),
			Invalidations: c.invalidations.Value(),
		}
		if total := ks.Hits + ks.Misses; total > 0 {
			ks.HitRatio = float64(ks.Hits) / float64(total)
		}
		out = append(out, ks)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
