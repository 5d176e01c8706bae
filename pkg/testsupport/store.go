package testsupport

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/cinebase/cache"
)

// Store operation names, as recorded in Op.Name.
const (
	OpGet          = "get"
	OpSet          = "set"
	OpDelete       = "delete"
	OpDeletePrefix = "delete_prefix"
)

// ErrInjected is the default cause for injected store failures.
var ErrInjected = errors.New("injected store failure")

// Op is one recorded store call.
type Op struct {
	Name string
	Key  string
	TTL  time.Duration
}

type storeEntry struct {
	value     []byte
	expiresAt time.Time
}

type failure struct {
	remaining int
	err       error
}

// Store is a map-backed cache.Store that records every call and can be told
// to fail. It honours per-key TTLs against an injectable clock.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	entries  map[string]storeEntry
	ops      []Op
	failures map[string]*failure

	// Hook, when set, runs after every recorded call outside the lock.
	Hook func(Op)
}

var _ cache.Store = (*Store)(nil)

// NewStore creates an empty store. A nil now uses time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		entries:  make(map[string]storeEntry),
		failures: make(map[string]*failure),
	}
}

// FailNext makes the next times calls of op fail with err. A negative times
// fails until Heal. A nil err uses ErrInjected.
func (s *Store) FailNext(op string, times int, err error) {
	if err == nil {
		err = ErrInjected
	}
	s.mu.Lock()
	s.failures[op] = &failure{remaining: times, err: err}
	s.mu.Unlock()
}

// FailAlways makes every call of op fail until Heal.
func (s *Store) FailAlways(op string, err error) {
	s.FailNext(op, -1, err)
}

// Heal clears every injected failure.
func (s *Store) Heal() {
	s.mu.Lock()
	s.failures = make(map[string]*failure)
	s.mu.Unlock()
}

// Ops returns a copy of the recorded calls.
func (s *Store) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}

// Count returns how many times op was called.
func (s *Store) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.ops {
		if o.Name == op {
			n++
		}
	}
	return n
}

// ResetOps forgets recorded calls, keeping the data.
func (s *Store) ResetOps() {
	s.mu.Lock()
	s.ops = nil
	s.mu.Unlock()
}

// Has reports whether a live entry exists under key. It is not recorded.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	return ok
}

// Keys lists live keys, sorted. It is not recorded.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		if _, ok := s.live(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// TTL returns the remaining lifetime of key. It is not recorded.
func (s *Store) TTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return 0, false
	}
	return e.expiresAt.Sub(s.now()), true
}

// Put seeds an entry without recording the call.
func (s *Store) Put(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = storeEntry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	op := Op{Name: OpGet, Key: key}

	s.mu.Lock()
	err := s.record(op)
	var (
		value []byte
		found bool
	)
	if err == nil {
		var e storeEntry
		if e, found = s.live(key); found {
			value = e.value
		}
	}
	s.mu.Unlock()

	s.hook(op)
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	op := Op{Name: OpSet, Key: key, TTL: ttl}

	s.mu.Lock()
	err := s.record(op)
	if err == nil {
		if ttl <= 0 {
			delete(s.entries, key)
		} else {
			buf := make([]byte, len(value))
			copy(buf, value)
			s.entries[key] = storeEntry{value: buf, expiresAt: s.now().Add(ttl)}
		}
	}
	s.mu.Unlock()

	s.hook(op)
	return err
}

func (s *Store) Delete(_ context.Context, key string) error {
	op := Op{Name: OpDelete, Key: key}

	s.mu.Lock()
	err := s.record(op)
	if err == nil {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	s.hook(op)
	return err
}

func (s *Store) DeleteByPrefix(_ context.Context, prefix string) error {
	op := Op{Name: OpDeletePrefix, Key: prefix}

	s.mu.Lock()
	err := s.record(op)
	if err == nil {
		for key := range s.entries {
			if strings.HasPrefix(key, prefix) {
				delete(s.entries, key)
			}
		}
	}
	s.mu.Unlock()

	s.hook(op)
	return err
}

// record appends op and returns the injected failure for it, if any.
// Callers hold s.mu.
func (s *Store) record(op Op) error {
	s.ops = append(s.ops, op)

	f, ok := s.failures[op.Name]
	if !ok {
		return nil
	}
	if f.remaining == 0 {
		delete(s.failures, op.Name)
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return cache.NewTransportError(op.Name, op.Key, f.err)
}

// live returns the entry under key if it has not expired. Callers hold s.mu.
func (s *Store) live(key string) (storeEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return storeEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return storeEntry{}, false
	}
	return e, true
}

func (s *Store) hook(op Op) {
	if s.Hook != nil {
		s.Hook(op)
	}
}
