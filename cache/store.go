package cache

import (
	"context"
	"errors"
	"time"
)

// ErrTransport is matched by every error a Store returns when the backend
// could not be reached or did not answer in time.
var ErrTransport = errors.New("cache: transport failure")

// Store is the key-value contract the read and write paths depend on.
// Implementations live in internal/cacheinfra.
//
// Contract:
//   - Get returns (nil, false, nil) on a clean miss. On backend failure it returns
//     found=false together with a *TransportError so callers can log and fall back.
//   - Set is best-effort. A ttl <= 0 means "do not cache" and removes any prior entry.
//   - Delete is idempotent: deleting an absent key is not an error.
//   - DeleteByPrefix removes every key starting with prefix, or returns an error.
//     It never reports success while matching keys it tried to remove survive.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// KeyInfo describes a live cache entry.
type KeyInfo struct {
	Key string        `json:"key"`
	TTL time.Duration `json:"ttl"`
}

// Inspector is implemented by stores that can enumerate their entries.
type Inspector interface {
	Keys(ctx context.Context, prefix string) ([]KeyInfo, error)
	Size(ctx context.Context) (int, error)
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TransportError wraps a backend failure for a single store operation.
type TransportError struct {
	Op  string
	Key string
	Err error
}

func (e *TransportError) Error() string {
	msg := "cache: " + e.Op + " failed"
	if e.Key != "" {
		msg += " for key " + e.Key
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports a TransportError as ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError builds a TransportError, returning nil when err is nil.
func NewTransportError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Key: key, Err: err}
}

// IsTransport reports whether err came from an unreachable or slow backend.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// Wrapper is implemented by Store decorators.
type Wrapper interface {
	Unwrap() Store
}

// AsInspector walks the decorator chain and returns the first Inspector.
func AsInspector(store Store) (Inspector, bool) {
	for store != nil {
		if in, ok := store.(Inspector); ok {
			return in, true
		}
		w, ok := store.(Wrapper)
		if !ok {
			return nil, false
		}
		store = w.Unwrap()
	}
	return nil, false
}

// AsPinger walks the decorator chain and returns the first Pinger.
func AsPinger(store Store) (Pinger, bool) {
	for store != nil {
		if p, ok := store.(Pinger); ok {
			return p, true
		}
		w, ok := store.(Wrapper)
		if !ok {
			return nil, false
		}
		store = w.Unwrap()
	}
	return nil, false
}
