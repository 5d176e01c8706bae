// Package health reports the state of the service dependencies.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/internal/database"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check tests one dependency. A failing critical check makes the service
// unhealthy; any other failure only degrades it.
type Check struct {
	Name     string
	Critical bool
	Run      func(ctx context.Context) error
}

// Result is the outcome of one check.
type Result struct {
	Status    Status  `json:"status"`
	Message   string  `json:"message"`
	LatencyMS float64 `json:"latency_ms"`
}

// Report aggregates every check.
type Report struct {
	Status         Status            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	Version        string            `json:"version"`
	Environment    string            `json:"environment"`
	ResponseTimeMS float64           `json:"response_time_ms"`
	Checks         map[string]Result `json:"checks"`
}

// Checker runs checks concurrently, each bounded by a timeout.
type Checker struct {
	version string
	env     string
	timeout time.Duration
	checks  []Check
}

// NewChecker creates a checker. A non-positive timeout defaults to 2s.
func NewChecker(version, env string, timeout time.Duration, checks ...Check) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{version: version, env: env, timeout: timeout, checks: checks}
}

func (c *Checker) Version() string {
	return c.version
}

// Run executes every check and aggregates the results.
func (c *Checker) Run(ctx context.Context) Report {
	start := time.Now()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]Result, len(c.checks))
		overall = StatusHealthy
	)

	for _, check := range c.checks {
		g.Go(func() error {
			res := c.run(ctx, check)

			mu.Lock()
			defer mu.Unlock()
			results[check.Name] = res
			switch {
			case res.Status == StatusHealthy:
			case check.Critical:
				overall = StatusUnhealthy
			case overall == StatusHealthy:
				overall = StatusDegraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{
		Status:         overall,
		Timestamp:      time.Now().UTC(),
		Version:        c.version,
		Environment:    c.env,
		ResponseTimeMS: millis(time.Since(start)),
		Checks:         results,
	}
}

// Ready runs the critical checks and returns the first failure.
func (c *Checker) Ready(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, check := range c.checks {
		if !check.Critical {
			continue
		}
		g.Go(func() error {
			if res := c.run(ctx, check); res.Status != StatusHealthy {
				return fmt.Errorf("%s: %s", check.Name, res.Message)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Checker) run(ctx context.Context, check Check) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check.Run(ctx)
	res := Result{Status: StatusHealthy, Message: check.Name + " connection successful", LatencyMS: millis(time.Since(start))}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = check.Name + " connection failed: " + err.Error()
	}
	return res
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// DatabaseCheck pings the database. It is critical.
func DatabaseCheck(db *bun.DB) Check {
	return Check{
		Name:     "database",
		Critical: true,
		Run: func(ctx context.Context) error {
			if err := database.Ping(ctx, db, time.Minute); err != nil {
				return err
			}
			var one int
			return db.NewSelect().ColumnExpr("1").Scan(ctx, &one)
		},
	}
}

const sentinelKey = "health:sentinel"

var errSentinelLost = errors.New("sentinel value not found after write")

// CacheCheck pings the store when it supports it, and otherwise writes,
// reads and deletes a sentinel key. It is not critical: reads fall back to the
// database when the cache is down.
func CacheCheck(store cache.Store) Check {
	return Check{
		Name: "cache",
		Run: func(ctx context.Context) error {
			if pinger, ok := cache.AsPinger(store); ok {
				return pinger.Ping(ctx)
			}
			if err := store.Set(ctx, sentinelKey, []byte("ok"), 5*time.Second); err != nil {
				return err
			}
			_, found, err := store.Get(ctx, sentinelKey)
			if err != nil {
				return err
			}
			if !found {
				return errSentinelLost
			}
			return store.Delete(ctx, sentinelKey)
		},
	}
}
