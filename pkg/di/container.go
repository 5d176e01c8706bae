// Package di wires the service together: configuration in, a ready HTTP
// handler and the components behind it out.
package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/internal/auth"
	"github.com/goliatone/cinebase/internal/cacheinfra"
	"github.com/goliatone/cinebase/internal/catalog"
	"github.com/goliatone/cinebase/internal/config"
	"github.com/goliatone/cinebase/internal/database"
	"github.com/goliatone/cinebase/internal/health"
	"github.com/goliatone/cinebase/internal/httpserver"
	"github.com/goliatone/cinebase/internal/metrics"
	"github.com/goliatone/cinebase/repositorycache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

const (
	KindMovies = "movies"
	KindUsers  = "users"
)

// healthTimeout bounds each dependency check.
const healthTimeout = 2 * time.Second

// Container owns every long lived component of the service.
type Container struct {
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	db    *bun.DB
	redis redis.UniversalClient
	store cache.Store
	stats *cache.Stats

	movies *repositorycache.CachedRepository[catalog.Movie, catalog.MovieQuery]
	users  *repositorycache.CachedRepository[catalog.User, catalog.UserQuery]
	auth   *auth.Service
	health *health.Checker
	router http.Handler

	now    func() time.Time
	closed bool
}

// Option customizes container construction.
type Option func(*Container)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Container) {
		c.metrics = metrics.New(reg)
	}
}

// WithRedisClient uses client instead of dialing cfg.Cache.Redis.Addr. The
// container does not close a client it did not create.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *Container) {
		c.redis = client
	}
}

// WithClock sets the time source for record timestamps, tokens and the
// memory store.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// NewContainer opens the database, runs migrations, builds the cache store
// chain and wires repositories, auth, health checks and the router.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("di: %w", err)
	}

	c := &Container{
		config: cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	ownRedis := false
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.New(prometheus.NewRegistry())
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	c.db = db
	if err := database.Migrate(ctx, db, catalog.Migrations()...); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Cache.Backend == config.BackendRedis && c.redis == nil {
		c.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Cache.Redis.Addr},
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		ownRedis = true
	}

	store, err := NewStore(cfg.Cache, c.redis, c.now, c.metrics, c.logger)
	if err != nil {
		c.closeResources(ownRedis)
		return nil, err
	}
	c.store = store
	c.stats = cache.NewStats()

	if c.redis != nil {
		if pinger, ok := cache.AsPinger(store); ok {
			if err := pinger.Ping(ctx); err != nil {
				c.logger.Warn("redis unreachable at startup, serving from the database",
					zap.String("addr", cfg.Cache.Redis.Addr),
					zap.Error(err),
				)
			}
		}
	}

	movieBase := catalog.NewMovieRepository(db, c.now)
	userBase := catalog.NewUserRepository(db, c.now)
	c.movies = NewCachedRepository[catalog.Movie, catalog.MovieQuery](c, KindMovies, movieBase)
	c.users = NewCachedRepository[catalog.User, catalog.UserQuery](c, KindUsers, userBase)

	tokens, err := auth.NewTokenIssuer(cfg.Auth.Token, c.now)
	if err != nil {
		c.closeResources(ownRedis)
		return nil, err
	}
	c.auth = auth.NewService(
		catalog.NewAccounts(userBase, c.users),
		auth.NewHasher(cfg.Auth.BcryptCost),
		tokens,
		cfg.Auth.AdminEmails,
	)

	c.health = health.NewChecker(config.Version, cfg.Env, healthTimeout,
		health.DatabaseCheck(db),
		health.CacheCheck(store),
	)

	c.router = httpserver.NewRouter(httpserver.Deps{
		Movies:  c.movies,
		Users:   c.users,
		Auth:    c.auth,
		Store:   store,
		Stats:   c.stats,
		Health:  c.health,
		Metrics: c.metrics,
		Logger:  c.logger,
	}, httpserver.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		Production:     cfg.IsProduction(),
	})

	if !ownRedis {
		c.redis = nil
	}

	c.logger.Info("container ready",
		zap.String("env", cfg.Env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("coalesce", cfg.Cache.Coalesce),
	)
	return c, nil
}

// NewStore builds the cache store chain for cfg: the backend, a circuit
// breaker for remote backends, and metrics on the outside.
func NewStore(cfg config.CacheConfig, client redis.UniversalClient, now func() time.Time, m *metrics.Metrics, logger *zap.Logger) (cache.Store, error) {
	var store cache.Store
	switch cfg.Backend {
	case config.BackendMemory:
		memCfg := cfg.Memory
		memCfg.Clock = now
		mem, err := cacheinfra.NewMemoryStore(memCfg)
		if err != nil {
			return nil, fmt.Errorf("memory store: %w", err)
		}
		store = mem
	case config.BackendRedis:
		if client == nil {
			return nil, errors.New("redis store: no client")
		}
		rs, err := cacheinfra.NewRedisStore(client, cfg.Redis.Store)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		store = cacheinfra.NewBreakerStore(rs, cfg.Breaker, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
	return cacheinfra.NewInstrumentedStore(store, m, logger), nil
}

// NewCachedRepository decorates base with the container's store, applying the
// kind's TTL policy and the configured invalidation and coalescing settings.
//
// Go methods cannot have type parameters, so this is a package-level function:
//
//	movies := di.NewCachedRepository[catalog.Movie, catalog.MovieQuery](c, "movies", base)
func NewCachedRepository[T any, Q repositorycache.Query](c *Container, kind string, base repositorycache.Repository[T, Q]) *repositorycache.CachedRepository[T, Q] {
	cfg := c.config.Cache
	opts := []repositorycache.Option{
		repositorycache.WithTTL(cfg.TTL.For(kind)),
		repositorycache.WithLogger(c.logger),
		repositorycache.WithStats(c.stats),
		repositorycache.WithRecorder(c.metrics),
		repositorycache.WithInvalidationRetries(cfg.InvalidationRetries, cfg.RetryBackoff),
	}
	if cfg.Coalesce {
		opts = append(opts, repositorycache.WithCoalescing())
	}
	return repositorycache.New(kind, base, c.store, opts...)
}

func (c *Container) Config() *config.Config { return c.config }

func (c *Container) Logger() *zap.Logger { return c.logger }

func (c *Container) DB() *bun.DB { return c.db }

// Store returns the outermost store of the chain.
func (c *Container) Store() cache.Store { return c.store }

func (c *Container) Stats() *cache.Stats { return c.stats }

func (c *Container) Metrics() *metrics.Metrics { return c.metrics }

func (c *Container) Movies() *repositorycache.CachedRepository[catalog.Movie, catalog.MovieQuery] {
	return c.movies
}

func (c *Container) Users() *repositorycache.CachedRepository[catalog.User, catalog.UserQuery] {
	return c.users
}

func (c *Container) Auth() *auth.Service { return c.auth }

func (c *Container) Health() *health.Checker { return c.health }

// Router returns the HTTP handler for the whole API.
func (c *Container) Router() http.Handler { return c.router }

// Close releases the database and any redis client the container dialed.
// It is safe to call more than once.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) closeResources(ownRedis bool) {
	if ownRedis && c.redis != nil {
		_ = c.redis.Close()
	}
	_ = c.db.Close()
}
