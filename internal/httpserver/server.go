// Package httpserver exposes the catalog over HTTP.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/internal/auth"
	"github.com/goliatone/cinebase/internal/catalog"
	"github.com/goliatone/cinebase/internal/config"
	"github.com/goliatone/cinebase/internal/health"
	"github.com/goliatone/cinebase/internal/metrics"
	"github.com/goliatone/cinebase/internal/middleware"
	"github.com/goliatone/cinebase/repositorycache"
	"go.uber.org/zap"
)

// MovieRepository is the cached movie repository the handlers use.
type MovieRepository interface {
	Get(ctx context.Context, id string) (catalog.Movie, cache.Origin, error)
	List(ctx context.Context, q catalog.MovieQuery) (repositorycache.Page[catalog.Movie], cache.Origin, error)
	Create(ctx context.Context, movie catalog.Movie) (catalog.Movie, error)
	Update(ctx context.Context, id string, mutate func(catalog.Movie) (catalog.Movie, error)) (catalog.Movie, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository is the cached user repository the handlers use.
type UserRepository interface {
	Get(ctx context.Context, id string) (catalog.User, cache.Origin, error)
	List(ctx context.Context, q catalog.UserQuery) (repositorycache.Page[catalog.User], cache.Origin, error)
	Update(ctx context.Context, id string, mutate func(catalog.User) (catalog.User, error)) (catalog.User, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Movies  MovieRepository
	Users   UserRepository
	Auth    *auth.Service
	Store   cache.Store
	Stats   *cache.Stats
	Health  *health.Checker
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Options tune the middleware stack.
type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string

	// Production hides internal error details from responses.
	Production bool
}

const defaultMaxBodyBytes = 1 << 20

// NewRouter builds the chi router with every route and middleware.
func NewRouter(deps Deps, opts Options) chi.Router {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	h := &handler{
		movies:     deps.Movies,
		users:      deps.Users,
		auth:       deps.Auth,
		store:      deps.Store,
		stats:      deps.Stats,
		health:     deps.Health,
		production: opts.Production,
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.LoggingContext(deps.Logger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Cache", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, &requestError{status: http.StatusNotFound, code: "not_found", message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, &requestError{status: http.StatusMethodNotAllowed, code: "method_not_allowed", message: "method not allowed"})
	})

	r.Mount("/health", h.healthRoutes())
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/health", h.healthRoutes())

		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(deps.Auth.Tokens()))

			r.Get("/users/me", h.me)
			r.Get("/movies", h.listMovies)
			r.Get("/movies/{id}", h.getMovie)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(catalog.RoleAdmin))

				r.Get("/users", h.listUsers)
				r.Patch("/users/{id}/role", h.setUserRole)

				r.Post("/movies", h.createMovie)
				r.Patch("/movies/{id}", h.updateMovie)
				r.Delete("/movies/{id}", h.deleteMovie)

				r.Get("/cache/stats", h.cacheStats)
				r.Get("/cache/keys", h.cacheKeys)
				r.Post("/cache/clear", h.clearCache)
			})
		})
	})

	return r
}

// New returns an http.Server for handler using the configured timeouts.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

type handler struct {
	movies     MovieRepository
	users      UserRepository
	auth       *auth.Service
	store      cache.Store
	stats      *cache.Stats
	health     *health.Checker
	production bool
}
