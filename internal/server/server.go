// Package server is the composition root: it opens the stores, builds the
// services and handlers, mounts the routes, and runs the HTTP server with
// graceful shutdown.
//
//	config → store (sqlite | postgres) ─┐
//	         sessions (store | redis) ──┼→ services → handlers → chi router
//	         auth (bcrypt, jwt, github) ┘
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/clean-blog/internal/auth"
	"github.com/sakif/clean-blog/internal/config"
	"github.com/sakif/clean-blog/internal/handler"
	"github.com/sakif/clean-blog/internal/middleware"
	"github.com/sakif/clean-blog/internal/repository"
	postgresRepo "github.com/sakif/clean-blog/internal/repository/postgres"
	redisRepo "github.com/sakif/clean-blog/internal/repository/redis"
	sqliteRepo "github.com/sakif/clean-blog/internal/repository/sqlite"
	"github.com/sakif/clean-blog/internal/service"
)

// Server owns the router and every resource that must be closed on shutdown.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	closers []io.Closer

	authn         *auth.Authenticator
	sweptSessions prometheus.Counter
}

// New opens the configured stores and builds the server.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	closers := []io.Closer{store}

	var sessions repository.SessionRepository = store
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rs, err := redisRepo.New(ctx, redisRepo.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("opening redis session store: %w", err)
		}
		sessions = rs
		closers = append(closers, rs)
	}

	s, err := NewWithStores(cfg, logger, store, sessions)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	s.closers = closers
	return s, nil
}

func openStore(cfg config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgresRepo.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return db, nil
	default:
		// os.MkdirAll is `mkdir -p`; the SQLite file itself is created on open.
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return db, nil
	}
}

// NewWithStores builds the server on already-open stores. The caller keeps
// ownership of them; tests pass an in-memory SQLite store here.
func NewWithStores(cfg config.Config, logger *slog.Logger, store repository.Store, sessions repository.SessionRepository) (*Server, error) {
	passwords, err := auth.NewPasswordServiceWithCost(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}
	policy := auth.SessionPolicy{
		IdleTimeout: cfg.SessionIdleTimeout,
		MaxAge:      cfg.SessionMaxAge,
	}
	authn := auth.NewAuthenticator(tokens, sessions, policy)

	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	authService := service.NewAuthService(store, passwords, authn, logger)
	postService := service.NewPostService(store, store, store, logger)
	favoriteService := service.NewFavoriteService(store, store, logger)

	metrics := middleware.NewMetrics()
	swept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "sessions_swept_total",
		Help:      "Expired sessions deleted by the periodic sweep.",
	})
	metrics.Registry().MustRegister(swept)

	s := &Server{
		router:        chi.NewRouter(),
		config:        cfg,
		logger:        logger,
		authn:         authn,
		sweptSessions: swept,
	}
	s.routes(routeDeps{
		authn:     authn,
		users:     authService,
		auth:      handler.NewAuthHandler(authService, github, authn.Policy(), cfg.CookieSecure, logger),
		posts:     handler.NewPostHandler(authService, postService, logger),
		favorites: handler.NewFavoriteHandler(authService, favoriteService, logger),
		profile:   handler.NewProfileHandler(authService, logger),
		metrics:   metrics,
		github:    github != nil,
	})
	return s, nil
}

type routeDeps struct {
	authn     *auth.Authenticator
	users     auth.UserLookup
	auth      *handler.AuthHandler
	posts     *handler.PostHandler
	favorites *handler.FavoriteHandler
	profile   *handler.ProfileHandler
	metrics   *middleware.Metrics
	github    bool
}

// routes mounts every endpoint.
//
// MIDDLEWARE ORDER:
//  1. RequestID, RealIP, Recoverer (chi)
//  2. Metrics: outermost of ours so it sees the final status
//  3. Session: resolves the cookie into an Identity on every request
//  4. Logger: after Session so log lines carry the user id
//
// Guards are per route: RequireAuth sends anonymous visitors to /login,
// RequireSelf additionally sends everyone but {username} home.
func (s *Server) routes(d routeDeps) {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(d.metrics.Middleware)
	r.Use(auth.Session(d.authn, s.config.CookieSecure, s.logger))
	r.Use(middleware.Logger(s.logger))

	r.Handle("/metrics", d.metrics.Handler())

	r.Get("/", d.auth.HandleHome)
	r.Get("/login", d.auth.HandleLoginForm)
	r.Post("/login", d.auth.HandleLogin)
	r.Get("/register", d.auth.HandleLoginForm)
	r.Post("/register", d.auth.HandleRegister)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/logout", d.auth.HandleLogout)
		r.Post("/logout", d.auth.HandleLogout)
		r.Get("/api/me", d.auth.HandleMe)
	})

	if d.github {
		r.Get("/auth/github/login", d.auth.HandleGitHubLogin)
		r.Get("/auth/github/callback", d.auth.HandleGitHubCallback)
	}

	r.Route("/{username}", func(r chi.Router) {
		r.Get("/blogs", d.posts.HandleRecent)
		r.Get("/all-blogs", d.posts.HandleAll)
		r.Get("/blog/{id}", d.posts.HandleDetail)
		r.With(auth.RequireAuth).Post("/blog/{id}", d.posts.HandleComment)
		r.Get("/favorites", d.favorites.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSelf(d.users, s.logger))

			r.Get("/blog-post", d.posts.HandleNewForm)
			r.Post("/blog-post", d.posts.HandleCreate)
			r.Get("/edit-blog/{id}", d.posts.HandleEditForm)
			r.Post("/edit-blog/{id}", d.posts.HandleEdit)
			r.Get("/delete/{id}", d.posts.HandleDelete)
			r.Post("/delete/{id}", d.posts.HandleDelete)
			r.Get("/favorite/{target}", d.favorites.HandleToggle)
			r.Post("/favorite/{target}", d.favorites.HandleToggle)
			r.Get("/profile", d.profile.HandleProfile)
			r.Post("/profile", d.profile.HandleUpdate)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the stores opened by New.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the stores.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go s.sweepLoop(sweepCtx, s.config.SessionSweepInterval)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.StoreDriver),
			slog.Bool("redisSessions", s.config.RedisAddr != ""),
			slog.Bool("githubLogin", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// sweepLoop deletes expired sessions every interval until ctx is cancelled.
// Sessions whose cookie never comes back are otherwise kept forever.
func (s *Server) sweepLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessions(ctx)
		}
	}
}

func (s *Server) sweepSessions(ctx context.Context) {
	n, err := s.authn.Sweep(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", slog.String("error", err.Error()))
		return
	}
	s.sweptSessions.Add(float64(n))
	if n > 0 {
		s.logger.Info("expired sessions swept", slog.Int64("count", n))
	}
}
