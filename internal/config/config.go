// Package config reads the server configuration from environment variables.
//
// Every setting has a default except SESSION_SECRET. Invalid values fail
// Load with an error naming the variable, so a typo stops startup instead of
// silently running with a default.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port     int
	LogLevel slog.Level

	StoreDriver string // DriverSQLite or DriverPostgres
	DBPath      string // SQLite file
	DatabaseURL string // Postgres DSN

	// Redis holds sessions when RedisAddr is set; otherwise they live in
	// the main store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret        string
	SessionIdleTimeout   time.Duration
	SessionMaxAge        time.Duration
	SessionSweepInterval time.Duration // how often expired sessions are deleted
	CookieSecure         bool
	BcryptCost           int

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv, so tests can supply a map.
func LoadFrom(getenv func(string) string) (Config, error) {
	env := envReader{getenv: getenv}

	cfg := Config{
		Port:                 env.integer("PORT", 8080),
		LogLevel:             env.level("LOG_LEVEL", slog.LevelInfo),
		StoreDriver:          strings.ToLower(env.str("STORE_DRIVER", DriverSQLite)),
		DBPath:               env.str("DB_PATH", "data/blog.db"),
		DatabaseURL:          env.str("DATABASE_URL", ""),
		RedisAddr:            env.str("REDIS_ADDR", ""),
		RedisPassword:        env.str("REDIS_PASSWORD", ""),
		RedisDB:              env.integer("REDIS_DB", 0),
		SessionSecret:        env.str("SESSION_SECRET", ""),
		SessionIdleTimeout:   env.duration("SESSION_IDLE_TIMEOUT", 24*time.Hour),
		SessionMaxAge:        env.duration("SESSION_MAX_AGE", 30*24*time.Hour),
		SessionSweepInterval: env.duration("SESSION_SWEEP_INTERVAL", time.Hour),
		CookieSecure:         env.boolean("COOKIE_SECURE", false),
		BcryptCost:           env.integer("BCRYPT_COST", 12),
		GitHubClientID:       env.str("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret:   env.str("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:    env.str("GITHUB_CALLBACK_URL", ""),
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := errors.Join(append(env.errs, cfg.validate())...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: PORT %d out of range", c.Port))
	}
	switch c.StoreDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("config: DB_PATH is required for the sqlite store"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: STORE_DRIVER %q is not sqlite or postgres", c.StoreDriver))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("config: SESSION_SECRET must be set to at least 16 characters"))
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("config: SESSION_MAX_AGE must be positive"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("config: SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.SessionIdleTimeout < 0 {
		errs = append(errs, errors.New("config: SESSION_IDLE_TIMEOUT must not be negative"))
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		errs = append(errs, errors.New("config: GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together"))
	}
	return errors.Join(errs...)
}

// envReader collects parse errors so Load can report all of them at once.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not an integer", key, raw))
		return def
	}
	return v
}

func (e *envReader) boolean(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not a boolean", key, raw))
		return def
	}
	return v
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not a duration (e.g. 24h)", key, raw))
		return def
	}
	return v
}

func (e *envReader) level(key string, def slog.Level) slog.Level {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not a log level", key, raw))
		return def
	}
	return l
}
