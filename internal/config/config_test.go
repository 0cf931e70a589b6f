package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"SESSION_SECRET": "0123456789abcdef",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "data/blog.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionIdleTimeout)
	assert.Equal(t, 720*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, time.Hour, cfg.SessionSweepInterval)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHubCallbackURL)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"PORT":                   "9000",
		"LOG_LEVEL":              "debug",
		"STORE_DRIVER":           "Postgres",
		"DATABASE_URL":           "postgres://blog@localhost/blog",
		"REDIS_ADDR":             "localhost:6379",
		"REDIS_DB":               "2",
		"SESSION_SECRET":         "0123456789abcdef",
		"SESSION_IDLE_TIMEOUT":   "1h",
		"SESSION_MAX_AGE":        "48h",
		"SESSION_SWEEP_INTERVAL": "10m",
		"COOKIE_SECURE":          "true",
		"GITHUB_CLIENT_ID":       "id",
		"GITHUB_CLIENT_SECRET":   "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.SessionIdleTimeout)
	assert.Equal(t, 48*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 10*time.Minute, cfg.SessionSweepInterval)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.GitHubEnabled())
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":       {},
		"short secret":         {"SESSION_SECRET": "short"},
		"bad port":             {"SESSION_SECRET": "0123456789abcdef", "PORT": "eighty"},
		"port out of range":    {"SESSION_SECRET": "0123456789abcdef", "PORT": "70000"},
		"bad duration":         {"SESSION_SECRET": "0123456789abcdef", "SESSION_MAX_AGE": "forever"},
		"unknown driver":       {"SESSION_SECRET": "0123456789abcdef", "STORE_DRIVER": "mongo"},
		"postgres without dsn": {"SESSION_SECRET": "0123456789abcdef", "STORE_DRIVER": "postgres"},
		"half github config":   {"SESSION_SECRET": "0123456789abcdef", "GITHUB_CLIENT_ID": "id"},
		"bad log level":        {"SESSION_SECRET": "0123456789abcdef", "LOG_LEVEL": "loud"},
		"bad bool":             {"SESSION_SECRET": "0123456789abcdef", "COOKIE_SECURE": "maybe"},
		"zero sweep interval":  {"SESSION_SECRET": "0123456789abcdef", "SESSION_SWEEP_INTERVAL": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(envMap(env))
			assert.Error(t, err)
		})
	}
}
