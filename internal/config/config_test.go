package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/cinebase/internal/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cinebase.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Env != EnvDev || cfg.Auth.Token.Secret != devSecret {
		t.Errorf("expected dev defaults, got env=%q", cfg.Env)
	}
	if cfg.Cache.Backend != BackendMemory || cfg.Cache.InvalidationRetries != 2 {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	movies := cfg.Cache.TTL.For("movies")
	if movies.Entity != 10*time.Minute || movies.List != 60*time.Second {
		t.Errorf("unexpected movie TTLs: %+v", movies)
	}
	if cfg.Cache.Redis.Store.Prefix != "cinebase" || cfg.Cache.Redis.Store.OpTimeout != 100*time.Millisecond {
		t.Errorf("unexpected redis defaults: %+v", cfg.Cache.Redis.Store)
	}
	if cfg.Auth.Token.TTL != 15*time.Minute {
		t.Errorf("unexpected token ttl %v", cfg.Auth.Token.TTL)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
env: prod
server:
  addr: ":9000"
database:
  driver: postgres
  dsn: postgres://cinebase@db/cinebase?sslmode=disable
  timeout: 3s
cache:
  backend: redis
  redis:
    addr: redis:6379
  ttl:
    kinds:
      movies:
        entity: 20m
        list: 2m
auth:
  token:
    secret: file-secret-that-is-long-enough
  admin_emails: [root@example.com]
`)
	t.Setenv(EnvConfigPath, path)
	t.Setenv("CINEBASE_ADDR", ":9100")
	t.Setenv("CINEBASE_ADMIN_EMAILS", "a@example.com, b@example.com")
	t.Setenv("CINEBASE_CACHE_COALESCE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.IsProduction() || cfg.Server.Addr != ":9100" {
		t.Errorf("env should override the file: env=%q addr=%q", cfg.Env, cfg.Server.Addr)
	}
	if cfg.Database.Driver != database.DriverPostgres || cfg.Database.Timeout != 3*time.Second {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.Redis.Addr != "redis:6379" || !cfg.Cache.Coalesce {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if got := cfg.Cache.TTL.For("movies"); got.Entity != 20*time.Minute || got.List != 2*time.Minute {
		t.Errorf("unexpected movie TTLs: %+v", got)
	}
	if got := cfg.Cache.TTL.For("users"); got.Entity != 5*time.Minute {
		t.Errorf("kinds absent from the file keep their defaults, got %+v", got)
	}
	if len(cfg.Auth.AdminEmails) != 2 || cfg.Auth.AdminEmails[1] != "b@example.com" {
		t.Errorf("unexpected admin emails %v", cfg.Auth.AdminEmails)
	}
	if cfg.Auth.Token.Secret != "file-secret-that-is-long-enough" {
		t.Error("expected secret from file")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "prod without secret",
			env:  map[string]string{"CINEBASE_ENV": "prod"},
			want: "secret",
		},
		{
			name: "unknown backend",
			env:  map[string]string{"CINEBASE_CACHE_BACKEND": "memcached"},
			want: "backend",
		},
		{
			name: "malformed duration",
			env:  map[string]string{"CINEBASE_TOKEN_TTL": "soon"},
			want: "CINEBASE_TOKEN_TTL",
		},
		{
			name: "malformed bool",
			env:  map[string]string{"CINEBASE_LOG_DEV": "maybe"},
			want: "CINEBASE_LOG_DEV",
		},
		{
			name: "missing file",
			env:  map[string]string{EnvConfigPath: "/nonexistent/cinebase.yaml"},
			want: "read config",
		},
		{
			name: "bad log level",
			env:  map[string]string{"CINEBASE_LOG_LEVEL": "verbose"},
			want: "level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tt.want)) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCacheConfig_SkipsInactiveBackend(t *testing.T) {
	cfg := Default().Cache
	cfg.Redis.Addr = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("redis settings must not matter for the memory backend: %v", err)
	}

	cfg.Backend = BackendRedis
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing redis addr to fail")
	}

	cfg = Default().Cache
	cfg.Memory.Capacity = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "Capacity") {
		t.Errorf("expected the memory store ConfigError, got %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b,c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("splitList() = %v", got)
	}
}
