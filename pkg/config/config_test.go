package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/cratewatch/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.API != def.API || cfg.Cache.Backend != BackendFile || !cfg.Contracts.Strict {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "tok-123")
	path := writeConfig(t, `
[api]
base_url = "https://staging.crates.io/api/v1"
timeout = "3s"

[cache]
backend = "redis"
ttl = "30m"

[cache.redis]
addr = "redis:6379"
db = 2

[contracts]
strict = false

[server]
addr = ":9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://staging.crates.io/api/v1" || cfg.API.Timeout != 3*time.Second {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.API.UserAgent == "" {
		t.Error("unset user_agent lost its default")
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.TTL != 30*time.Minute || cfg.Cache.Redis.DB != 2 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Contracts.Strict {
		t.Error("contracts.strict not applied")
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Token != "tok-123" {
		t.Errorf("Token = %q, want env override", cfg.Token)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `[api`},
		{"unknown key", "[api]\nbase_uri = \"https://x\"\n"},
		{"unknown backend", "[cache]\nbackend = \"memcached\"\n"},
		{"bad url", "[api]\nbase_url = \"ftp://crates.io\"\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"empty redis addr", "[cache]\nbackend = \"redis\"\n[cache.redis]\naddr = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache")

	if got := DefaultPath(); got != filepath.Join("/tmp/cfg", AppName, "config.toml") {
		t.Errorf("DefaultPath() = %q", got)
	}
	if got := Path("sessions"); got != filepath.Join("/tmp/cfg", AppName, "sessions") {
		t.Errorf("Path() = %q", got)
	}
	if got := Default().Cache.Dir; got != filepath.Join("/tmp/cache", AppName) {
		t.Errorf("cache dir = %q", got)
	}
}
