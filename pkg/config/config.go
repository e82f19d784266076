// Package config loads cratewatch settings from a TOML file.
//
// A missing file is not an error; every field has a default. The API token
// is never read from the file: it comes from the session store or the
// CRATEWATCH_TOKEN environment variable.
//
// Example file:
//
//	[api]
//	base_url = "https://crates.io/api/v1"
//	timeout = "15s"
//
//	[cache]
//	backend = "redis"
//	ttl = "1h"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[contracts]
//	strict = false
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/cratewatch/pkg/errors"
	"github.com/matzehuels/cratewatch/pkg/integrations/crates"
)

// AppName names the config and cache directories.
const AppName = "cratewatch"

// TokenEnv overrides the stored API token.
const TokenEnv = "CRATEWATCH_TOKEN"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the full configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Cache     CacheConfig     `toml:"cache"`
	Contracts ContractsConfig `toml:"contracts"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`

	// Token is the crates.io API token. It is only set from the environment
	// or the session store.
	Token string `toml:"-"`
}

// APIConfig configures the registry client.
type APIConfig struct {
	BaseURL   string        `toml:"base_url"`
	UserAgent string        `toml:"user_agent"`
	Timeout   time.Duration `toml:"timeout"`
}

// CacheConfig configures the HTTP response cache.
type CacheConfig struct {
	Backend string        `toml:"backend"`
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`
	Redis   RedisConfig   `toml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ContractsConfig controls how read-before-load violations are handled.
// Strict violations fail the read; lenient ones log a warning.
type ContractsConfig struct {
	Strict bool `toml:"strict"`
}

// ServerConfig configures "cratewatch serve".
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   crates.DefaultBaseURL,
			UserAgent: crates.DefaultUserAgent,
			Timeout:   10 * time.Second,
		},
		Cache: CacheConfig{
			Backend: BackendFile,
			Dir:     defaultCacheDir(),
			TTL:     time.Hour,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Contracts: ContractsConfig{Strict: true},
		Server:    ServerConfig{Addr: "127.0.0.1:8080"},
		Log:       LogConfig{Level: "info"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/cratewatch/config.toml, falling back
// to ~/.config.
func DefaultPath() string {
	return filepath.Join(configHome(), AppName, "config.toml")
}

// Load reads the file at path over the defaults and applies the
// environment. An empty path means [DefaultPath].
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if token := getenv(TokenEnv); token != "" {
		c.Token = token
	}
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	if err := errors.ValidateURL(c.API.BaseURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "api.base_url")
	}
	if c.API.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "api.timeout must not be negative")
	}
	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.dir is required for the file backend")
		}
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis.addr is required for the redis backend")
		}
	case BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown log level %q", c.Log.Level)
	}
	return nil
}

// Path returns the directory for a cratewatch state subdirectory under
// the config home, e.g. "sessions".
func Path(sub string) string {
	return filepath.Join(configHome(), AppName, sub)
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return "."
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}
