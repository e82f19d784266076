package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cratewatch/pkg/buildinfo"
	"github.com/matzehuels/cratewatch/pkg/cache"
	"github.com/matzehuels/cratewatch/pkg/config"
	"github.com/matzehuels/cratewatch/pkg/crate"
	"github.com/matzehuels/cratewatch/pkg/crate/remote"
	"github.com/matzehuels/cratewatch/pkg/integrations/crates"
	"github.com/matzehuels/cratewatch/pkg/observability"
	"github.com/matzehuels/cratewatch/pkg/session"
)

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RegisterHooks routes task, cache and registry events to the logger. They are
// logged at debug level, so they only show with --verbose.
func (c *CLI) RegisterHooks() {
	observability.SetTaskHooks(taskLogHooks{c.Logger})
	observability.SetCacheHooks(cacheLogHooks{c.Logger})
	observability.SetHTTPHooks(httpLogHooks{c.Logger})
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "cratewatch inspects crates.io crates from the terminal",
		Long:         `cratewatch loads a crate, its versions and its owners from crates.io and shows sorted version lists, release tracks and owner sets. It can follow crates and manage owners with an API token.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the HTTP response cache")

	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.tracksCommand())
	root.AddCommand(c.ownersCommand())
	root.AddCommand(c.followCommand())
	root.AddCommand(c.unfollowCommand())
	root.AddCommand(c.ownerCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config and Wiring
// =============================================================================

func (c *CLI) loadConfig() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil && c.Logger.GetLevel() > lvl {
		c.Logger.SetLevel(lvl)
	}
	c.cfg = cfg
	return nil
}

func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// token returns the API token from the environment or the session store.
func (c *CLI) token(ctx context.Context) string {
	if tok := c.config().Token; tok != "" {
		return tok
	}
	store, err := session.NewTokenStore(config.Path("sessions"))
	if err != nil {
		return ""
	}
	sess, err := store.Load(ctx)
	if err != nil || sess == nil {
		return ""
	}
	return sess.Token
}

// newCache opens the configured cache backend.
func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	cfg := c.config().Cache
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   appName + ":",
		})
	case config.BackendNone:
		return cache.NewNullCache(), nil
	default:
		fc, err := cache.NewFileCache(cfg.Dir)
		if err != nil {
			c.Logger.Warn("file cache unavailable, continuing without cache", "dir", cfg.Dir, "err", err)
			return cache.NewNullCache(), nil
		}
		return fc, nil
	}
}

// newRegistry builds the crates.io client and its aggregate adapter.
func (c *CLI) newRegistry(ctx context.Context, backend cache.Cache) *remote.Registry {
	cfg := c.config()
	ua := cfg.API.UserAgent
	if ua == crates.DefaultUserAgent {
		ua = buildinfo.UserAgent()
	}
	client := crates.NewClient(backend, crates.Options{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: ua,
		Token:     c.token(ctx),
		CacheTTL:  cfg.Cache.TTL,
		Timeout:   cfg.API.Timeout,
	})
	return remote.New(client)
}

// newStore wires cache, client and aggregate store. The returned close
// function releases the cache backend.
func (c *CLI) newStore(ctx context.Context) (*crate.Store, func(), error) {
	backend, err := c.newCache(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	reg := c.newRegistry(ctx, backend)
	store := crate.NewStore(reg,
		crate.WithWriter(reg),
		crate.WithLogger(c.Logger),
		crate.WithReporter(crate.NewReporter(c.config().Contracts.Strict, c.Logger)),
	)
	return store, func() { backend.Close() }, nil
}

// aggregate loads the crate record for name.
func (c *CLI) aggregate(ctx context.Context, name string) (*crate.Aggregate, func(), error) {
	store, closeFn, err := c.newStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	agg, err := store.Get(ctx, strings.TrimSpace(name))
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return agg, closeFn, nil
}
