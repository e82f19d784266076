package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cratewatch/pkg/cache"
	"github.com/matzehuels/cratewatch/pkg/config"
	"github.com/matzehuels/cratewatch/pkg/crate"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(config.TokenEnv, "")
	return New(io.Discard, log.InfoLevel)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newTestCLI(t).RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"versions", "tracks", "owners", "follow", "unfollow", "owner", "serve", "cache", "login", "logout", "completion"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing command %q in %v", want, names)
		}
	}
}

func TestCompletionSkipsConfig(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(broken, []byte("[api"), 0o600); err != nil {
		t.Fatal(err)
	}

	root := newTestCLI(t).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", broken, "completion", "bash"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("completion: %v", err)
	}
	if !strings.Contains(out.String(), "cratewatch") {
		t.Error("completion script does not mention the binary")
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	c := newTestCLI(t)
	c.configPath = filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(c.configPath, []byte("[cache]\nbackend = \"tape\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := c.loadConfig(); err == nil {
		t.Error("expected invalid backend to fail")
	}
}

func TestNewCacheBackends(t *testing.T) {
	c := newTestCLI(t)
	if err := c.loadConfig(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	backend, err := c.newCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := backend.(*cache.FileCache); !ok {
		t.Errorf("default backend = %T, want *cache.FileCache", backend)
	}

	c.noCache = true
	backend, _ = c.newCache(ctx)
	if _, ok := backend.(cache.NullCache); !ok {
		t.Errorf("--no-cache backend = %T, want cache.NullCache", backend)
	}
}

func TestTokenPrefersEnvironment(t *testing.T) {
	c := newTestCLI(t)
	t.Setenv(config.TokenEnv, "env-token")
	if err := c.loadConfig(); err != nil {
		t.Fatal(err)
	}
	if got := c.token(context.Background()); got != "env-token" {
		t.Errorf("token = %q", got)
	}
}

func TestLoginStoresToken(t *testing.T) {
	c := newTestCLI(t)
	root := c.RootCommand()
	root.SetIn(strings.NewReader("cio_secret_9876\n"))
	root.SetArgs([]string{"login"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := c.token(context.Background()); got != "cio_secret_9876" {
		t.Errorf("stored token = %q", got)
	}

	root.SetArgs([]string{"logout"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if got := c.token(context.Background()); got != "" {
		t.Errorf("token after logout = %q", got)
	}
}

type tableLoader struct{}

func (tableLoader) LoadCrate(context.Context, string) (*crate.Crate, error) { return nil, nil }
func (tableLoader) LoadVersions(context.Context, string, bool) ([]*crate.Version, error) {
	yanked := &crate.Version{ID: 3, Num: "1.1.0", Yanked: true}
	return []*crate.Version{
		{ID: 1, Num: "1.0.0", CreatedAt: time.Now()},
		{ID: 2, Num: "2.0.0-beta.1"},
		yanked,
	}, nil
}
func (tableLoader) LoadOwnerTeams(context.Context, string) ([]*crate.Owner, error) { return nil, nil }
func (tableLoader) LoadOwnerUsers(context.Context, string) ([]*crate.Owner, error) { return nil, nil }

func TestRenderTables(t *testing.T) {
	agg := crate.New(&crate.Crate{Name: "demo"}, tableLoader{}, crate.WithLogger(log.New(io.Discard)))
	if _, err := agg.LoadVersions(context.Background(), crate.LoadOptions{}); err != nil {
		t.Fatal(err)
	}

	out := renderVersions(agg, agg.SortedVersions(crate.OrderSemver), time.Now())
	for _, want := range []string{"Version", "2.0.0-beta.1", "1.1.0", "1.0.0", iconTrack, iconNew} {
		if !strings.Contains(out, want) {
			t.Errorf("versions table missing %q:\n%s", want, out)
		}
	}

	tracks := renderTracks(agg.ReleaseTracks())
	if !strings.Contains(tracks, "1.0.0") || strings.Contains(tracks, "1.1.0") {
		t.Errorf("tracks table:\n%s", tracks)
	}

	owners := renderOwners([]*crate.Owner{
		{Kind: crate.OwnerTeam, Login: "github:demo:core"},
		{Kind: crate.OwnerUser, Login: "alice", Name: "Alice"},
	})
	if !strings.Contains(owners, "github:demo:core") || !strings.Contains(owners, "Alice") {
		t.Errorf("owners table:\n%s", owners)
	}
}
