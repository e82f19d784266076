package crates

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matzehuels/cratewatch/pkg/cache"
	"github.com/matzehuels/cratewatch/pkg/integrations"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(cache.NewNullCache(), Options{})
	if c.Client == nil {
		t.Error("expected client to be initialized")
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %s, want %s", c.BaseURL(), DefaultBaseURL)
	}
}

func TestClient_FetchCrate(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		if r.URL.Path != "/crates/serde" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{"crate":{"name":"serde","max_version":"1.0.200","max_stable_version":"1.0.200",
			"newest_version":"1.0.201-rc.1","default_version":null,"num_versions":3,"downloads":1000}}`)
	}))
	defer server.Close()

	c := NewClient(cache.NewNullCache(), Options{BaseURL: server.URL})

	info, err := c.FetchCrate(context.Background(), "serde", true)
	if err != nil {
		t.Fatalf("FetchCrate failed: %v", err)
	}
	if info.Name != "serde" || info.MaxVersion != "1.0.200" || info.NewestVersion != "1.0.201-rc.1" {
		t.Errorf("unexpected crate info: %+v", info)
	}
	if info.DefaultVersion != nil {
		t.Errorf("DefaultVersion = %v, want nil", *info.DefaultVersion)
	}
	if ua != DefaultUserAgent {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestClient_FetchCrate_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(cache.NewNullCache(), Options{BaseURL: server.URL})

	_, err := c.FetchCrate(context.Background(), "nonexistent", true)
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_FetchVersionsPaginates(t *testing.T) {
	pages := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates/serde/versions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		pages++
		var resp versionsResponse
		if r.URL.Query().Get("seek") == "" {
			resp.Versions = []VersionInfo{{ID: 2, Num: "2.0.0"}}
			resp.Meta.NextPage = "?per_page=100&seek=abc"
		} else {
			resp.Versions = []VersionInfo{{ID: 1, Num: "1.0.0"}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewClient(cache.NewNullCache(), Options{BaseURL: server.URL})

	versions, err := c.FetchVersions(context.Background(), "serde", true)
	if err != nil {
		t.Fatalf("FetchVersions failed: %v", err)
	}
	if pages != 2 {
		t.Errorf("fetched %d pages, want 2", pages)
	}
	if len(versions) != 2 || versions[0].ID != 2 || versions[1].ID != 1 {
		t.Errorf("unexpected versions: %+v", versions)
	}
}

func TestClient_FetchVersionsEndlessPagingFails(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var resp versionsResponse
		resp.Versions = []VersionInfo{{ID: int64(requests), Num: "0.1.0"}}
		resp.Meta.NextPage = "?per_page=100&seek=more"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	backend, _ := cache.NewFileCache(t.TempDir())
	c := NewClient(backend, Options{BaseURL: server.URL, CacheTTL: time.Hour})
	ctx := context.Background()

	versions, err := c.FetchVersions(ctx, "endless", false)
	if !errors.Is(err, integrations.ErrNetwork) {
		t.Fatalf("err = %v, want %v", err, integrations.ErrNetwork)
	}
	if versions != nil {
		t.Errorf("got %d versions, want none", len(versions))
	}
	if requests != maxPages {
		t.Errorf("requests = %d, want %d", requests, maxPages)
	}

	if _, err := c.FetchVersions(ctx, "endless", false); err == nil {
		t.Error("truncated list was cached")
	}
	if requests != 2*maxPages {
		t.Errorf("second read requests = %d, want %d", requests, 2*maxPages)
	}
}

func TestClient_FetchVersionsCached(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, `{"versions":[{"id":7,"num":"0.1.0"}],"meta":{"next_page":null}}`)
	}))
	defer server.Close()

	backend, _ := cache.NewFileCache(t.TempDir())
	c := NewClient(backend, Options{BaseURL: server.URL, CacheTTL: time.Hour})
	ctx := context.Background()

	if _, err := c.FetchVersions(ctx, "tiny", false); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FetchVersions(ctx, "tiny", false); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("second read should hit cache: calls = %d", calls)
	}
	if _, err := c.FetchVersions(ctx, "tiny", true); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("refresh should bypass cache: calls = %d", calls)
	}
}

func TestClient_FetchVersionsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"versions":[],"meta":{}}`)
	}))
	defer server.Close()

	c := NewClient(cache.NewNullCache(), Options{BaseURL: server.URL})
	versions, err := c.FetchVersions(context.Background(), "empty", true)
	if err != nil {
		t.Fatal(err)
	}
	if versions == nil || len(versions) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", versions)
	}
}

func TestClient_FetchOwners(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crates/serde/owner_team":
			io.WriteString(w, `{"teams":[{"id":1,"login":"github:serde-rs:publish"}]}`)
		case "/crates/serde/owner_user":
			io.WriteString(w, `{"users":[{"id":3,"login":"dtolnay","kind":"user"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(cache.NewNullCache(), Options{BaseURL: server.URL})
	ctx := context.Background()

	teams, err := c.FetchOwnerTeams(ctx, "serde")
	if err != nil {
		t.Fatal(err)
	}
	if len(teams) != 1 || teams[0].Kind != "team" {
		t.Errorf("teams = %+v", teams)
	}

	users, err := c.FetchOwnerUsers(ctx, "serde")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Login != "dtolnay" || users[0].Kind != "user" {
		t.Errorf("users = %+v", users)
	}
}

func TestClient_Write(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantOK  bool
		wantMsg string
	}{
		{"ok", http.StatusOK, `{"ok":true,"msg":"invited"}`, true, "invited"},
		{"ok flag false", http.StatusOK, `{"ok":false}`, false, ""},
		{"no body", http.StatusOK, ``, true, ""},
		{"errors", http.StatusBadRequest, `{"errors":[{"detail":"could not find user"}]}`, false, "could not find user"},
		{"html error", http.StatusForbidden, `<html>nope</html>`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var auth, method string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				method = r.Method
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c := NewClient(cache.NewNullCache(), Options{BaseURL: server.URL, Token: "secret"})
			res, err := c.Write(context.Background(), http.MethodPut, "crates/serde/owners", map[string][]string{"owners": {"alice"}})
			if err != nil {
				t.Fatalf("Write() error: %v", err)
			}
			if res.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v", res.OK, tt.wantOK)
			}
			if res.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", res.Message, tt.wantMsg)
			}
			if res.Status != tt.status {
				t.Errorf("Status = %d, want %d", res.Status, tt.status)
			}
			if auth != "secret" || method != http.MethodPut {
				t.Errorf("auth=%q method=%s", auth, method)
			}
		})
	}
}

func TestHostOf(t *testing.T) {
	tests := map[string]string{
		"https://crates.io/api/v1":    "crates.io",
		"http://127.0.0.1:8080":       "127.0.0.1:8080",
		"https://staging.crates.io/x": "staging.crates.io",
	}
	for in, want := range tests {
		if got := hostOf(in); got != want {
			t.Errorf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}
