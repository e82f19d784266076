package crates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/cratewatch/pkg/cache"
	"github.com/matzehuels/cratewatch/pkg/integrations"
)

// DefaultBaseURL is the crates.io API root.
const DefaultBaseURL = "https://crates.io/api/v1"

// DefaultUserAgent identifies cratewatch to crates.io, which rejects
// requests without a User-Agent.
const DefaultUserAgent = "cratewatch/1.0 (https://github.com/matzehuels/cratewatch)"

// perPage is the page size requested from the versions endpoint.
const perPage = 100

// maxPages bounds pagination so a misbehaving next_page link cannot loop forever.
const maxPages = 200

// Client provides access to the crates.io registry API.
// It handles HTTP requests with caching and automatic retries on reads.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// Options configures a [Client]. Zero values select defaults.
type Options struct {
	BaseURL   string        // API root, default [DefaultBaseURL]
	UserAgent string        // default [DefaultUserAgent]
	Token     string        // API token for writes (sent as Authorization)
	CacheTTL  time.Duration // how long read responses are cached
	Timeout   time.Duration // per-request timeout, default 10s
}

// NewClient creates a crates.io client with the given cache backend.
//
// Cache keys are scoped by the API host, so a staging registry and
// crates.io can share one backend.
func NewClient(backend cache.Cache, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	headers := map[string]string{
		"User-Agent": opts.UserAgent,
		"Accept":     "application/json",
	}
	if opts.Token != "" {
		headers["Authorization"] = opts.Token
	}

	base := strings.TrimSuffix(opts.BaseURL, "/")
	c := integrations.NewClient(backend, "crates", opts.CacheTTL, headers)
	c.SetKeyer(cache.NewScopedKeyer(nil, hostOf(base)+":"))
	if opts.Timeout > 0 {
		c.SetHTTPClient(&http.Client{Timeout: opts.Timeout})
	}
	return &Client{Client: c, baseURL: base}
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchCrate retrieves the crate record.
//
// If refresh is true, the cache is bypassed and a fresh API call is made.
//
// Returns:
//   - CrateInfo populated with metadata on success
//   - [integrations.ErrNotFound] if the crate doesn't exist
//   - [integrations.ErrNetwork] for HTTP failures (timeout, 5xx, etc.)
func (c *Client) FetchCrate(ctx context.Context, name string, refresh bool) (*CrateInfo, error) {
	var info CrateInfo
	err := c.Cached(ctx, "crate:"+name, refresh, &info, func() error {
		var data crateResponse
		if err := c.Get(ctx, c.crateURL(name, ""), &data); err != nil {
			return notFound(err, name)
		}
		info = data.Crate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchVersions retrieves every version of a crate, following pagination.
//
// The result is unordered as far as callers are concerned; ordering is the
// job of the aggregate's comparators. A crate with no versions yields an
// empty, non-nil slice.
func (c *Client) FetchVersions(ctx context.Context, name string, refresh bool) ([]VersionInfo, error) {
	var versions []VersionInfo
	err := c.Cached(ctx, "versions:"+name, refresh, &versions, func() error {
		all, err := c.fetchVersionPages(ctx, name)
		if err != nil {
			return err
		}
		versions = all
		return nil
	})
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []VersionInfo{}
	}
	return versions, nil
}

func (c *Client) fetchVersionPages(ctx context.Context, name string) ([]VersionInfo, error) {
	url := c.crateURL(name, fmt.Sprintf("versions?per_page=%d", perPage))
	all := []VersionInfo{}

	for range maxPages {
		var page versionsResponse
		if err := c.Get(ctx, url, &page); err != nil {
			return nil, notFound(err, name)
		}
		all = append(all, page.Versions...)

		next := page.Meta.NextPage
		if next == "" || len(page.Versions) == 0 {
			return all, nil
		}
		url = c.crateURL(name, "versions"+next)
	}
	return nil, fmt.Errorf("%w: versions of %s exceed %d pages", integrations.ErrNetwork, name, maxPages)
}

// FetchOwnerTeams retrieves the team owners of a crate.
// Owner lists are small and change on writes, so they are never cached.
func (c *Client) FetchOwnerTeams(ctx context.Context, name string) ([]OwnerInfo, error) {
	var data teamsResponse
	if err := c.Get(ctx, c.crateURL(name, "owner_team"), &data); err != nil {
		return nil, notFound(err, name)
	}
	return withKind(data.Teams, "team"), nil
}

// FetchOwnerUsers retrieves the user owners of a crate.
func (c *Client) FetchOwnerUsers(ctx context.Context, name string) ([]OwnerInfo, error) {
	var data usersResponse
	if err := c.Get(ctx, c.crateURL(name, "owner_user"), &data); err != nil {
		return nil, notFound(err, name)
	}
	return withKind(data.Users, "user"), nil
}

// Write sends a write request to a path relative to the API root, e.g.
// "crates/serde/follow".
//
// A transport failure is returned as an error. Any HTTP response, including
// 4xx and 5xx, is returned as a [WriteResult] whose OK field reflects the
// registry's own success flag.
func (c *Client) Write(ctx context.Context, method, path string, body any) (*WriteResult, error) {
	var data writeResponse
	status, err := c.Send(ctx, method, c.baseURL+"/"+strings.TrimPrefix(path, "/"), body, &data)
	if err != nil {
		return nil, err
	}

	res := &WriteResult{Status: status, Message: data.Msg}
	res.OK = status >= 200 && status < 300
	if data.OK != nil {
		res.OK = res.OK && *data.OK
	}
	if len(data.Errors) > 0 {
		res.OK = false
		res.Message = data.Errors[0].Detail
	}
	return res, nil
}

func (c *Client) crateURL(name, sub string) string {
	u := c.baseURL + "/crates/" + integrations.PathEscape(name)
	if sub == "" {
		return u
	}
	if strings.HasPrefix(sub, "?") {
		return u + sub
	}
	return u + "/" + sub
}

func notFound(err error, name string) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return fmt.Errorf("%w: crate %s", err, name)
	}
	return err
}

func withKind(owners []OwnerInfo, kind string) []OwnerInfo {
	out := make([]OwnerInfo, len(owners))
	for i, o := range owners {
		if o.Kind == "" {
			o.Kind = kind
		}
		out[i] = o
	}
	return out
}

func hostOf(base string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(base, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
