package crates

import "time"

// CrateInfo is the crate record as served by GET /crates/{name}.
//
// MaxVersion, MaxStableVersion, NewestVersion and DefaultVersion are hints
// computed by the registry; cratewatch never recomputes them.
type CrateInfo struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Homepage         string    `json:"homepage"`
	Repository       string    `json:"repository"`
	Documentation    string    `json:"documentation"`
	Downloads        int64     `json:"downloads"`
	RecentDownloads  int64     `json:"recent_downloads"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	MaxVersion       string    `json:"max_version"`
	MaxStableVersion string    `json:"max_stable_version"`
	NewestVersion    string    `json:"newest_version"`
	DefaultVersion   *string   `json:"default_version"`
	NumVersions      int       `json:"num_versions"`
	Yanked           bool      `json:"yanked"`
	Keywords         []string  `json:"keywords"`
	Categories       []string  `json:"categories"`
}

// VersionInfo is one entry of GET /crates/{name}/versions.
type VersionInfo struct {
	ID          int64      `json:"id"`
	Crate       string     `json:"crate"`
	Num         string     `json:"num"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Yanked      bool       `json:"yanked"`
	Downloads   int64      `json:"downloads"`
	License     string     `json:"license"`
	CrateSize   int64      `json:"crate_size"`
	RustVersion string     `json:"rust_version"`
	Edition     string     `json:"edition"`
	PublishedBy *OwnerInfo `json:"published_by"`
}

// OwnerInfo is a team or user owner. Kind is "team" or "user".
type OwnerInfo struct {
	ID     int64  `json:"id"`
	Login  string `json:"login"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	URL    string `json:"url"`
	Kind   string `json:"kind"`
}

// WriteResult is the outcome of a write that reached the registry.
type WriteResult struct {
	Status  int    // HTTP status code
	OK      bool   // registry success flag combined with a 2xx status
	Message string // registry message or first error detail
}

type crateResponse struct {
	Crate CrateInfo `json:"crate"`
}

type versionsResponse struct {
	Versions []VersionInfo `json:"versions"`
	Meta     struct {
		Total    int    `json:"total"`
		NextPage string `json:"next_page"`
	} `json:"meta"`
}

type teamsResponse struct {
	Teams []OwnerInfo `json:"teams"`
}

type usersResponse struct {
	Users []OwnerInfo `json:"users"`
}

type writeResponse struct {
	OK     *bool  `json:"ok"`
	Msg    string `json:"msg"`
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}
