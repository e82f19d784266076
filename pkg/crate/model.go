package crate

import (
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Relation names as used by the registry API.
const (
	RelVersions  = "versions"
	RelOwnerTeam = "owner_team"
	RelOwnerUser = "owner_user"
)

// Crate is the root record of an aggregate.
//
// MaxVersion, MaxStableVersion and NewestVersion are registry-computed hints.
// They are displayed as-is and never recomputed from the loaded versions.
type Crate struct {
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Homepage         string    `json:"homepage,omitempty"`
	Repository       string    `json:"repository,omitempty"`
	Documentation    string    `json:"documentation,omitempty"`
	Downloads        int64     `json:"downloads"`
	RecentDownloads  int64     `json:"recent_downloads"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	DefaultVersion   *string   `json:"default_version"`
	NumVersions      int       `json:"num_versions"`
	Yanked           bool      `json:"yanked"`
	MaxVersion       string    `json:"max_version"`
	MaxStableVersion string    `json:"max_stable_version,omitempty"`
	NewestVersion    string    `json:"newest_version"`
	Keywords         []string  `json:"keywords,omitempty"`
	Categories       []string  `json:"categories,omitempty"`
}

// DefaultVersionNum returns the version number a crate page should show:
// the registry's default version if set, else the max stable version, else
// the max version.
func (c *Crate) DefaultVersionNum() string {
	if c.DefaultVersion != nil && *c.DefaultVersion != "" {
		return *c.DefaultVersion
	}
	if c.MaxStableVersion != "" {
		return c.MaxStableVersion
	}
	return c.MaxVersion
}

// Version is one published version of a crate.
//
// The semantic version is parsed from Num on first use. A Version must not
// be copied after first use; pass *Version.
type Version struct {
	ID          int64     `json:"id"`
	Crate       string    `json:"crate"`
	Num         string    `json:"num"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Yanked      bool      `json:"yanked"`
	Downloads   int64     `json:"downloads"`
	License     string    `json:"license,omitempty"`
	CrateSize   int64     `json:"crate_size,omitempty"`
	RustVersion string    `json:"rust_version,omitempty"`
	Edition     string    `json:"edition,omitempty"`
	PublishedBy *Owner    `json:"published_by,omitempty"`

	parseOnce sync.Once
	semver    *semver.Version
}

// Semver returns the parsed semantic version, or nil if Num is not a valid
// semantic version.
func (v *Version) Semver() *semver.Version {
	v.parseOnce.Do(func() {
		if sv, err := semver.NewVersion(v.Num); err == nil {
			v.semver = sv
		}
	})
	return v.semver
}

// IsPrerelease reports whether the version has pre-release identifiers.
// Unparsable versions are not prereleases.
func (v *Version) IsPrerelease() bool {
	sv := v.Semver()
	return sv != nil && sv.Prerelease() != ""
}

// ReleaseTrack returns the Cargo compatibility line of the version:
// "1", "2", ... for major >= 1, "0.3" for 0.3.x, and "0.0.7" for 0.0.7,
// matching how caret requirements treat leading zeros. Unparsable versions
// have no track.
func (v *Version) ReleaseTrack() string {
	sv := v.Semver()
	switch {
	case sv == nil:
		return ""
	case sv.Major() > 0:
		return fmt.Sprintf("%d", sv.Major())
	case sv.Minor() > 0:
		return fmt.Sprintf("0.%d", sv.Minor())
	default:
		return fmt.Sprintf("0.0.%d", sv.Patch())
	}
}

// IsNew reports whether the version was published within a day of now.
func (v *Version) IsNew(now time.Time) bool {
	return now.Sub(v.CreatedAt) < 24*time.Hour
}

// OwnerKind distinguishes the two owner relations.
type OwnerKind string

const (
	OwnerTeam OwnerKind = "team"
	OwnerUser OwnerKind = "user"
)

// Owner is a team or a user owning a crate.
type Owner struct {
	ID     int64     `json:"id"`
	Kind   OwnerKind `json:"kind"`
	Login  string    `json:"login"`
	Name   string    `json:"name,omitempty"`
	Avatar string    `json:"avatar,omitempty"`
	URL    string    `json:"url,omitempty"`
}
