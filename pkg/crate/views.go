package crate

import (
	"maps"
	"slices"
	"sync"
)

// IDSet is a set of version ids.
type IDSet map[int64]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids.
func (s IDSet) Len() int { return len(s) }

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	return slices.Sorted(maps.Keys(s))
}

// Track is the representative of one release track.
type Track struct {
	Name      string `json:"track"`
	VersionID int64  `json:"version_id"`
	Num       string `json:"num"`
}

type memo[T any] struct {
	gen uint64
	ok  bool
	val T
}

func (m *memo[T]) get(gen uint64, build func() T) T {
	if !m.ok || m.gen != gen {
		m.val = build()
		m.gen = gen
		m.ok = true
	}
	return m.val
}

type trackIndex struct {
	set    IDSet
	tracks []Track
}

// Views memoizes derived views over the version snapshot. Each view is
// computed at most once per snapshot generation.
type Views struct {
	snapshots *SnapshotCache

	mu       sync.Mutex
	bySemver memo[[]int64]
	byDate   memo[[]int64]
	tracks   memo[trackIndex]
}

// NewViews creates views over the given snapshot cache.
func NewViews(snapshots *SnapshotCache) *Views {
	return &Views{snapshots: snapshots}
}

// IDsBySemver returns all known version ids ordered by [CompareBySemver].
func (v *Views) IDsBySemver() []int64 {
	snap := v.snapshots.Current()
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.semverIDs(snap))
}

// IDsByDate returns all known version ids ordered by [CompareByDate].
func (v *Views) IDsByDate() []int64 {
	snap := v.snapshots.Current()
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.byDate.get(snap.Generation, func() []int64 {
		return sortedIDs(snap, CompareByDate)
	}))
}

// ReleaseTrackSet returns the ids that represent a release track.
func (v *Views) ReleaseTrackSet() IDSet {
	snap := v.snapshots.Current()
	v.mu.Lock()
	defer v.mu.Unlock()
	return maps.Clone(v.trackIndex(snap).set)
}

// ReleaseTracks returns the track representatives in semver order.
func (v *Views) ReleaseTracks() []Track {
	snap := v.snapshots.Current()
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.trackIndex(snap).tracks)
}

// HighestOfReleaseTrack reports whether id represents its release track.
func (v *Views) HighestOfReleaseTrack(id int64) bool {
	snap := v.snapshots.Current()
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.trackIndex(snap).set.Has(id)
}

// FirstVersionID returns the id of the oldest known version.
func (v *Views) FirstVersionID() (int64, bool) {
	ids := v.IDsByDate()
	if len(ids) == 0 {
		return 0, false
	}
	return ids[len(ids)-1], true
}

// semverIDs must be called with v.mu held.
func (v *Views) semverIDs(snap *Snapshot) []int64 {
	return v.bySemver.get(snap.Generation, func() []int64 {
		return sortedIDs(snap, CompareBySemver)
	})
}

// trackIndex must be called with v.mu held.
func (v *Views) trackIndex(snap *Snapshot) trackIndex {
	return v.tracks.get(snap.Generation, func() trackIndex {
		idx := trackIndex{set: IDSet{}}
		seen := make(map[string]bool)
		for _, id := range v.semverIDs(snap) {
			ver, _ := snap.ByID(id)
			track := ver.ReleaseTrack()
			if track == "" || ver.IsPrerelease() || ver.Yanked || seen[track] {
				continue
			}
			seen[track] = true
			idx.set[id] = struct{}{}
			idx.tracks = append(idx.tracks, Track{Name: track, VersionID: id, Num: ver.Num})
		}
		return idx
	})
}

func sortedIDs(snap *Snapshot, compare func(a, b *Version) int) []int64 {
	sorted := slices.Clone(snap.Versions)
	slices.SortStableFunc(sorted, compare)
	ids := make([]int64, len(sorted))
	for i, ver := range sorted {
		ids[i] = ver.ID
	}
	return ids
}
