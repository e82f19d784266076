package crate

import (
	"slices"
	"sync"
)

// Relation holds the materialized subset of one relation of an aggregate.
//
// The set is replaced on every install, never merged, and each install bumps
// the generation. Loads take a ticket with Begin before fetching and present
// it to Install; a set fetched by an earlier-started load is never installed
// over one fetched by a later-started load, whatever order they finish in.
type Relation[T any] struct {
	name string

	mu        sync.RWMutex
	items     []T
	loaded    bool
	gen       uint64
	tickets   uint64
	installed uint64
}

// NewRelation creates an empty, not yet loaded relation.
func NewRelation[T any](name string) *Relation[T] {
	return &Relation[T]{name: name}
}

// Name returns the relation name.
func (r *Relation[T]) Name() string { return r.name }

// Begin issues a ticket for a load that is about to fetch.
func (r *Relation[T]) Begin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets++
	return r.tickets
}

// Install replaces the materialized set with items if ticket is not older
// than the ticket of the installed set. It reports whether the set was
// installed.
func (r *Relation[T]) Install(ticket uint64, items []T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded && ticket < r.installed {
		return false
	}
	r.items = slices.Clone(items)
	if r.items == nil {
		r.items = []T{}
	}
	r.loaded = true
	r.installed = ticket
	r.gen++
	return true
}

// Materialized returns the current set, its generation and whether the
// relation was ever loaded. The returned slice is shared and must not be
// modified.
func (r *Relation[T]) Materialized() (items []T, gen uint64, loaded bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items, r.gen, r.loaded
}

// Loaded reports whether any load ever installed a set.
func (r *Relation[T]) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Generation returns the install counter. Zero means never loaded.
func (r *Relation[T]) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}

// Snapshot is a point-in-time index over materialized versions.
//
// It only covers what is loaded, which may be a strict subset of the
// remote relation. When the loader returns the same id twice the first
// occurrence wins.
type Snapshot struct {
	Generation uint64
	Versions   []*Version

	byID  map[int64]*Version
	byNum map[string]*Version
}

// NewSnapshot indexes versions for generation gen.
func NewSnapshot(gen uint64, versions []*Version) *Snapshot {
	s := &Snapshot{
		Generation: gen,
		Versions:   make([]*Version, 0, len(versions)),
		byID:       make(map[int64]*Version, len(versions)),
		byNum:      make(map[string]*Version, len(versions)),
	}
	for _, v := range versions {
		if v == nil {
			continue
		}
		if _, dup := s.byID[v.ID]; dup {
			continue
		}
		s.byID[v.ID] = v
		if _, ok := s.byNum[v.Num]; !ok {
			s.byNum[v.Num] = v
		}
		s.Versions = append(s.Versions, v)
	}
	return s
}

// ByID looks up a version by id.
func (s *Snapshot) ByID(id int64) (*Version, bool) {
	v, ok := s.byID[id]
	return v, ok
}

// ByNum looks up a version by its version number string.
func (s *Snapshot) ByNum(num string) (*Version, bool) {
	v, ok := s.byNum[num]
	return v, ok
}

// Len returns the number of indexed versions.
func (s *Snapshot) Len() int { return len(s.Versions) }

// SnapshotCache rebuilds a [Snapshot] only when the generation of the
// underlying relation changes.
type SnapshotCache struct {
	rel *Relation[*Version]

	mu     sync.Mutex
	snap   *Snapshot
	builds int
}

// NewSnapshotCache creates a cache over rel.
func NewSnapshotCache(rel *Relation[*Version]) *SnapshotCache {
	return &SnapshotCache{rel: rel}
}

// Current returns the snapshot for the latest generation. Before the first
// load it returns an empty snapshot with generation 0.
func (c *SnapshotCache) Current() *Snapshot {
	items, gen, _ := c.rel.Materialized()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap != nil && c.snap.Generation >= gen {
		return c.snap
	}
	c.snap = NewSnapshot(gen, items)
	c.builds++
	return c.snap
}
