// Package crate maintains a client-side aggregate view over a crates.io
// crate and its related collections.
//
// # Overview
//
// An [Aggregate] wraps one crate record and three relations: its versions,
// its team owners and its user owners. Relations are filled by a [Loader]
// in the background and are replaced wholesale, never merged. On top of the
// materialized versions the aggregate keeps memoized derived views:
//
//   - version ids ordered by semantic version (newest first)
//   - version ids ordered by publish date (newest first)
//   - the release-track representative set: the highest stable, non-yanked
//     version of each release track
//
// Views are keyed by the generation of the materialized set, so they are
// rebuilt exactly once per successful load and never served for an older
// generation.
//
// # Background Loads
//
// Loads run as named [Task] values. At most one run of a task is in flight;
// concurrent callers join it and receive its result:
//
//	agg := crate.New(record, loader)
//	versions, err := agg.LoadVersions(ctx, crate.LoadOptions{})
//	ids := agg.IDsBySemver()
//
// LoadVersions with Reload set always fetches again and replaces the set.
// Reload and non-reload runs are separate tasks; when both are in flight, the
// set from the run that started last wins regardless of completion order.
//
// # Preconditions
//
// Owner queries ([Aggregate.Owners], [Aggregate.HasOwnerUser]) require the
// corresponding load to have completed once. Reading earlier is a
// programming error reported through the configured [Reporter].
//
// # Writes
//
// Follow, Unfollow, InviteOwner and RemoveOwner go straight to the [Writer].
// No local state changes on success; reload owners to observe the effect.
package crate
