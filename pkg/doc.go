// Package pkg holds the libraries behind cratewatch.
//
// # Layout
//
//   - [crate]: the crate aggregate with its version order, release tracks,
//     owner relations and background load tasks
//   - [crate/remote]: crates.io adapter implementing the aggregate's loader
//     and writer
//   - [integrations/crates]: crates.io HTTP API client
//   - [cache]: response cache backends (file, Redis, none)
//   - [config], [session]: TOML configuration and the stored API token
//   - [errors], [observability], [httputil], [buildinfo]: shared plumbing
//
// # Data flow
//
//	crates.io API
//	     ↓
//	[integrations/crates] (cached GETs, writes)
//	     ↓
//	[crate/remote] (records to crate types)
//	     ↓
//	[crate] Aggregate (relations, snapshots, derived views)
//	     ↓
//	CLI tables / JSON HTTP API
//
// # Quick Start
//
//	client := crates.NewClient(cache.NewNullCache(), crates.Options{})
//	reg := remote.New(client)
//	store := crate.NewStore(reg, crate.WithWriter(reg))
//
//	agg, err := store.Get(ctx, "serde")
//	if err != nil {
//		return err
//	}
//	if _, err := agg.LoadVersions(ctx, crate.LoadOptions{}); err != nil {
//		return err
//	}
//	for _, tr := range agg.ReleaseTracks() {
//		fmt.Println(tr.Name, tr.Num)
//	}
package pkg
