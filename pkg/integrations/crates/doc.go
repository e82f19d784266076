// Package crates provides an HTTP client for the crates.io API.
//
// # Usage
//
//	client := crates.NewClient(backend, crates.Options{
//	    Token:    os.Getenv("CRATEWATCH_TOKEN"),
//	    CacheTTL: time.Hour,
//	})
//
//	info, err := client.FetchCrate(ctx, "serde", false)
//	versions, err := client.FetchVersions(ctx, "serde", false)
//	teams, err := client.FetchOwnerTeams(ctx, "serde")
//	users, err := client.FetchOwnerUsers(ctx, "serde")
//
// # Endpoints
//
//   - GET crates/{name}: [CrateInfo]
//   - GET crates/{name}/versions: every [VersionInfo], following meta.next_page
//   - GET crates/{name}/owner_team and owner_user: [OwnerInfo]
//   - PUT/DELETE crates/{name}/follow and crates/{name}/owners via [Client.Write]
//
// # Caching
//
// Crate and version reads are cached for [Options].CacheTTL under keys
// scoped by API host. Pass refresh=true to bypass the cache; the fresh
// response still replaces the cached one. Owner reads and writes are never
// cached.
//
// # Writes
//
// [Client.Write] sends the request once and reports the registry's ok flag
// and message in a [WriteResult]. A non-2xx status is not an error; only
// transport failures are.
//
// # User-Agent
//
// crates.io rejects requests without a User-Agent, so one is always sent.
package crates
