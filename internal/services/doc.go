// Package services implements the catalog-facing half of the pipeline.
//
// # Tokens
//
// Every outbound request is authorized through a [TokenCache]. The cache performs a
// client-credentials exchange ([ClientCredentials]) when it holds no token or the token is
// older than [RefreshAfter], which is 200 seconds short of the real [TokenTTL].
//
//   - [MemoryTokenCache] keeps the token in process memory
//   - [RedisTokenCache] shares it between worker processes under petl:token:<scope>
//
// [TokenSource] adapts either one to [oauth2.TokenSource] so the typed Spotify client in
// [Catalog] draws from the same cache.
//
// # Pagination
//
// [PagedFetcher] follows next links until they run out, asking the cache for a token on every
// page. Any non-200 response aborts the whole fetch with a [shared.FetchError].
//
// # Artist enrichment
//
// [ArtistEnricher] deduplicates artist ids and looks them up in batches of at most
// [MaxArtistsPerRequest]. [Join] copies the first two genres and the follower count onto the
// matching artist rows.
package services
