// Package transform decomposes raw playlist-track items into the four flat entities.
//
// # Flattening
//
// [Flatten] turns a nested JSON object into dotted paths ("track.album.name"). Objects are
// descended into; lists are left as list-valued leaves; nulls are kept.
//
// # Column routing
//
// Fields are assigned to entities by a [Rule] table rather than by enumerating paths, so fields
// the catalog adds later (primary_color and friends) still land somewhere predictable:
//
//	track.album.*    -> albums   (but not track.album.artists)
//	track.artists*   -> artists
//	track.*          -> tracks
//	everything else  -> playlists
//
// track.id is injected into every partition as the join key, and track.album.id is injected
// into the track partition as its foreign key.
//
// # Per-entity shaping
//
//   - albums keep only the first image URL and drop the image list
//   - artists are expanded one row per list element with [Explode], tagged with artist_order
//   - playlists get playlist_id and a track_no counted over the whole fetched sequence
//   - tracks and albums have their prefix stripped and remaining dots turned into underscores
//
// Fields routed to an entity but not part of its column schema are kept in the record's Extra map.
package transform
