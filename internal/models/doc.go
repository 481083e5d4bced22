// Package models defines the flat entity records produced by the playlist ETL.
//
// The package contains two categories of types:
//
// 1. Entity records: one typed struct per output entity, each with a fixed, ordered column schema
//   - [PlaylistRecord] : playlist membership, one row per track occurrence with its position
//   - [TrackRecord] : track metadata, one row per track occurrence
//   - [AlbumRecord] : album metadata keyed by album_id, joined to tracks by track_id
//   - [ArtistRecord] : one row per (track, artist) pair, ordered by artist_order
//
// A [Dataset] bundles the four record sets for one or more playlists and renders each as a [Table].
// [RawTrackItem] is the undecoded nested JSON object the records are derived from.
//
// 2. Ledger entries: [Run] and [RunFile] describe pipeline runs persisted by the repositories package.
package models
