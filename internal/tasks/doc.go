// Package tasks runs the playlist extract-transform-load pipeline with real-time progress reporting.
//
// # Core Operations
//
//  1. [Pipeline.Run] : one run over a list of playlist ids
//     - Ensures the destination bucket exists
//     - Fetches every page of each playlist and decomposes the items into entity records
//     - Merges the records, optionally joins artist genres and followers
//     - Encodes one table per entity and writes them as <entity>/<stamp>[_suffix].<ext>
//
//  2. [Worker.Run] : drains a leasing work queue
//     - Reclaims items whose lease expired
//     - Leases a batch of playlist ids and runs the pipeline with the session id as key suffix
//     - Completes items once written; drops items that fail permanently
//
// # Failure Semantics
//
// A run writes all four objects or none: any fetch, decompose, enrich or encode failure aborts before the first put.
// Fetch and decompose failures are returned as [*PlaylistError] naming the offending playlist.
// [IsPermanent] separates input that can never succeed from failures worth retrying.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Run Ledger
//
// The optional [Ledger] interface records each run and its files (repositories.RunRepository).
// Ledger write failures after the run has started are logged and do not fail the run.
package tasks
