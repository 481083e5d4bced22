// Package repositories implements SQLite persistence for the run ledger.
//
// [RunRepository] records one row per pipeline run in runs and one row per written object in
// run_files. Runs are started before any object is written and finished exactly once, as either
// succeeded or failed, so a crashed worker leaves its run visible as running.
package repositories
