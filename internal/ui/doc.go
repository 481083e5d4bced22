// Package ui renders pipeline output for the terminal.
//
// [Model] is a bubbletea program that follows one pipeline run: a spinner with the current
// [tasks.Phase] while the run is in flight, then a summary of the objects written.
// Progress updates flow through a channel from [tasks.Pipeline], so the run never blocks on rendering.
// Pressing q cancels the run's context.
//
// [RunsTable] and [FilesTable] render ledger entries with lipgloss tables.
package ui
