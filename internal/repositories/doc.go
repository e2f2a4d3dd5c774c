// Package repositories implements SQLite persistence for the sync run history.
//
// Key Implementations:
//   - [RunRepository] : One row per reconciled playlist, grouped by batch
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
