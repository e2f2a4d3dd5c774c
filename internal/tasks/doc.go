// Package tasks reconciles source playlists against the media library with real-time progress reporting.
//
// # Pipeline
//
// [PlaylistEngine.Sync] runs one batch. For every playlist of every [services.Source]:
//
//  1. [Resolver.Resolve] : search the library per track and keep the first candidate the [Scorer] accepts
//     - queries by the cleaned title, then by the original title when it differs
//     - signals are tried in [MatchPolicy] order; the first reaching the threshold wins
//     - tracks without an accepted candidate are unmatched
//
//  2. [Converger.Converge] : create or update the playlist for the primary account, then for
//     every secondary account resolved by [ResolveAccounts], reusing the matched items
//
//  3. [formatter.Ledger] : rewrite or remove the per-playlist CSV of unmatched tracks
//
//  4. [Acquirer.Acquire] : hand unmatched track URLs to the downloader
//
// After the batch the library section is rescanned once if any download was requested, and one
// [models.SyncRun] per playlist is handed to the optional [RunRecorder].
//
// # Scheduling
//
// [Scheduler] reloads the config file before every batch and sleeps for sync.wait_seconds or until
// the file changes. Missing credentials and an unreachable library stop the loop (see [IsFatal]).
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for rendering.
// Updates use select with default to prevent blocking.
package tasks
