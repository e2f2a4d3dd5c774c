// Package models defines the values passed between the source service, the matching engine and the library.
//
// The package contains two categories of types:
//
// 1. Descriptors read from external services
//   - [SourceTrack] : Track metadata from the source service, cleaned once at ingestion
//   - [SourcePlaylist] : Playlist metadata with the service suffix already applied
//   - [LibraryItem] : Opaque reference to an indexed media item on the library server
//   - [LibraryPlaylist] : Playlist stored on the library server, joined by exact title
//
// 2. Results and persisted records
//   - [MatchResult] : Partition of one playlist's tracks into matched items and unmatched tracks
//   - [SyncRun] : Summary of one playlist reconciliation stored in the run history
//
// Values are never mutated after creation; a fresh [MatchResult] is computed on every run.
package models
