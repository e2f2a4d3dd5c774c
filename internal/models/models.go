package models

import (
	"time"

	"github.com/desertthunder/pxsync/internal/shared"
)

// SourceTrack is a track descriptor from the source service.
//
// Title and Album hold the cleaned display forms derived from OriginalTitle and OriginalAlbum.
// URL is empty when the track is no longer available upstream.
type SourceTrack struct {
	Title         string
	OriginalTitle string
	Artist        string
	Album         string
	OriginalAlbum string
	URL           string
}

// NewSourceTrack builds a [SourceTrack] from raw source metadata, applying the title and album cleaners.
func NewSourceTrack(title, artist, album, url string) SourceTrack {
	return SourceTrack{
		Title:         shared.CleanTitle(title),
		OriginalTitle: title,
		Artist:        artist,
		Album:         shared.CleanAlbum(album),
		OriginalAlbum: album,
		URL:           url,
	}
}

// SourcePlaylist is a playlist descriptor from the source service.
type SourcePlaylist struct {
	ID          string
	Name        string
	Description string
	PosterURL   string
}

// LibraryItem references a media item indexed by the library server.
type LibraryItem struct {
	ID     string
	Title  string
	Artist string
	Album  string
}

// LibraryPlaylist is a playlist stored on the library server.
type LibraryPlaylist struct {
	ID        string
	Title     string
	Summary   string
	ItemCount int
}

// MatchResult partitions a playlist's tracks.
//
// Matched preserves the input order of the tracks that were found and may contain the same item twice.
type MatchResult struct {
	Matched   []LibraryItem
	Unmatched []SourceTrack
}

// Run statuses recorded in [SyncRun].
const (
	RunStatusSynced  = "synced"
	RunStatusSkipped = "skipped"
	RunStatusPartial = "partial"
)

// SyncRun summarizes one playlist reconciliation.
type SyncRun struct {
	ID          string    `json:"id"`
	Sequence    int       `json:"sequence"`
	BatchID     string    `json:"batch_id"`
	Source      string    `json:"source"`
	Playlist    string    `json:"playlist"`
	TotalTracks int       `json:"total_tracks"`
	Matched     int       `json:"matched"`
	Unmatched   int       `json:"unmatched"`
	Accounts    int       `json:"accounts"`
	Status      string    `json:"status"`
	LedgerPath  string    `json:"ledger_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
