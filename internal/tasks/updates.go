package tasks

import (
	"fmt"

	"github.com/desertthunder/pxsync/internal/formatter"
	"github.com/desertthunder/pxsync/internal/models"
)

// ProgressUpdate represents a progress event during a sync batch.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchTracks
	SearchTracks
	ConvergePlaylist
	WriteLedger
	AcquireTracks
	RescanLibrary
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTracks:
		return "fetch_tracks"
	case SearchTracks:
		return "search_tracks"
	case ConvergePlaylist:
		return "converge_playlist"
	case WriteLedger:
		return "write_ledger"
	case AcquireTracks:
		return "acquire_tracks"
	case RescanLibrary:
		return "rescan_library"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchPlaylistsUpdate(source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlists from %s...", source),
	}
}

func fetchTracksUpdate(step, total int, playlist models.SourcePlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching tracks of %s...", step, total, playlist.Name),
		Data:    playlist,
	}
}

func searchTrackUpdate(step, total int, track models.SourceTrack, matched bool) ProgressUpdate {
	mark := "✗"
	if matched {
		mark = "✓"
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, mark, track.Artist, track.Title),
	}
}

func convergeUpdate(outcome AccountOutcome) ProgressUpdate {
	msg := fmt.Sprintf("%s: %s", outcome.Account, outcome.Action)
	if outcome.Err != nil {
		msg = fmt.Sprintf("%s: failed: %v", outcome.Account, outcome.Err)
	}
	return ProgressUpdate{
		Phase:   ConvergePlaylist,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    outcome,
	}
}

func ledgerUpdate(name string, outcome formatter.LedgerOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteLedger,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ledger for %s: %s", name, outcome.Action),
		Data:    outcome,
	}
}

func acquireUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AcquireTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Requested download of %d missing tracks", count),
	}
}

func rescanUpdate(section string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RescanLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Rescanning library section %s...", section),
	}
}
