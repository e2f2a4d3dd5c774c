package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
)

// Source is a music service whose playlists are mirrored into the library.
type Source interface {
	// Name returns the name of the service (e.g., "Spotify")
	Name() string

	// Playlists lists the playlists to mirror, with any service suffix already applied.
	Playlists(ctx context.Context) ([]models.SourcePlaylist, error)

	// Tracks lists a playlist's tracks in playlist order. Removed items are skipped.
	Tracks(ctx context.Context, playlist models.SourcePlaylist) ([]models.SourceTrack, error)
}

// Searcher finds candidate items by title.
type Searcher interface {
	Search(ctx context.Context, title string, limit int) ([]models.LibraryItem, error)
}

// PlaylistEditor manages playlists of the account the client is currently acting as.
type PlaylistEditor interface {
	// Playlist returns the playlist with exactly this title, or [shared.ErrPlaylistNotFound].
	Playlist(ctx context.Context, title string) (*models.LibraryPlaylist, error)

	// CreatePlaylist creates a playlist seeded with items.
	CreatePlaylist(ctx context.Context, title string, items []models.LibraryItem) (*models.LibraryPlaylist, error)

	// ClearPlaylist removes every item from the playlist.
	ClearPlaylist(ctx context.Context, playlist *models.LibraryPlaylist) error

	// AddItems appends items to the playlist. Duplicates are kept.
	AddItems(ctx context.Context, playlist *models.LibraryPlaylist, items []models.LibraryItem) error

	EditSummary(ctx context.Context, playlist *models.LibraryPlaylist, summary string) error
	UploadPoster(ctx context.Context, playlist *models.LibraryPlaylist, posterURL string) error
}

// Library is the media server the playlists converge on.
//
// SwitchUser returns a Library acting as another account; the receiver is left unchanged.
type Library interface {
	Searcher
	PlaylistEditor

	// Ping verifies the server is reachable with the configured credentials.
	Ping(ctx context.Context) error

	// Account returns the name of the account that owns the token.
	Account(ctx context.Context) (string, error)

	// Users lists the names of every account the server is shared with.
	Users(ctx context.Context) ([]string, error)

	SwitchUser(ctx context.Context, name string) (Library, error)

	// Rescan asks the server to scan the named library section for new media.
	Rescan(ctx context.Context, section string) error
}

// Downloader fetches audio for source track URLs into the library's watched folder.
type Downloader interface {
	Download(ctx context.Context, urls []string) error
}

// UnavailableSource stands in for a source whose client could not be built.
//
// Every listing returns the setup error wrapped in [shared.ErrSourceUnavailable], so a batch reports
// the source as failed and carries on with the others.
type UnavailableSource struct {
	Service string
	Err     error
}

func (u *UnavailableSource) Name() string {
	return u.Service
}

func (u *UnavailableSource) Playlists(ctx context.Context) ([]models.SourcePlaylist, error) {
	return nil, fmt.Errorf("%w: %w", shared.ErrSourceUnavailable, u.Err)
}

func (u *UnavailableSource) Tracks(ctx context.Context, playlist models.SourcePlaylist) ([]models.SourceTrack, error) {
	return nil, fmt.Errorf("%w: %w", shared.ErrSourceUnavailable, u.Err)
}
