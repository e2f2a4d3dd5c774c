// Spotify implementation of [Source]
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
)

// SpotifySuffix marks playlists mirrored from Spotify.
const SpotifySuffix = " - Spotify"

// SpotifyService lists a user's public playlists through the Spotify Web API.
type SpotifyService struct {
	client *spotify.Client
	userID string
	suffix string
	names  map[string]bool
	ids    map[string]bool
	logger *log.Logger
}

// NewSpotifyService authenticates with the client credentials flow and returns a [SpotifyService] for cfg.UserID.
//
// When appendSuffix is set every playlist name carries [SpotifySuffix].
func NewSpotifyService(ctx context.Context, cfg shared.SpotifyConfig, appendSuffix bool, logger *log.Logger) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrSourceCredentials)
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("%w: spotify user_id is required", shared.ErrSourceCredentials)
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}

	var opts []spotify.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}

	client := spotify.New(credentials.Client(ctx), opts...)
	return newSpotifyService(client, cfg, appendSuffix, logger), nil
}

func newSpotifyService(client *spotify.Client, cfg shared.SpotifyConfig, appendSuffix bool, logger *log.Logger) *SpotifyService {
	s := &SpotifyService{
		client: client,
		userID: cfg.UserID,
		names:  toSet(cfg.Playlists),
		ids:    toSet(cfg.PlaylistIDs),
		logger: logger,
	}
	if appendSuffix {
		s.suffix = SpotifySuffix
	}
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Playlists lists the user's playlists, following pagination, and applies the name and id filters.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.SourcePlaylist, error) {
	page, err := s.client.GetPlaylistsForUser(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list playlists for %s: %v", shared.ErrAPIRequest, s.userID, err)
	}

	var playlists []models.SourcePlaylist
	for {
		for _, p := range page.Playlists {
			playlist := toSourcePlaylist(p, s.suffix)
			if !s.wanted(playlist) {
				s.logger.Debug("playlist filtered out", "playlist", playlist.Name)
				continue
			}
			playlists = append(playlists, playlist)
		}

		err = s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: playlist pagination: %v", shared.ErrAPIRequest, err)
		}
	}

	return playlists, nil
}

// Tracks lists a playlist's tracks in order. Items without a track object (removed tracks, podcast episodes) are skipped.
func (s *SpotifyService) Tracks(ctx context.Context, playlist models.SourcePlaylist) ([]models.SourceTrack, error) {
	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlist.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list tracks of %s: %v", shared.ErrAPIRequest, playlist.Name, err)
	}

	var tracks []models.SourceTrack
	for {
		for _, item := range page.Items {
			if item.Track.Track == nil {
				continue
			}
			tracks = append(tracks, toSourceTrack(item.Track.Track))
		}

		err = s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: track pagination: %v", shared.ErrAPIRequest, err)
		}
	}

	return tracks, nil
}

func (s *SpotifyService) wanted(p models.SourcePlaylist) bool {
	if len(s.names) > 0 && !s.names[p.Name] {
		return false
	}
	if len(s.ids) > 0 && !s.ids[p.ID] {
		return false
	}
	return true
}

func toSourcePlaylist(p spotify.SimplePlaylist, suffix string) models.SourcePlaylist {
	playlist := models.SourcePlaylist{
		ID:          string(p.ID),
		Name:        p.Name + suffix,
		Description: p.Description,
	}
	if len(p.Images) > 0 {
		playlist.PosterURL = p.Images[0].URL
	}
	return playlist
}

// toSourceTrack keeps only the first credited artist.
func toSourceTrack(t *spotify.FullTrack) models.SourceTrack {
	var artist string
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	return models.NewSourceTrack(t.Name, artist, t.Album.Name, t.ExternalURLs["spotify"])
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	return set
}
