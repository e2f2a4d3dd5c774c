package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
	"github.com/urfave/cli/v3"
)

type playlistSummary struct {
	Source      string `json:"source"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PosterURL   string `json:"poster_url,omitempty"`
}

// SpotifyPlaylists lists the playlists every configured source would mirror.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	sources := r.sourcesFor(ctx, r.loadedConfig())

	var summaries []playlistSummary
	for _, source := range sources {
		playlists, err := source.Playlists(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
		}
		for _, p := range playlists {
			summaries = append(summaries, playlistSummary{
				Source:      source.Name(),
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				PosterURL:   p.PosterURL,
			})
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(summaries))
	for i, p := range summaries {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Source: %s\n\n", p.Source)
	}
	return nil
}

// SpotifyTracks prints the cleaned tracks of the named playlist.
func (r *Runner) SpotifyTracks(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("playlist")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	sources := r.sourcesFor(ctx, r.loadedConfig())

	for _, source := range sources {
		playlists, err := source.Playlists(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
		}
		for _, p := range playlists {
			if p.Name != name && p.ID != name {
				continue
			}
			tracks, err := source.Tracks(ctx, p)
			if err != nil {
				return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
			}
			return r.printTracks(p, tracks)
		}
	}

	return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
}

func (r *Runner) printTracks(p models.SourcePlaylist, tracks []models.SourceTrack) error {
	r.writePlain("Playlist: %s\n", p.Name)
	r.writePlain("Tracks: %d\n\n", len(tracks))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artist, track.Title)
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
		if track.OriginalTitle != track.Title {
			r.writePlain("   Original: %s\n", track.OriginalTitle)
		}
	}
	return nil
}
