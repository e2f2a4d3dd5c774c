package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pxsync/internal/formatter"
	"github.com/desertthunder/pxsync/internal/shared"
	"github.com/desertthunder/pxsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlexCheck verifies the server connection and prints the accounts a sync would fan out to.
func (r *Runner) PlexCheck(ctx context.Context, cmd *cli.Command) error {
	cfg := r.loadedConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	lib, err := r.libraryFor(cfg)
	if err != nil {
		return err
	}

	if err := lib.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	r.writePlain("%s server reachable at %s\n", formatter.Styles.OK("✓"), cfg.Plex.URL)

	owner, err := lib.Account(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}
	r.writePlain("%s token owner: %s\n", formatter.Styles.OK("✓"), owner)

	if cfg.Plex.Users == "" {
		r.writePlain("%s\n", formatter.Styles.Help("plex.users is empty; playlists are only created for the owner"))
		return nil
	}

	known, err := lib.Users(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	knownSet := make(map[string]bool, len(known))
	for _, name := range known {
		knownSet[name] = true
	}

	r.writePlainln("Accounts:")
	for _, name := range tasks.ResolveAccounts(cfg.Plex.Users, known, owner) {
		if knownSet[name] {
			r.writePlain("  %s %s\n", formatter.Styles.OK("✓"), name)
		} else {
			r.writePlain("  %s %s %s\n", formatter.Styles.Err("✗"), name, formatter.Styles.Help("(not shared with this server)"))
		}
	}
	return nil
}

// PlexRescan asks the server to scan a library section.
func (r *Runner) PlexRescan(ctx context.Context, cmd *cli.Command) error {
	cfg := r.loadedConfig()
	lib, err := r.libraryFor(cfg)
	if err != nil {
		return err
	}

	section := cmd.String("section")
	if section == "" {
		section = cfg.Plex.MusicSection
	}
	if section == "" {
		section = tasks.DefaultSection
	}

	if err := lib.Rescan(ctx, section); err != nil {
		return err
	}
	r.writePlain("%s rescan requested for %s\n", formatter.Styles.OK("✓"), section)
	return nil
}
