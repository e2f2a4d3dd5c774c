package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/pxsync/internal/formatter"
	"github.com/desertthunder/pxsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// LedgerShow prints the missing tracks recorded for a playlist.
func (r *Runner) LedgerShow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("playlist")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	cfg := r.loadedConfig()
	ledger := formatter.NewLedger(cfg.Sync.MissingDir, true)

	if cmd.Bool("csv") {
		data, err := os.ReadFile(ledger.Path(name))
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: no ledger for %q", shared.ErrPlaylistNotFound, name)
			}
			return fmt.Errorf("failed to read ledger: %w", err)
		}
		_, err = r.output.Write(data)
		return err
	}

	tracks, err := ledger.Read(name)
	if err != nil {
		return err
	}

	_, err = r.output.Write(formatter.ExportToText(name, tracks))
	return err
}
