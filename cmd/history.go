package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pxsync/internal/formatter"
	"github.com/desertthunder/pxsync/internal/models"
	"github.com/urfave/cli/v3"
)

// History lists recorded sync runs, newest first, or every run of one batch.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runs(r.loadedConfig())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	var runs []*models.SyncRun
	if batch := cmd.String("batch"); batch != "" {
		runs, err = repo.Batch(batch)
	} else {
		runs, err = repo.List(cmd.String("playlist"), cmd.Int("limit"))
	}
	if err != nil {
		return err
	}

	rows := make([]models.SyncRun, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, *run)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	if len(rows) == 0 {
		return r.writePlain("No sync runs recorded\n")
	}
	return r.writePlain("%s\n", formatter.RunTable(rows))
}
