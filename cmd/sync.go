package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pxsync/internal/formatter"
	"github.com/desertthunder/pxsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncOnce validates the loaded config and runs a single batch.
func (r *Runner) SyncOnce(ctx context.Context, cmd *cli.Command) error {
	cfg := r.loadedConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	engine, err := r.buildEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build sync engine: %w", err)
	}

	progressCh, done := r.printProgress()
	result, err := engine.Sync(ctx, progressCh)
	close(progressCh)
	<-done

	if result != nil {
		r.printBatch(result)
	}
	return err
}

// SyncDaemon runs batches until interrupted, re-reading --config before each one.
func (r *Runner) SyncDaemon(ctx context.Context, cmd *cli.Command) error {
	progressCh, done := r.printProgress()
	defer func() {
		close(progressCh)
		<-done
	}()

	scheduler := tasks.NewScheduler(tasks.SchedulerOpts{
		ConfigPath: r.configPath,
		Build:      r.buildEngine,
		Logger:     r.logger,
		Progress:   progressCh,
		OnBatch:    r.printBatch,
	})

	r.logger.Info("starting sync daemon", "config", r.configPath)
	return scheduler.Run(ctx)
}

// printProgress drains engine updates onto the output until the returned channel is closed.
func (r *Runner) printProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylists, tasks.FetchTracks:
				r.writePlain("%s\n", formatter.Styles.Title(update.Message))
			case tasks.SearchTracks:
				r.logger.Debug(update.Message)
			default:
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	return progressCh, done
}

func (r *Runner) printBatch(result *tasks.BatchResult) {
	r.writePlainln("%s", formatter.RunSummary(result.Runs))

	for _, err := range result.SourceErrors {
		r.writePlain("%s %v\n", formatter.Styles.Err("source failed:"), err)
	}

	for _, pr := range result.Playlists {
		if pr.Err != nil {
			r.writePlain("%s %s: %v\n", formatter.Styles.Err("skipped"), pr.Playlist.Name, pr.Err)
		}
		for _, outcome := range pr.Converge.Accounts {
			if outcome.Err != nil {
				r.writePlain("%s %s for %s: %v\n", formatter.Styles.Warn("failed"), pr.Playlist.Name, outcome.Account, outcome.Err)
			}
		}
		if pr.Ledger.Err != nil {
			r.writePlain("%s %s: %v\n", formatter.Styles.Warn("ledger"), pr.Playlist.Name, pr.Ledger.Err)
		}
	}

	if result.RescanErr != nil {
		r.writePlain("%s %v\n", formatter.Styles.Warn("rescan failed:"), result.RescanErr)
	} else if result.Rescanned {
		r.writePlain("%s\n", formatter.Styles.OK("library rescan requested"))
	}
}
