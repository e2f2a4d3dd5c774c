package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pxsync/internal/formatter"
	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/services"
	"github.com/desertthunder/pxsync/internal/shared"
)

// DefaultSection is the library section rescanned after downloads.
const DefaultSection = "Music"

// SyncEngine runs one reconciliation batch.
type SyncEngine interface {
	// Sync mirrors every source playlist into the library and returns the per-playlist results.
	Sync(ctx context.Context, progress chan<- ProgressUpdate) (*BatchResult, error)
}

// RunRecorder persists one summary row per reconciled playlist.
type RunRecorder interface {
	Create(run *models.SyncRun) error
}

// PlaylistResult contains everything that happened to one source playlist.
type PlaylistResult struct {
	Source   string
	Playlist models.SourcePlaylist
	Tracks   int
	Match    models.MatchResult
	Converge ConvergeResult
	Ledger   formatter.LedgerOutcome
	Acquired bool
	Err      error // set when the playlist was skipped before matching
}

// Status summarizes the convergence outcome.
func (r PlaylistResult) Status() string {
	switch {
	case r.Converge.Skipped:
		return models.RunStatusSkipped
	case r.Converge.Failed() > 0:
		return models.RunStatusPartial
	default:
		return models.RunStatusSynced
	}
}

// BatchResult contains the results of one [SyncEngine.Sync] call.
type BatchResult struct {
	BatchID      string
	Playlists    []PlaylistResult
	Runs         []models.SyncRun
	SourceErrors []error
	Rescanned    bool
	RescanErr    error
}

// PlaylistEngine implements [SyncEngine] for Spotify → Plex style reconciliation.
type PlaylistEngine struct {
	sources   []services.Source
	library   services.Library
	resolver  *Resolver
	converger *Converger
	ledger    *formatter.Ledger
	acquirer  *Acquirer
	recorder  RunRecorder
	section   string
	logger    *log.Logger
}

// EngineOpts contains the collaborators of a [PlaylistEngine]. Recorder and Acquirer are optional.
type EngineOpts struct {
	Sources   []services.Source
	Library   services.Library
	Resolver  *Resolver
	Converger *Converger
	Ledger    *formatter.Ledger
	Acquirer  *Acquirer
	Recorder  RunRecorder
	Section   string
	Logger    *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided collaborators.
func NewPlaylistEngine(opts EngineOpts) *PlaylistEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Section == "" {
		opts.Section = DefaultSection
	}
	if opts.Ledger == nil {
		opts.Ledger = formatter.NewLedger("", false)
	}
	if opts.Acquirer == nil {
		opts.Acquirer = NewAcquirer(nil, false, opts.Logger)
	}
	return &PlaylistEngine{
		sources:   opts.Sources,
		library:   opts.Library,
		resolver:  opts.Resolver,
		converger: opts.Converger,
		ledger:    opts.Ledger,
		acquirer:  opts.Acquirer,
		recorder:  opts.Recorder,
		section:   opts.Section,
		logger:    opts.Logger,
	}
}

// NewEngineFromConfig wires the matching, convergence, ledger and acquisition stages from cfg.
func NewEngineFromConfig(cfg *shared.Config, lib services.Library, sources []services.Source, downloader services.Downloader, recorder RunRecorder, logger *log.Logger) (*PlaylistEngine, error) {
	policy, err := NewMatchPolicy(cfg.Match)
	if err != nil {
		return nil, err
	}

	scorer := NewScorer(policy, logger)
	converger := NewConverger(ConvergeOptions{
		Append:         cfg.Sync.AppendInsteadOfSync,
		AddDescription: cfg.Sync.AddPlaylistDescription,
		AddPoster:      cfg.Sync.AddPlaylistPoster,
		Accounts:       cfg.Plex.Users,
	}, logger)

	return NewPlaylistEngine(EngineOpts{
		Sources:   sources,
		Library:   lib,
		Resolver:  NewResolver(lib, scorer, cfg.Match.SearchLimit, logger),
		Converger: converger,
		Ledger:    formatter.NewLedger(cfg.Sync.MissingDir, cfg.Sync.WriteMissingAsCSV),
		Acquirer:  NewAcquirer(downloader, cfg.Download.Enabled, logger),
		Recorder:  recorder,
		Section:   cfg.Plex.MusicSection,
		Logger:    logger,
	}), nil
}

// Sync reconciles every playlist of every source, then rescans the library once if any download was requested.
//
// A library that cannot be reached fails the whole batch with [shared.ErrAuthFailed]. Source and playlist
// failures are logged and skipped. Cancellation of ctx stops the batch between calls and returns the
// partial result with the context error.
func (e *PlaylistEngine) Sync(ctx context.Context, progress chan<- ProgressUpdate) (*BatchResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}
	if e.resolver == nil || e.converger == nil {
		return nil, fmt.Errorf("%w: engine is missing its resolver or converger", shared.ErrServiceUnavailable)
	}

	if err := e.library.Ping(ctx); err != nil {
		if errors.Is(err, shared.ErrAuthFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	result := &BatchResult{BatchID: shared.GenerateID()}
	logger := shared.WithLogger(e.logger, "batch", result.BatchID)
	acquired := false

	for _, source := range e.sources {
		sendProgress(progress, fetchPlaylistsUpdate(source.Name()))

		playlists, err := source.Playlists(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			logger.Error("failed to list playlists, skipping source", "source", source.Name(), "err", err)
			result.SourceErrors = append(result.SourceErrors, fmt.Errorf("%s: %w", source.Name(), err))
			continue
		}

		for i, playlist := range playlists {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			sendProgress(progress, fetchTracksUpdate(i+1, len(playlists), playlist))

			pr, err := e.syncPlaylist(ctx, source, playlist, progress)
			result.Playlists = append(result.Playlists, pr)
			if pr.Acquired {
				acquired = true
			}
			if err != nil {
				return result, err
			}
			if pr.Err != nil {
				continue
			}

			result.Runs = append(result.Runs, e.record(result.BatchID, pr, logger))
		}
	}

	if acquired {
		sendProgress(progress, rescanUpdate(e.section))
		result.Rescanned = true
		if err := e.library.Rescan(ctx, e.section); err != nil {
			logger.Error("library rescan failed", "section", e.section, "err", err)
			result.RescanErr = err
		}
	}

	return result, nil
}

// syncPlaylist runs match, converge, ledger and acquisition for one playlist. Only ctx errors are returned.
func (e *PlaylistEngine) syncPlaylist(ctx context.Context, source services.Source, playlist models.SourcePlaylist, progress chan<- ProgressUpdate) (PlaylistResult, error) {
	pr := PlaylistResult{Source: source.Name(), Playlist: playlist}
	logger := shared.WithLogger(e.logger, "playlist", playlist.Name)

	tracks, err := source.Tracks(ctx, playlist)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pr, ctxErr
		}
		logger.Error("failed to fetch tracks, skipping playlist", "err", err)
		pr.Err = err
		return pr, nil
	}
	pr.Tracks = len(tracks)
	logger.Info("syncing playlist", "tracks", len(tracks))

	pr.Match, err = e.resolver.Resolve(ctx, tracks, progress)
	if err != nil {
		return pr, err
	}
	logger.Info("matched tracks", "matched", len(pr.Match.Matched), "missing", len(pr.Match.Unmatched))

	pr.Converge, err = e.converger.Converge(ctx, e.library, playlist, pr.Match.Matched, progress)
	if err != nil {
		return pr, err
	}

	pr.Ledger = e.ledger.Record(playlist.Name, pr.Match.Unmatched)
	if pr.Ledger.Err != nil {
		logger.Error("failed to update missing-track ledger", "path", pr.Ledger.Path, "err", pr.Ledger.Err)
	} else {
		logger.Debug("missing-track ledger", "action", pr.Ledger.Action, "path", pr.Ledger.Path, "rows", pr.Ledger.Rows)
	}
	sendProgress(progress, ledgerUpdate(playlist.Name, pr.Ledger))

	pr.Acquired = e.acquirer.Acquire(ctx, pr.Match.Unmatched)
	if pr.Acquired {
		sendProgress(progress, acquireUpdate(len(pr.Match.Unmatched)))
	}

	return pr, nil
}

// record persists the run when a recorder is configured. Persistence failures are logged only.
func (e *PlaylistEngine) record(batchID string, pr PlaylistResult, logger *log.Logger) models.SyncRun {
	converged := 0
	for _, account := range pr.Converge.Accounts {
		if account.Err == nil {
			converged++
		}
	}

	run := models.SyncRun{
		BatchID:     batchID,
		Source:      pr.Source,
		Playlist:    pr.Playlist.Name,
		TotalTracks: pr.Tracks,
		Matched:     len(pr.Match.Matched),
		Unmatched:   len(pr.Match.Unmatched),
		Accounts:    converged,
		Status:      pr.Status(),
	}
	if pr.Ledger.Action == formatter.LedgerWritten {
		run.LedgerPath = pr.Ledger.Path
	}

	if e.recorder != nil {
		if err := e.recorder.Create(&run); err != nil {
			logger.Error("failed to record sync run", "playlist", run.Playlist, "err", err)
		}
	}
	return run
}
