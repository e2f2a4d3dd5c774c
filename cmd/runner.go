package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pxsync/internal/repositories"
	"github.com/desertthunder/pxsync/internal/services"
	"github.com/desertthunder/pxsync/internal/shared"
	"github.com/desertthunder/pxsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators left nil are built from the loaded configuration on first use.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	logCloser  io.Closer
	output     io.Writer
	library    services.Library
	sources    []services.Source
	downloader services.Downloader
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Library    services.Library
	Sources    []services.Source
	Downloader services.Downloader
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		library:    opts.Library,
		sources:    opts.Sources,
		downloader: opts.Downloader,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, matchCommand, ledgerCommand, historyCommand, spotifyCommand, plexCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the config file named by --config before any action runs.
//
// A missing file falls back to the injected or default config. When log.file is set the logger
// is replaced by one that also writes to the rotating file.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err != nil {
		if r.config == nil {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			r.config = shared.DefaultConfig()
		}
	} else {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	if r.config.Log.File != "" && r.logCloser == nil {
		r.logger, r.logCloser = shared.NewLoggerFromConfig(r.config.Log)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLevel(r.config.Log.Level))
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	return ctx, nil
}

// Close releases the database and log file.
func (r *Runner) Close() error {
	if r.logCloser != nil {
		r.logCloser.Close()
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) loadedConfig() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// libraryFor returns the injected library or a Plex client for cfg.
func (r *Runner) libraryFor(cfg *shared.Config) (services.Library, error) {
	if r.library != nil {
		return r.library, nil
	}
	return services.NewPlexService(cfg.Plex, r.logger)
}

// sourcesFor returns the injected sources or a Spotify client for cfg.
//
// A Spotify client that cannot be built is replaced by an [services.UnavailableSource], so the batch
// still runs against the library and reports the source as failed.
func (r *Runner) sourcesFor(ctx context.Context, cfg *shared.Config) []services.Source {
	if r.sources != nil {
		return r.sources
	}
	spotify, err := services.NewSpotifyService(ctx, cfg.Spotify, cfg.Sync.AppendServiceSuffix, r.logger)
	if err != nil {
		r.logger.Warn("skipping spotify sync", "err", err)
		return []services.Source{&services.UnavailableSource{Service: "Spotify", Err: err}}
	}
	return []services.Source{spotify}
}

func (r *Runner) downloaderFor(cfg *shared.Config) services.Downloader {
	if r.downloader != nil {
		return r.downloader
	}
	return services.NewSpotDL(cfg.Download, nil, r.logger)
}

// runs opens the history database on first use.
func (r *Runner) runs(cfg *shared.Config) (*repositories.RunRepository, error) {
	if r.db == nil {
		db, err := shared.OpenDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		r.db = db
	}
	return repositories.NewRunRepository(r.db), nil
}

// buildEngine wires a sync engine for cfg. History is best-effort: an unavailable database only disables it.
func (r *Runner) buildEngine(ctx context.Context, cfg *shared.Config) (tasks.SyncEngine, error) {
	engine, err := r.newEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

func (r *Runner) newEngine(ctx context.Context, cfg *shared.Config) (*tasks.PlaylistEngine, error) {
	library, err := r.libraryFor(cfg)
	if err != nil {
		return nil, err
	}

	sources := r.sourcesFor(ctx, cfg)

	var recorder tasks.RunRecorder
	if repo, err := r.runs(cfg); err != nil {
		r.logger.Warn("sync history disabled", "path", cfg.Database.Path, "err", err)
	} else {
		recorder = repo
	}

	return tasks.NewEngineFromConfig(cfg, library, sources, r.downloaderFor(cfg), recorder, r.logger)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
