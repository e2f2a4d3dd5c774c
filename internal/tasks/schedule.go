package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/desertthunder/pxsync/internal/shared"
)

// BuildFunc constructs the engine for one iteration from freshly loaded configuration.
type BuildFunc func(ctx context.Context, cfg *shared.Config) (SyncEngine, error)

// SchedulerOpts contains the configuration of a [Scheduler].
type SchedulerOpts struct {
	ConfigPath string
	Build      BuildFunc
	Logger     *log.Logger
	Progress   chan<- ProgressUpdate
	OnBatch    func(*BatchResult) // called after every successful batch
}

// Scheduler repeats sync batches, reloading the config file before each one.
//
// Between batches it sleeps for sync.wait_seconds or until the config file changes on disk,
// whichever comes first. A wait of zero runs a single batch.
type Scheduler struct {
	path     string
	build    BuildFunc
	logger   *log.Logger
	progress chan<- ProgressUpdate
	onBatch  func(*BatchResult)
}

func NewScheduler(opts SchedulerOpts) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Scheduler{
		path:     opts.ConfigPath,
		build:    opts.Build,
		logger:   opts.Logger,
		progress: opts.Progress,
		onBatch:  opts.OnBatch,
	}
}

// IsFatal reports whether err should stop the daemon instead of waiting for the next iteration.
func IsFatal(err error) bool {
	return errors.Is(err, shared.ErrMissingCredentials) || errors.Is(err, shared.ErrAuthFailed)
}

// Run loops until ctx is cancelled or a fatal error occurs. Cancellation returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	changes, closeWatcher := s.watch()
	defer closeWatcher()

	var last *shared.Config
	for iteration := 1; ctx.Err() == nil; iteration++ {
		cfg, err := s.load(last)
		if err != nil {
			return err
		}
		last = cfg

		logger := s.logger.With("iteration", iteration)
		if err := s.runOnce(ctx, cfg, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if cfg.Sync.WaitSeconds == 0 {
			return nil
		}

		wait := time.Duration(cfg.Sync.WaitSeconds) * time.Second
		logger.Info("waiting for next run", "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		case <-changes:
			timer.Stop()
			logger.Info("config file changed, starting next run early", "path", s.path)
		}
	}
	return nil
}

// load reads and validates the config file. After the first iteration an unreadable file keeps the previous config.
func (s *Scheduler) load(previous *shared.Config) (*shared.Config, error) {
	cfg, err := shared.LoadConfig(s.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err == nil {
		return cfg, nil
	}

	if previous == nil || IsFatal(err) {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	s.logger.Warn("failed to reload config, keeping previous settings", "path", s.path, "err", err)
	return previous, nil
}

// runOnce builds the engine and runs one batch. Only fatal and context errors are returned.
func (s *Scheduler) runOnce(ctx context.Context, cfg *shared.Config, logger *log.Logger) error {
	engine, err := s.build(ctx, cfg)
	if err != nil {
		if IsFatal(err) || ctx.Err() != nil {
			return err
		}
		logger.Error("failed to build sync engine", "err", err)
		return nil
	}

	started := time.Now()
	result, err := engine.Sync(ctx, s.progress)
	if err != nil {
		if IsFatal(err) || ctx.Err() != nil {
			return err
		}
		logger.Error("sync batch failed", "err", err)
		return nil
	}

	logger.Info("sync batch finished", "batch", result.BatchID, "playlists", len(result.Runs), "elapsed", time.Since(started).Round(time.Millisecond))
	if s.onBatch != nil {
		s.onBatch(result)
	}
	return nil
}

// watch reports writes to the config file. The directory is watched so editors that replace the file are seen.
// Without a watcher the returned channel never fires.
func (s *Scheduler) watch() (<-chan struct{}, func()) {
	changes := make(chan struct{}, 1)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("config watcher unavailable", "err", err)
		return changes, func() {}
	}

	target := filepath.Clean(s.path)
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		s.logger.Warn("failed to watch config directory", "path", s.path, "err", err)
		fsw.Close()
		return changes, func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					select {
					case changes <- struct{}{}:
					default:
					}
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				s.logger.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return changes, func() {
		close(done)
		fsw.Close()
	}
}
