package tasks

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/pxsync/internal/formatter"
	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/services"
	"github.com/desertthunder/pxsync/internal/shared"
	th "github.com/desertthunder/pxsync/internal/testing"
)

type engineFixture struct {
	lib        *th.MockLibrary
	source     *th.MockSource
	downloader *th.MockDownloader
	recorder   *th.MockRecorder
	dir        string
	cfg        *shared.Config
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	cfg := shared.DefaultConfig()
	cfg.Plex.URL = "http://plex.local"
	cfg.Plex.Token = "token"
	cfg.Sync.WriteMissingAsCSV = true
	cfg.Sync.MissingDir = filepath.Join(t.TempDir(), "missing")
	cfg.Sync.AddPlaylistDescription = false
	cfg.Sync.AddPlaylistPoster = false

	lib := th.NewMockLibrary("admin", "kid")
	lib.AddItem("One", models.LibraryItem{ID: "1", Title: "One", Album: "First"})
	lib.AddItem("Two", models.LibraryItem{ID: "2", Title: "Two", Album: "Second"})

	source := &th.MockSource{
		ServiceName: "Spotify",
		List: []models.SourcePlaylist{
			{ID: "p1", Name: "Road Trip - Spotify"},
			{ID: "p2", Name: "Focus - Spotify"},
		},
		Items: map[string][]models.SourceTrack{
			"p1": {
				models.NewSourceTrack("One", "A", "First", "https://open.spotify.com/track/1"),
				models.NewSourceTrack("Missing", "B", "Nowhere", "https://open.spotify.com/track/m"),
				models.NewSourceTrack("Two", "C", "Second", "https://open.spotify.com/track/2"),
			},
			"p2": {
				models.NewSourceTrack("Two", "C", "Second", ""),
			},
		},
	}

	return &engineFixture{
		lib:        lib,
		source:     source,
		downloader: &th.MockDownloader{},
		recorder:   &th.MockRecorder{},
		dir:        cfg.Sync.MissingDir,
		cfg:        cfg,
	}
}

func (f *engineFixture) engine(t *testing.T) *PlaylistEngine {
	t.Helper()
	engine, err := NewEngineFromConfig(f.cfg, f.lib, []services.Source{f.source}, f.downloader, f.recorder, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewEngineFromConfig() error = %v", err)
	}
	return engine
}

func TestPlaylistEngine_Sync(t *testing.T) {
	t.Run("Reconciles Every Playlist", func(t *testing.T) {
		f := newEngineFixture(t)

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if result.BatchID == "" {
			t.Error("expected a batch id")
		}
		if len(result.Playlists) != 2 || len(result.Runs) != 2 {
			t.Fatalf("expected 2 playlists and runs, got %d and %d", len(result.Playlists), len(result.Runs))
		}

		state, ok := f.lib.PlaylistState("admin", "Road Trip - Spotify")
		if !ok {
			t.Fatal("road trip playlist was not created")
		}
		if got := itemIDs(state.Items); len(got) != 2 || got[0] != "1" || got[1] != "2" {
			t.Errorf("items = %v, want [1 2]", got)
		}

		run := result.Runs[0]
		if run.TotalTracks != 3 || run.Matched != 2 || run.Unmatched != 1 || run.Status != models.RunStatusSynced {
			t.Errorf("unexpected run %+v", run)
		}
		if run.BatchID != result.BatchID || run.Source != "Spotify" {
			t.Errorf("run not tagged with batch and source: %+v", run)
		}
		if len(f.recorder.Runs) != 2 {
			t.Errorf("expected 2 recorded runs, got %d", len(f.recorder.Runs))
		}
	})

	t.Run("Ledger Exists Iff Tracks Are Missing", func(t *testing.T) {
		f := newEngineFixture(t)

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}

		ledger := formatter.NewLedger(f.dir, true)
		rows, err := ledger.Read("Road Trip - Spotify")
		if err != nil {
			t.Fatalf("expected road trip ledger: %v", err)
		}
		if len(rows) != 1 || rows[0].Title != "Missing" {
			t.Errorf("unexpected ledger rows %+v", rows)
		}
		if result.Runs[0].LedgerPath != ledger.Path("Road Trip - Spotify") {
			t.Errorf("run ledger path = %q", result.Runs[0].LedgerPath)
		}

		if _, err := os.Stat(ledger.Path("Focus - Spotify")); !os.IsNotExist(err) {
			t.Errorf("fully matched playlist should have no ledger, stat err = %v", err)
		}

		f.lib.AddItem("Missing", models.LibraryItem{ID: "m", Title: "Missing", Album: "Nowhere"})
		if _, err := f.engine(t).Sync(context.Background(), nil); err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}
		if _, err := os.Stat(ledger.Path("Road Trip - Spotify")); !os.IsNotExist(err) {
			t.Errorf("ledger should be removed once every track matches, stat err = %v", err)
		}
	})

	t.Run("Second Run Converges To Same State", func(t *testing.T) {
		f := newEngineFixture(t)

		for i := 0; i < 2; i++ {
			if _, err := f.engine(t).Sync(context.Background(), nil); err != nil {
				t.Fatalf("run %d: Sync() error = %v", i, err)
			}
		}

		state, _ := f.lib.PlaylistState("admin", "Road Trip - Spotify")
		if got := itemIDs(state.Items); len(got) != 2 {
			t.Errorf("replace mode should not accumulate items, got %v", got)
		}
		if f.lib.PlaylistCount() != 2 {
			t.Errorf("expected 2 playlists, got %d", f.lib.PlaylistCount())
		}
	})

	t.Run("Empty Playlist Writes Nothing", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.List = []models.SourcePlaylist{{ID: "empty", Name: "Empty - Spotify"}}

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if f.lib.PlaylistCount() != 0 {
			t.Error("no playlist should be created for an empty track list")
		}
		if _, err := os.Stat(f.dir); !os.IsNotExist(err) {
			t.Errorf("no ledger should be written, stat err = %v", err)
		}
		if result.Runs[0].Status != models.RunStatusSkipped {
			t.Errorf("status = %s, want skipped", result.Runs[0].Status)
		}
	})

	t.Run("Fans Out To Secondary Accounts", func(t *testing.T) {
		f := newEngineFixture(t)
		f.cfg.Plex.Users = "all"

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if _, ok := f.lib.PlaylistState("kid", "Focus - Spotify"); !ok {
			t.Error("kid should receive the playlist")
		}
		if result.Runs[0].Accounts != 2 {
			t.Errorf("accounts = %d, want 2", result.Runs[0].Accounts)
		}
		if n := f.lib.CallCount("search"); n != 4 {
			t.Errorf("expected one search per track, got %d", n)
		}
	})

	t.Run("Partial When An Account Fails", func(t *testing.T) {
		f := newEngineFixture(t)
		f.cfg.Plex.Users = "kid"
		f.lib.Fail("switch", "kid", shared.ErrUserNotFound)

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if result.Runs[0].Status != models.RunStatusPartial || result.Runs[0].Accounts != 1 {
			t.Errorf("unexpected run %+v", result.Runs[0])
		}
	})

	t.Run("Source Listing Failure Skips Source", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.PlaylistsErr = shared.ErrAPIRequest

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if len(result.SourceErrors) != 1 || !errors.Is(result.SourceErrors[0], shared.ErrAPIRequest) {
			t.Errorf("unexpected source errors %v", result.SourceErrors)
		}
		if len(result.Runs) != 0 {
			t.Errorf("expected no runs, got %d", len(result.Runs))
		}
	})

	t.Run("Track Listing Failure Skips Playlist", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.TracksErr = map[string]error{"p1": shared.ErrAPIRequest}

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if len(result.Runs) != 1 || result.Runs[0].Playlist != "Focus - Spotify" {
			t.Errorf("expected only focus to be recorded, got %+v", result.Runs)
		}
		if !errors.Is(result.Playlists[0].Err, shared.ErrAPIRequest) {
			t.Errorf("expected skipped playlist error, got %v", result.Playlists[0].Err)
		}
	})

	t.Run("Unreachable Library Is Fatal", func(t *testing.T) {
		f := newEngineFixture(t)
		f.lib.Fail("ping", "", errors.New("connection refused"))

		_, err := f.engine(t).Sync(context.Background(), nil)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if !IsFatal(err) {
			t.Error("library failure should stop the daemon")
		}
	})

	t.Run("Downloads Missing Tracks And Rescans Once", func(t *testing.T) {
		f := newEngineFixture(t)
		f.cfg.Download.Enabled = true
		f.cfg.Plex.MusicSection = "Tunes"
		f.source.Items["p2"] = append(f.source.Items["p2"], models.NewSourceTrack("Gone", "", "", "https://open.spotify.com/track/g"))

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if len(f.downloader.Requests) != 2 {
			t.Fatalf("expected one download request per playlist, got %d", len(f.downloader.Requests))
		}
		if got := f.downloader.Requests[0]; len(got) != 1 || got[0] != "https://open.spotify.com/track/m" {
			t.Errorf("unexpected download urls %v", got)
		}
		if rescans := f.lib.Rescans(); len(rescans) != 1 || rescans[0] != "Tunes" {
			t.Errorf("expected a single rescan of Tunes, got %v", rescans)
		}
		if !result.Rescanned {
			t.Error("result should report the rescan")
		}
	})

	t.Run("No Rescan Without Downloads", func(t *testing.T) {
		f := newEngineFixture(t)

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if result.Rescanned || len(f.lib.Rescans()) != 0 || len(f.downloader.Requests) != 0 {
			t.Error("download disabled should neither download nor rescan")
		}
	})

	t.Run("Recorder Failure Is Not Fatal", func(t *testing.T) {
		f := newEngineFixture(t)
		f.recorder.Err = errors.New("disk full")

		result, err := f.engine(t).Sync(context.Background(), nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if len(result.Runs) != 2 {
			t.Errorf("runs should still be reported, got %d", len(result.Runs))
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		f := newEngineFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.engine(t).Sync(ctx, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Missing Collaborators", func(t *testing.T) {
		engine := NewPlaylistEngine(EngineOpts{})
		if _, err := engine.Sync(context.Background(), nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Invalid Match Config", func(t *testing.T) {
		f := newEngineFixture(t)
		f.cfg.Match.Signals = []string{"genre"}

		_, err := NewEngineFromConfig(f.cfg, f.lib, nil, nil, nil, shared.NewLogger(io.Discard))
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	f := newEngineFixture(t)

	engine := f.engine(t)

	// unbuffered and never read
	progressCh := make(chan ProgressUpdate)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Sync(context.Background(), progressCh)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Sync() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Sync() should not block on progress sends")
	}
}

func TestPhaseString(t *testing.T) {
	phases := map[Phase]string{
		FetchPlaylists:   "fetch_playlists",
		FetchTracks:      "fetch_tracks",
		SearchTracks:     "search_tracks",
		ConvergePlaylist: "converge_playlist",
		WriteLedger:      "write_ledger",
		AcquireTracks:    "acquire_tracks",
		RescanLibrary:    "rescan_library",
		Phase(99):        "",
	}
	for phase, want := range phases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
