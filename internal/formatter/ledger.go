package formatter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
)

// LedgerAction is what [Ledger.Record] did to a playlist's ledger file.
type LedgerAction int

const (
	LedgerSkipped LedgerAction = iota // disabled, or nothing to delete
	LedgerWritten
	LedgerDeleted
	LedgerFailed
)

func (a LedgerAction) String() string {
	switch a {
	case LedgerWritten:
		return "written"
	case LedgerDeleted:
		return "deleted"
	case LedgerFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// LedgerOutcome reports the result of one ledger update.
type LedgerOutcome struct {
	Action LedgerAction
	Path   string
	Rows   int
	Err    error
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", string(filepath.Separator), "_")

// Ledger keeps one CSV file of unmatched tracks per playlist inside a directory.
type Ledger struct {
	dir     string
	enabled bool
}

func NewLedger(dir string, enabled bool) *Ledger {
	return &Ledger{dir: dir, enabled: enabled}
}

// Enabled reports whether Record writes anything.
func (l *Ledger) Enabled() bool { return l.enabled }

// Path returns the ledger file of the named playlist.
func (l *Ledger) Path(name string) string {
	return filepath.Join(l.dir, nameReplacer.Replace(name)+".csv")
}

// Record overwrites the ledger of name with tracks, or removes it when tracks is empty.
//
// Failures are returned in the outcome and never panic or abort the caller.
func (l *Ledger) Record(name string, tracks []models.SourceTrack) LedgerOutcome {
	if !l.enabled {
		return LedgerOutcome{Action: LedgerSkipped}
	}
	if strings.TrimSpace(name) == "" {
		return LedgerOutcome{Action: LedgerFailed, Err: fmt.Errorf("%w: playlist name is empty", shared.ErrInvalidInput)}
	}

	path := l.Path(name)
	if len(tracks) == 0 {
		err := os.Remove(path)
		switch {
		case err == nil:
			return LedgerOutcome{Action: LedgerDeleted, Path: path}
		case errors.Is(err, os.ErrNotExist):
			return LedgerOutcome{Action: LedgerSkipped, Path: path}
		default:
			return LedgerOutcome{Action: LedgerFailed, Path: path, Err: fmt.Errorf("failed to delete ledger: %w", err)}
		}
	}

	data, err := ExportToCSV(tracks)
	if err != nil {
		return LedgerOutcome{Action: LedgerFailed, Path: path, Err: err}
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return LedgerOutcome{Action: LedgerFailed, Path: path, Err: fmt.Errorf("failed to create ledger directory: %w", err)}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return LedgerOutcome{Action: LedgerFailed, Path: path, Err: fmt.Errorf("failed to write ledger: %w", err)}
	}

	return LedgerOutcome{Action: LedgerWritten, Path: path, Rows: len(tracks)}
}

// Read parses the ledger of the named playlist.
func (l *Ledger) Read(name string) ([]models.SourceTrack, error) {
	data, err := os.ReadFile(l.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no ledger for %q", shared.ErrPlaylistNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return ParseCSV(bytes.NewReader(data))
}
