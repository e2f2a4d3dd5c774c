package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/services"
	"github.com/desertthunder/pxsync/internal/shared"
)

// AllAccounts expands to every account the library knows.
const AllAccounts = "all"

// PlaylistAction records what convergence did to an account's playlist.
type PlaylistAction int

const (
	ActionNone PlaylistAction = iota
	ActionCreated
	ActionReplaced
	ActionAppended
)

func (a PlaylistAction) String() string {
	switch a {
	case ActionCreated:
		return "created"
	case ActionReplaced:
		return "replaced"
	case ActionAppended:
		return "appended"
	default:
		return "none"
	}
}

// MetadataStatus distinguishes a metadata update that was skipped by configuration from one that failed.
type MetadataStatus int

const (
	MetadataSkipped MetadataStatus = iota
	MetadataUpdated
	MetadataFailed
)

func (s MetadataStatus) String() string {
	switch s {
	case MetadataUpdated:
		return "updated"
	case MetadataFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// MetadataOutcome is the result of one best-effort metadata update.
type MetadataOutcome struct {
	Status MetadataStatus
	Err    error
}

// AccountOutcome is the result of converging one account's playlist.
type AccountOutcome struct {
	Account    string
	Primary    bool
	Action     PlaylistAction
	PlaylistID string
	Summary    MetadataOutcome
	Poster     MetadataOutcome
	Err        error
}

// ConvergeResult collects the per-account outcomes of one playlist.
type ConvergeResult struct {
	Skipped  bool // no matched items, nothing was touched
	Accounts []AccountOutcome
}

// Failed counts the accounts whose playlist could not be converged.
func (r ConvergeResult) Failed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// ConvergeOptions are the convergence switches.
type ConvergeOptions struct {
	Append         bool   // add items without clearing the existing playlist
	AddDescription bool   // copy the source description to the playlist summary
	AddPoster      bool   // upload the source artwork
	Accounts       string // secondary accounts, "all" or a comma separated list
}

// Converger brings the library playlists of the primary and secondary accounts in line with a resolved item list.
type Converger struct {
	opts   ConvergeOptions
	logger *log.Logger
}

func NewConverger(opts ConvergeOptions, logger *log.Logger) *Converger {
	return &Converger{opts: opts, logger: logger}
}

// ResolveAccounts expands a users setting into the secondary account names.
//
// "all" (any case) selects every known account; otherwise users is a comma separated list.
// The primary account, blanks and duplicates are dropped; order is preserved.
func ResolveAccounts(users string, known []string, primary string) []string {
	names := shared.SplitList(users)
	if len(names) == 1 && strings.EqualFold(names[0], AllAccounts) {
		names = known
	}

	var accounts []string
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] || strings.EqualFold(name, primary) {
			continue
		}
		seen[key] = true
		accounts = append(accounts, name)
	}
	return accounts
}

// Converge applies items to the playlist for the primary account, then for each secondary account in turn.
//
// An empty item list touches nothing and is reported as skipped. Failures are recorded per account and never
// stop the remaining accounts. Only cancellation of ctx is returned as an error.
func (c *Converger) Converge(ctx context.Context, lib services.Library, playlist models.SourcePlaylist, items []models.LibraryItem, progress chan<- ProgressUpdate) (ConvergeResult, error) {
	var result ConvergeResult
	logger := shared.WithLogger(c.logger, "playlist", playlist.Name)

	if len(items) == 0 {
		logger.Info("no tracks found on the library, skipping playlist")
		result.Skipped = true
		return result, nil
	}

	primary := c.convergeAccount(ctx, lib, "", true, playlist, items, logger)
	result.Accounts = append(result.Accounts, primary)
	sendProgress(progress, convergeUpdate(primary))
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if strings.TrimSpace(c.opts.Accounts) == "" {
		return result, nil
	}

	accounts, err := c.secondaryAccounts(ctx, lib)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		logger.Error("failed to resolve library accounts", "err", err)
		result.Accounts = append(result.Accounts, AccountOutcome{Account: c.opts.Accounts, Err: err})
		return result, nil
	}

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := c.convergeSecondary(ctx, lib, account, playlist, items, logger)
		result.Accounts = append(result.Accounts, outcome)
		sendProgress(progress, convergeUpdate(outcome))
	}

	return result, nil
}

func (c *Converger) secondaryAccounts(ctx context.Context, lib services.Library) ([]string, error) {
	primary, err := lib.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary account: %w", err)
	}

	var known []string
	if strings.EqualFold(strings.TrimSpace(c.opts.Accounts), AllAccounts) {
		if known, err = lib.Users(ctx); err != nil {
			return nil, fmt.Errorf("failed to list library users: %w", err)
		}
	}

	return ResolveAccounts(c.opts.Accounts, known, primary), nil
}

func (c *Converger) convergeSecondary(ctx context.Context, lib services.Library, account string, playlist models.SourcePlaylist, items []models.LibraryItem, logger *log.Logger) AccountOutcome {
	scoped, err := lib.SwitchUser(ctx, account)
	if err != nil {
		logger.Error("failed to switch account", "account", account, "err", err)
		return AccountOutcome{Account: account, Err: err}
	}
	return c.convergeAccount(ctx, scoped, account, false, playlist, items, logger)
}

// convergeAccount creates or converges the playlist of the account lib acts as, then updates its metadata.
func (c *Converger) convergeAccount(ctx context.Context, lib services.PlaylistEditor, account string, primary bool, playlist models.SourcePlaylist, items []models.LibraryItem, logger *log.Logger) AccountOutcome {
	outcome := AccountOutcome{Account: account, Primary: primary}
	if primary {
		outcome.Account = "primary"
	}
	logger = logger.With("account", outcome.Account)

	target, err := lib.Playlist(ctx, playlist.Name)
	switch {
	case errors.Is(err, shared.ErrPlaylistNotFound):
		target, err = lib.CreatePlaylist(ctx, playlist.Name, items)
		if err != nil {
			logger.Error("failed to create playlist", "err", err)
			outcome.Err = err
			return outcome
		}
		outcome.Action = ActionCreated
		logger.Info("created playlist", "items", len(items))
	case err != nil:
		logger.Error("failed to look up playlist", "err", err)
		outcome.Err = err
		return outcome
	default:
		if !c.opts.Append {
			if err := lib.ClearPlaylist(ctx, target); err != nil {
				logger.Error("failed to clear playlist", "err", err)
				outcome.Err = err
				return outcome
			}
		}
		if err := lib.AddItems(ctx, target, items); err != nil {
			logger.Error("failed to add items", "err", err)
			outcome.Err = err
			return outcome
		}
		outcome.Action = ActionReplaced
		if c.opts.Append {
			outcome.Action = ActionAppended
		}
		logger.Info("updated playlist", "action", outcome.Action, "items", len(items))
	}
	outcome.PlaylistID = target.ID

	if playlist.Description != "" && c.opts.AddDescription {
		outcome.Summary = metadataOutcome(lib.EditSummary(ctx, target, playlist.Description))
		if outcome.Summary.Err != nil {
			logger.Warn("failed to update description", "err", outcome.Summary.Err)
		}
	}

	if playlist.PosterURL != "" && c.opts.AddPoster {
		outcome.Poster = metadataOutcome(lib.UploadPoster(ctx, target, playlist.PosterURL))
		if outcome.Poster.Err != nil {
			logger.Warn("failed to update poster", "err", outcome.Poster.Err)
		}
	}

	return outcome
}

func metadataOutcome(err error) MetadataOutcome {
	if err != nil {
		return MetadataOutcome{Status: MetadataFailed, Err: err}
	}
	return MetadataOutcome{Status: MetadataUpdated}
}
