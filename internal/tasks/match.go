package tasks

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/services"
)

// DefaultSearchLimit caps the results of a single title query.
const DefaultSearchLimit = 15

// SearchCandidates queries the library by the cleaned title and, when it differs, by the original title.
//
// Results are unioned in query order and deduplicated by item ID. A failed query contributes no
// candidates; only cancellation of ctx is returned as an error.
func SearchCandidates(ctx context.Context, lib services.Searcher, track models.SourceTrack, limit int, logger *log.Logger) ([]models.LibraryItem, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	queries := []string{track.Title}
	if track.OriginalTitle != "" && track.OriginalTitle != track.Title {
		queries = append(queries, track.OriginalTitle)
	}

	var candidates []models.LibraryItem
	seen := make(map[string]bool)
	for _, query := range queries {
		items, err := lib.Search(ctx, query, limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("search failed", "query", query, "err", err)
			continue
		}

		for _, item := range items {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			candidates = append(candidates, item)
		}
	}

	return candidates, nil
}

// CandidateVerdict pairs a candidate with the scorer's verdict.
type CandidateVerdict struct {
	Candidate models.LibraryItem
	Verdict   Verdict
}

// Resolver partitions source tracks into matched library items and unmatched tracks.
type Resolver struct {
	lib    services.Searcher
	scorer *Scorer
	limit  int
	logger *log.Logger
}

func NewResolver(lib services.Searcher, scorer *Scorer, limit int, logger *log.Logger) *Resolver {
	return &Resolver{lib: lib, scorer: scorer, limit: limit, logger: logger}
}

// Resolve processes tracks in input order. The first accepted candidate of each track is appended
// to Matched; tracks without one are appended to Unmatched. The same item may be matched twice.
func (r *Resolver) Resolve(ctx context.Context, tracks []models.SourceTrack, progress chan<- ProgressUpdate) (models.MatchResult, error) {
	result := models.MatchResult{
		Matched:   make([]models.LibraryItem, 0, len(tracks)),
		Unmatched: make([]models.SourceTrack, 0),
	}

	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item, found, err := r.resolveTrack(ctx, track)
		if err != nil {
			return result, err
		}

		if found {
			result.Matched = append(result.Matched, item)
		} else {
			r.logger.Warn("missing", "title", track.Title, "artist", track.Artist, "album", track.Album)
			result.Unmatched = append(result.Unmatched, track)
		}
		sendProgress(progress, searchTrackUpdate(i+1, len(tracks), track, found))
	}

	return result, nil
}

func (r *Resolver) resolveTrack(ctx context.Context, track models.SourceTrack) (models.LibraryItem, bool, error) {
	candidates, err := SearchCandidates(ctx, r.lib, track, r.limit, r.logger)
	if err != nil {
		return models.LibraryItem{}, false, err
	}

	for _, candidate := range candidates {
		verdict := r.scorer.Score(candidate, track)
		if verdict.Accepted {
			r.logger.Info("matched", "title", track.Title, "candidate", candidate.ID, "signal", verdict.Signal)
			return candidate, true, nil
		}
		r.logger.Debug("rejected", "title", track.Title, "candidate", candidate.ID)
	}
	return models.LibraryItem{}, false, nil
}

// Explain scores every candidate of track without short-circuiting.
func (r *Resolver) Explain(ctx context.Context, track models.SourceTrack) ([]CandidateVerdict, error) {
	candidates, err := SearchCandidates(ctx, r.lib, track, r.limit, r.logger)
	if err != nil {
		return nil, err
	}

	verdicts := make([]CandidateVerdict, 0, len(candidates))
	for _, candidate := range candidates {
		verdicts = append(verdicts, CandidateVerdict{Candidate: candidate, Verdict: r.scorer.Score(candidate, track)})
	}
	return verdicts, nil
}
