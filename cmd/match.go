package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pxsync/internal/formatter"
	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Match searches the library for one track and prints the verdict of every candidate.
func (r *Runner) Match(ctx context.Context, cmd *cli.Command) error {
	cfg := r.loadedConfig()

	policy, err := tasks.NewMatchPolicy(cfg.Match)
	if err != nil {
		return err
	}

	lib, err := r.libraryFor(cfg)
	if err != nil {
		return err
	}

	track := models.NewSourceTrack(cmd.String("title"), cmd.String("artist"), cmd.String("album"), "")
	resolver := tasks.NewResolver(lib, tasks.NewScorer(policy, r.logger), cfg.Match.SearchLimit, r.logger)

	verdicts, err := resolver.Explain(ctx, track)
	if err != nil {
		return err
	}

	r.writePlain("%s %s - %s", formatter.Styles.Title("Track:"), track.Artist, track.Title)
	if track.Album != "" {
		r.writePlain(" (%s)", track.Album)
	}
	r.writePlain("\n%s %d candidates, threshold %.2f\n\n", formatter.Styles.Help("Searched:"), len(verdicts), policy.Threshold)

	accepted := false
	for i, v := range verdicts {
		mark := formatter.Styles.Err("✗")
		if v.Verdict.Accepted {
			mark = formatter.Styles.OK("✓")
		}
		r.writePlain("%s %d. %s - %s (%s) [%s]\n", mark, i+1, v.Candidate.Artist, v.Candidate.Title, v.Candidate.Album, v.Candidate.ID)

		for _, s := range v.Verdict.Scores {
			if s.Err != nil {
				r.writePlain("     %-6s %s\n", s.Signal, formatter.Styles.Help(s.Err.Error()))
				continue
			}
			r.writePlain("     %-6s %.3f  %q vs %q\n", s.Signal, s.Score, s.Candidate, s.Source)
		}

		if v.Verdict.Accepted && !accepted {
			accepted = true
			r.writePlain("     %s\n", formatter.Styles.OK(fmt.Sprintf("accepted on %s", v.Verdict.Signal)))
		}
	}

	if !accepted {
		r.writePlainln("%s", formatter.Styles.Warn("No candidate accepted; the track would be recorded as missing"))
	}
	return nil
}
