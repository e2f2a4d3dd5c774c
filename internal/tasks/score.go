package tasks

import (
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
)

// Signal names one comparison between a candidate and a source track.
type Signal string

const (
	SignalArtist        Signal = "artist"         // candidate artist vs track artist
	SignalAlbum         Signal = "album"          // folded candidate album vs folded cleaned album
	SignalOriginalAlbum Signal = "original_album" // folded candidate album vs folded original album
)

// DefaultSignals is the album-only order. Older deployments prepended [SignalArtist].
var DefaultSignals = []Signal{SignalAlbum, SignalOriginalAlbum}

// DefaultThreshold is the minimum similarity a signal needs to accept a candidate.
const DefaultThreshold = 0.9

// Metric returns a similarity in [0, 1] between two strings.
type Metric func(a, b string) float64

// QuickRatio is an upper bound on the longest-common-subsequence ratio: 2*M/T, where M counts the
// characters the strings share (with multiplicity, ignoring order) and T is their combined length.
// Two empty strings are identical.
func QuickRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}

	avail := make(map[rune]int, len(rb))
	for _, r := range rb {
		avail[r]++
	}

	matches := 0
	for _, r := range ra {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}

func strutilMetric(m strutil.StringMetric) Metric {
	return func(a, b string) float64 {
		return strutil.Similarity(a, b, m)
	}
}

// MetricByName returns the similarity metric registered under name.
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "quick_ratio":
		return QuickRatio, nil
	case "jaro_winkler":
		return strutilMetric(metrics.NewJaroWinkler()), nil
	case "levenshtein":
		return strutilMetric(metrics.NewLevenshtein()), nil
	case "sorensen_dice":
		return strutilMetric(metrics.NewSorensenDice()), nil
	case "jaccard":
		return strutilMetric(metrics.NewJaccard()), nil
	default:
		return nil, fmt.Errorf("%w: unknown similarity metric %q", shared.ErrInvalidConfig, name)
	}
}

// MatchPolicy is the ordered list of signals and the acceptance threshold.
type MatchPolicy struct {
	Threshold float64
	Signals   []Signal
	Metric    Metric
}

// NewMatchPolicy builds a [MatchPolicy] from configuration, falling back to the defaults for empty values.
func NewMatchPolicy(cfg shared.MatchConfig) (MatchPolicy, error) {
	metric, err := MetricByName(cfg.Metric)
	if err != nil {
		return MatchPolicy{}, err
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 || threshold > 1 {
		return MatchPolicy{}, fmt.Errorf("%w: threshold must be in (0, 1], got %v", shared.ErrInvalidConfig, threshold)
	}

	signals := DefaultSignals
	if len(cfg.Signals) > 0 {
		signals = make([]Signal, 0, len(cfg.Signals))
		for _, name := range cfg.Signals {
			s := Signal(strings.ToLower(strings.TrimSpace(name)))
			switch s {
			case SignalArtist, SignalAlbum, SignalOriginalAlbum:
				signals = append(signals, s)
			default:
				return MatchPolicy{}, fmt.Errorf("%w: unknown match signal %q", shared.ErrInvalidConfig, name)
			}
		}
	}

	return MatchPolicy{Threshold: threshold, Signals: signals, Metric: metric}, nil
}

// SignalScore is the outcome of one signal for one candidate.
type SignalScore struct {
	Signal    Signal
	Candidate string
	Source    string
	Score     float64
	Err       error // set when the signal could not be computed
}

// Verdict explains why a candidate was accepted or rejected.
type Verdict struct {
	Accepted bool
	Signal   Signal // the accepting signal
	Scores   []SignalScore
}

// Scorer applies a [MatchPolicy] to candidate/track pairs.
type Scorer struct {
	policy MatchPolicy
	logger *log.Logger
}

func NewScorer(policy MatchPolicy, logger *log.Logger) *Scorer {
	if policy.Metric == nil {
		policy.Metric = QuickRatio
	}
	if len(policy.Signals) == 0 {
		policy.Signals = DefaultSignals
	}
	return &Scorer{policy: policy, logger: logger}
}

// Policy returns the policy the scorer applies.
func (s *Scorer) Policy() MatchPolicy {
	return s.policy
}

// Score walks the signals in order and accepts on the first one reaching the threshold.
// A signal whose metadata is missing is a non-match for that signal only.
func (s *Scorer) Score(candidate models.LibraryItem, track models.SourceTrack) Verdict {
	var verdict Verdict
	for _, signal := range s.policy.Signals {
		a, b, err := operands(signal, candidate, track)
		if err != nil {
			s.logger.Debug("signal skipped", "signal", signal, "candidate", candidate.ID, "err", err)
			verdict.Scores = append(verdict.Scores, SignalScore{Signal: signal, Err: err})
			continue
		}

		score := s.policy.Metric(a, b)
		verdict.Scores = append(verdict.Scores, SignalScore{Signal: signal, Candidate: a, Source: b, Score: score})
		s.logger.Debug("similarity", "signal", signal, "library", a, "source", b, "score", fmt.Sprintf("%.4f", score))

		if score >= s.policy.Threshold {
			verdict.Accepted = true
			verdict.Signal = signal
			return verdict
		}
	}
	return verdict
}

func operands(signal Signal, candidate models.LibraryItem, track models.SourceTrack) (string, string, error) {
	switch signal {
	case SignalArtist:
		if candidate.Artist == "" || track.Artist == "" {
			return "", "", fmt.Errorf("%w: artist", shared.ErrMissingMetadata)
		}
		return strings.ToLower(candidate.Artist), strings.ToLower(track.Artist), nil
	case SignalAlbum:
		return albumOperands(candidate.Album, track.Album)
	case SignalOriginalAlbum:
		return albumOperands(candidate.Album, track.OriginalAlbum)
	default:
		return "", "", fmt.Errorf("%w: unknown signal %q", shared.ErrInvalidArgument, signal)
	}
}

func albumOperands(candidate, source string) (string, string, error) {
	if candidate == "" || source == "" {
		return "", "", fmt.Errorf("%w: album", shared.ErrMissingMetadata)
	}
	return strings.ToLower(shared.FoldAlbum(candidate)), strings.ToLower(shared.FoldAlbum(source)), nil
}
