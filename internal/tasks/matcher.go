package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 4
	defaultRateLimit = 5.0
)

// VideoSearcher finds the first video for a free-text query.
type VideoSearcher interface {
	SearchVideo(ctx context.Context, query string) (videoID string, found bool, err error)
}

// MatcherOpts configures the search fan-out of a [Matcher].
type MatcherOpts struct {
	Workers   int     // Concurrent searches (default: 4)
	RateLimit float64 // Searches per second across all workers (default: 5)
}

// Matcher looks up every track of a playlist on YouTube.
//
// The limiter is shared by every call so concurrent conversions stay under one quota.
type Matcher struct {
	searcher VideoSearcher
	workers  int
	limiter  *rate.Limiter
	logger   *log.Logger
}

type outcomeKind int

const (
	outcomeUnmatched outcomeKind = iota
	outcomeMatched
	outcomeFailed
)

type outcome struct {
	kind    outcomeKind
	videoID string
	err     error
}

// NewMatcher creates a matcher over searcher.
func NewMatcher(searcher VideoSearcher, opts MatcherOpts, logger *log.Logger) *Matcher {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	limit := opts.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Matcher{
		searcher: searcher,
		workers:  workers,
		limiter:  rate.NewLimiter(rate.Limit(limit), 1),
		logger:   shared.WithLogger(logger, "component", "matcher"),
	}
}

// Match searches every track and sorts the results into matches, unmatched and failed tracks.
//
// Results are assembled by input position, so Matches follows the order of tracks.
// A failed search only drops its own track. Cancellation of ctx, or a rejected API key,
// aborts the whole run.
func (m *Matcher) Match(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) (*models.MatchReport, error) {
	total := len(tracks)
	outcomes := make([]outcome, total)
	var done atomic.Int64

	sendProgress(progress, searchTracksUpdate(0, total, nil))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, track := range tracks {
		g.Go(func() error {
			if err := m.limiter.Wait(gctx); err != nil {
				return err
			}

			videoID, found, err := m.searcher.SearchVideo(gctx, track.Query())
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil && credentialError(err):
				return fmt.Errorf("search %q: %w", track.Query(), err)
			case err != nil:
				m.logger.Warn("search failed", "track", track.String(), "err", err)
				outcomes[i] = outcome{kind: outcomeFailed, err: err}
			case found:
				outcomes[i] = outcome{kind: outcomeMatched, videoID: videoID}
			default:
				outcomes[i] = outcome{kind: outcomeUnmatched}
			}

			sendProgress(progress, searchTracksUpdate(int(done.Add(1)), total, &track))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	report := &models.MatchReport{
		Tracks:    tracks,
		Matches:   []models.VideoMatch{},
		Unmatched: []models.Track{},
		Failed:    []models.TrackFailure{},
	}
	for i, o := range outcomes {
		switch o.kind {
		case outcomeMatched:
			report.Matches = append(report.Matches, models.NewVideoMatch(tracks[i], o.videoID))
		case outcomeFailed:
			report.Failed = append(report.Failed, models.TrackFailure{Track: tracks[i], Error: o.err.Error()})
		default:
			report.Unmatched = append(report.Unmatched, tracks[i])
		}
	}

	m.logger.Info("matched tracks", "total", total, "matched", len(report.Matches),
		"unmatched", len(report.Unmatched), "failed", len(report.Failed))
	return report, nil
}

// credentialError reports whether err would fail every other search too.
func credentialError(err error) bool {
	return errors.Is(err, shared.ErrUpstreamAuth) || errors.Is(err, shared.ErrMissingCredentials)
}
