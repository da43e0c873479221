package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/auth"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/services"
	"github.com/desertthunder/sp2yt/internal/shared"
)

// TrackFetcher reads the tracks of a Spotify playlist.
type TrackFetcher interface {
	FetchTracks(ctx context.Context, playlistID string) ([]models.Track, error)
}

// Publisher creates a YouTube playlist holding the given matches.
type Publisher interface {
	Publish(ctx context.Context, title string, matches []models.VideoMatch, accessToken string) (*models.PublishResult, error)
}

// SessionResolver hands out YouTube access tokens per session.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (auth.Resolution, error)
	Invalidate(ctx context.Context, sessionID string) error
	AuthURL(sessionID string) string
}

// Recorder stores a history entry for each published playlist.
//
// Implemented by repositories.ConversionRepository.
type Recorder interface {
	Record(ctx context.Context, c *models.Conversion) error
}

// ConvertResult is the outcome of [Converter.ConvertAndPublish].
//
// When RedirectURL is set the playlist was not published and the user must authorize first.
type ConvertResult struct {
	Report      *models.MatchReport
	Publish     *models.PublishResult
	PlaylistURL string
	RedirectURL string
}

// NeedsAuthorization reports whether the caller must send the user to RedirectURL.
func (r *ConvertResult) NeedsAuthorization() bool {
	return r.RedirectURL != ""
}

// Converter runs conversions for the CLI and the HTTP server.
type Converter struct {
	fetcher   TrackFetcher
	matcher   *Matcher
	publisher Publisher
	sessions  SessionResolver
	recorder  Recorder
	logger    *log.Logger
}

// NewConverter creates a Converter with the provided collaborators.
//
// sessions and publisher may be nil for search-only use.
func NewConverter(fetcher TrackFetcher, matcher *Matcher, publisher Publisher, sessions SessionResolver, logger *log.Logger) *Converter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Converter{
		fetcher:   fetcher,
		matcher:   matcher,
		publisher: publisher,
		sessions:  sessions,
		logger:    shared.WithLogger(logger, "component", "converter"),
	}
}

// WithRecorder sets the history recorder used after a successful publish.
func (c *Converter) WithRecorder(r Recorder) *Converter {
	c.recorder = r
	return c
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// SearchOnly matches every track of the playlist at spotifyURL without touching the user's account.
func (c *Converter) SearchOnly(ctx context.Context, spotifyURL string, progress chan<- ProgressUpdate) (*models.MatchReport, error) {
	if c.fetcher == nil || c.matcher == nil {
		return nil, fmt.Errorf("%w: converter is missing a fetcher or matcher", shared.ErrServiceUnavailable)
	}

	ref, err := services.ParseReference(spotifyURL)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, extractReferenceUpdate(ref))

	sendProgress(progress, fetchingTracksUpdate())
	tracks, err := c.fetcher.FetchTracks(ctx, ref.PlaylistID)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, fetchedTracksUpdate(len(tracks)))

	report, err := c.matcher.Match(ctx, tracks, progress)
	if err != nil {
		return nil, err
	}
	report.Reference = ref

	sendProgress(progress, completeUpdate(fmt.Sprintf("Matched %d of %d tracks", len(report.Matches), len(tracks)), report))
	return report, nil
}

// ConvertAndPublish matches the playlist at spotifyURL and publishes the matches as a new
// YouTube playlist on behalf of sessionID.
//
// If the session holds no usable grant, or the grant is revoked while publishing, the result
// carries a RedirectURL instead of a playlist and the error is nil.
func (c *Converter) ConvertAndPublish(ctx context.Context, sessionID, spotifyURL, title string, progress chan<- ProgressUpdate) (*ConvertResult, error) {
	if c.sessions == nil || c.publisher == nil {
		return nil, fmt.Errorf("%w: converter is missing a session manager or publisher", shared.ErrServiceUnavailable)
	}

	report, err := c.SearchOnly(ctx, spotifyURL, progress)
	if err != nil {
		return nil, err
	}
	return c.PublishReport(ctx, sessionID, report, title, progress)
}

// PublishReport publishes the matches of an existing report for sessionID.
//
// It resolves the grant the same way as [Converter.ConvertAndPublish], so a report kept from an
// attempt that needed authorization can be published without searching again.
func (c *Converter) PublishReport(ctx context.Context, sessionID string, report *models.MatchReport, title string, progress chan<- ProgressUpdate) (*ConvertResult, error) {
	if c.sessions == nil || c.publisher == nil {
		return nil, fmt.Errorf("%w: converter is missing a session manager or publisher", shared.ErrServiceUnavailable)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: no match report to publish", shared.ErrInvalidArgument)
	}
	result := &ConvertResult{Report: report}

	res, err := c.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return result, err
	}
	if res.NeedsAuthorization() {
		sendProgress(progress, authorizeUpdate(res.RedirectURL))
		result.RedirectURL = res.RedirectURL
		return result, nil
	}
	sendProgress(progress, authorizeUpdate(""))

	if title == "" {
		title = models.DefaultPlaylistTitle
	}
	sendProgress(progress, createPlaylistUpdate(title, len(report.Matches)))

	published, err := c.publisher.Publish(ctx, title, report.Matches, res.AccessToken)
	result.Publish = published
	if errors.Is(err, shared.ErrAuthorizationRequired) {
		c.logger.Warn("grant rejected while publishing", "session", sessionID, "err", err)
		if err := c.sessions.Invalidate(ctx, sessionID); err != nil {
			return result, err
		}
		result.RedirectURL = c.sessions.AuthURL(sessionID)
		sendProgress(progress, authorizeUpdate(result.RedirectURL))
		return result, nil
	}
	if err != nil {
		return result, err
	}

	result.PlaylistURL = published.Playlist.URL()
	c.record(ctx, sessionID, report, published)

	sendProgress(progress, completeUpdate(fmt.Sprintf("Published %s (%d videos)", result.PlaylistURL, published.Inserted), result))
	return result, nil
}

// record stores the history entry. Failures are logged and never fail the conversion.
func (c *Converter) record(ctx context.Context, sessionID string, report *models.MatchReport, published *models.PublishResult) {
	if c.recorder == nil {
		return
	}

	entry := &models.Conversion{
		SessionID:         sessionID,
		SourceURL:         report.Reference.SourceURL,
		SourcePlaylistID:  report.Reference.PlaylistID,
		YouTubePlaylistID: published.Playlist.ID,
		Title:             published.Playlist.Title,
		TracksTotal:       len(report.Tracks),
		TracksMatched:     len(report.Matches),
		ItemsInserted:     published.Inserted,
		ItemsFailed:       len(published.Failed),
	}
	if err := c.recorder.Record(ctx, entry); err != nil {
		c.logger.Warn("failed to record conversion", "session", sessionID, "err", err)
	}
}
