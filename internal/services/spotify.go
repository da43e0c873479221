// Spotify Web API implementation of the track fetcher
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyArtist is the subset of the artist object the fetcher reads.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack is the subset of the track object the fetcher reads.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
}

// SpotifyPlaylistTrack is one item of a playlist. Track is null for removed or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks is a page of playlist items.
type SpotifyPaginatedTracks struct {
	Href     string                 `json:"href"`
	Items    []SpotifyPlaylistTrack `json:"items"`
	Limit    int                    `json:"limit"`
	Next     string                 `json:"next"`
	Offset   int                    `json:"offset"`
	Previous string                 `json:"previous"`
	Total    int                    `json:"total"`
}

// SpotifyService reads playlist tracks with an application (client-credentials) token.
type SpotifyService struct {
	api      *APIClient
	tokens   oauth2.TokenSource
	maxPages int
	logger   *log.Logger
}

// NewSpotifyService creates a Spotify service from cfg.
//
// The client-credentials token is fetched lazily and reused until it expires.
func NewSpotifyService(cfg shared.SpotifyConfig, client *http.Client, logger *log.Logger) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	maxPages := cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, client)

	return &SpotifyService{
		api:      NewAPIClient(baseURL, client),
		tokens:   cc.TokenSource(tokenCtx),
		maxPages: maxPages,
		logger:   shared.WithLogger(logger, "service", "spotify"),
	}, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// token returns the cached application token, fetching a new one when it has expired.
func (s *SpotifyService) token() (string, error) {
	tok, err := s.tokens.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if !errors.As(err, &re) && isTimeout(err) {
			return "", fmt.Errorf("%w: spotify token request timed out: %w", shared.ErrUpstreamUnavailable, err)
		}
		return "", fmt.Errorf("%w: spotify client credentials rejected: %w", shared.ErrUpstreamAuth, err)
	}
	return tok.AccessToken, nil
}

// FetchTracks returns the tracks of the playlist, in playlist order.
//
// Items without a name or without any artist are skipped; only the first artist is kept.
// Only the first page is read unless max_pages is raised. A response that cannot be parsed
// yields the tracks read so far rather than an error.
func (s *SpotifyService) FetchTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}

	tracks := []models.Track{}
	path := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	for page := 0; page < s.maxPages && path != ""; page++ {
		resp, err := s.api.Get(ctx, path, nil, token)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, statusError("spotify", resp)
		}

		var body SpotifyPaginatedTracks
		if err := resp.Decode(&body); err != nil {
			s.logger.Warn("unexpected playlist response shape", "playlist", playlistID, "page", page, "err", err)
			return tracks, nil
		}

		for _, item := range body.Items {
			if track, ok := item.toTrack(); ok {
				tracks = append(tracks, track)
			}
		}
		path = body.Next
	}

	s.logger.Debug("fetched playlist tracks", "playlist", playlistID, "tracks", len(tracks))
	return tracks, nil
}

func (i SpotifyPlaylistTrack) toTrack() (models.Track, bool) {
	if i.Track == nil || i.Track.Name == "" || len(i.Track.Artists) == 0 || i.Track.Artists[0].Name == "" {
		return models.Track{}, false
	}
	return models.Track{Title: i.Track.Name, Artist: i.Track.Artists[0].Name}, true
}
