// YouTube Data API v3 implementation of video search and playlist publishing
//
// Resource shapes based on https://developers.google.com/youtube/v3/docs
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
)

const (
	youtubeBaseURL     = "https://www.googleapis.com/youtube/v3"
	playlistDesc       = "Converted from Spotify"
	playlistVisibility = "public"
)

// YouTubeSearchResult is a search.list item.
type YouTubeSearchResult struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
	} `json:"snippet"`
}

// YouTubeSearchResponse is the search.list response.
type YouTubeSearchResponse struct {
	Items []YouTubeSearchResult `json:"items"`
}

type playlistSnippet struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type playlistStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
}

// YouTubePlaylistResource is the playlists resource sent to and returned by playlists.insert.
type YouTubePlaylistResource struct {
	ID      string          `json:"id,omitempty"`
	Snippet playlistSnippet `json:"snippet"`
	Status  playlistStatus  `json:"status"`
}

type resourceID struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

// YouTubePlaylistItemResource is the playlistItems resource sent to playlistItems.insert.
type YouTubePlaylistItemResource struct {
	ID      string `json:"id,omitempty"`
	Snippet struct {
		PlaylistID string     `json:"playlistId"`
		ResourceID resourceID `json:"resourceId"`
	} `json:"snippet"`
}

// YouTubeService searches videos with an API key and writes playlists with a user access token.
type YouTubeService struct {
	api    *APIClient
	apiKey string
	logger *log.Logger
}

// NewYouTubeService creates a YouTube Data API service from cfg.
func NewYouTubeService(cfg shared.YouTubeConfig, client *http.Client, logger *log.Logger) *YouTubeService {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = youtubeBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &YouTubeService{
		api:    NewAPIClient(baseURL, client),
		apiKey: cfg.APIKey,
		logger: shared.WithLogger(logger, "service", "youtube"),
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// SearchVideo returns the id of the first video found for query.
//
// A response without items, or whose first item carries no video id, is reported as not found.
func (y *YouTubeService) SearchVideo(ctx context.Context, query string) (string, bool, error) {
	if y.apiKey == "" {
		return "", false, fmt.Errorf("%w: missing youtube api_key", shared.ErrMissingCredentials)
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("q", query)
	params.Set("key", y.apiKey)

	resp, err := y.api.Get(ctx, "/search", params, "")
	if err != nil {
		return "", false, err
	}
	if !resp.OK() {
		return "", false, statusError("youtube", resp)
	}

	var body YouTubeSearchResponse
	if err := resp.Decode(&body); err != nil {
		y.logger.Warn("unexpected search response shape", "query", query, "err", err)
		return "", false, nil
	}
	if len(body.Items) == 0 || body.Items[0].ID.VideoID == "" {
		return "", false, nil
	}

	return body.Items[0].ID.VideoID, true, nil
}

// CreatePlaylist creates an empty public playlist titled title.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, title, accessToken string) (*models.YouTubePlaylist, error) {
	params := url.Values{}
	params.Set("part", "snippet,status")

	resource := YouTubePlaylistResource{
		Snippet: playlistSnippet{Title: title, Description: playlistDesc},
		Status:  playlistStatus{PrivacyStatus: playlistVisibility},
	}

	resp, err := y.api.PostJSON(ctx, "/playlists", params, accessToken, resource)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrPlaylistCreate, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: playlist create rejected the access token", shared.ErrAuthorizationRevoked)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %w", shared.ErrPlaylistCreate, statusError("youtube", resp))
	}

	var created YouTubePlaylistResource
	if err := resp.Decode(&created); err != nil || created.ID == "" {
		return nil, fmt.Errorf("%w: %w: create response carried no playlist id", shared.ErrPlaylistCreate, shared.ErrUpstreamData)
	}

	return &models.YouTubePlaylist{ID: created.ID, Title: title, VideoIDs: []string{}}, nil
}

// InsertItem appends videoID to the playlist.
func (y *YouTubeService) InsertItem(ctx context.Context, playlistID, videoID, accessToken string) error {
	params := url.Values{}
	params.Set("part", "snippet")

	var item YouTubePlaylistItemResource
	item.Snippet.PlaylistID = playlistID
	item.Snippet.ResourceID = resourceID{Kind: "youtube#video", VideoID: videoID}

	resp, err := y.api.PostJSON(ctx, "/playlistItems", params, accessToken, item)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: playlist item insert rejected the access token", shared.ErrAuthorizationRevoked)
	}
	if !resp.OK() {
		return statusError("youtube", resp)
	}
	return nil
}

// Publish creates a playlist titled title and inserts every match in order.
//
// Playlist creation failure aborts with no result. Item failures are recorded in
// [models.PublishResult.Failed] and publishing continues. A revoked token or a cancelled
// context stops publishing and returns the partial result alongside the error.
func (y *YouTubeService) Publish(ctx context.Context, title string, matches []models.VideoMatch, accessToken string) (*models.PublishResult, error) {
	if title == "" {
		title = models.DefaultPlaylistTitle
	}

	playlist, err := y.CreatePlaylist(ctx, title, accessToken)
	if err != nil {
		return nil, err
	}
	y.logger.Info("created playlist", "id", playlist.ID, "items", len(matches))

	result := &models.PublishResult{Playlist: *playlist, Failed: []models.ItemFailure{}}
	for _, match := range matches {
		err := y.InsertItem(ctx, playlist.ID, match.VideoID, accessToken)
		switch {
		case err == nil:
			result.Playlist.VideoIDs = append(result.Playlist.VideoIDs, match.VideoID)
			result.Inserted++
		case errors.Is(err, shared.ErrAuthorizationRequired), ctx.Err() != nil:
			return result, err
		default:
			y.logger.Warn("failed to insert playlist item", "playlist", playlist.ID, "video", match.VideoID, "err", err)
			result.Failed = append(result.Failed, models.ItemFailure{Match: match, Error: err.Error()})
		}
	}

	return result, nil
}
