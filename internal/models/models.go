// package models defines the data model for the Spotify to YouTube converter
package models

import (
	"errors"
	"fmt"
	"time"
)

const (
	// WatchURLPrefix is prepended to a video id to build a watch link.
	WatchURLPrefix = "https://www.youtube.com/watch?v="
	// PlaylistURLPrefix is prepended to a playlist id to build a playlist link.
	PlaylistURLPrefix = "https://www.youtube.com/playlist?list="
	// DefaultPlaylistTitle names a published playlist when the caller gives no title.
	DefaultPlaylistTitle = "Converted Playlist"
)

// PlaylistReference identifies the source playlist of a conversion.
type PlaylistReference struct {
	SourceURL  string `json:"source_url"`
	PlaylistID string `json:"playlist_id"`
}

// Track is a song read from a Spotify playlist. Artist holds the primary (first) artist.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Query returns the free-text search used to find the track on YouTube.
func (t Track) Query() string {
	return t.Title + " " + t.Artist
}

// String renders the track as "Title - Artist".
func (t Track) String() string {
	return fmt.Sprintf("%s - %s", t.Title, t.Artist)
}

// VideoMatch pairs a track with the first YouTube search result for its query.
type VideoMatch struct {
	Track    Track  `json:"track"`
	Query    string `json:"query"`
	VideoID  string `json:"video_id"`
	VideoURL string `json:"video_url"`
}

// NewVideoMatch builds the match for track using its query and the given video id.
func NewVideoMatch(track Track, videoID string) VideoMatch {
	return VideoMatch{
		Track:    track,
		Query:    track.Query(),
		VideoID:  videoID,
		VideoURL: WatchURLPrefix + videoID,
	}
}

// TrackFailure records a track whose search could not be completed.
type TrackFailure struct {
	Track Track  `json:"track"`
	Error string `json:"error"`
}

// MatchReport is the outcome of matching a playlist's tracks to videos.
//
// Matches keeps the order of Tracks. Every track lands in exactly one of Matches, Unmatched or Failed.
type MatchReport struct {
	Reference PlaylistReference `json:"reference"`
	Tracks    []Track           `json:"tracks"`
	Matches   []VideoMatch      `json:"matches"`
	Unmatched []Track           `json:"unmatched"`
	Failed    []TrackFailure    `json:"failed"`
}

// Links returns the watch URLs of every match in order.
func (r *MatchReport) Links() []string {
	links := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		links = append(links, m.VideoURL)
	}
	return links
}

// YouTubePlaylist is a playlist created on YouTube. VideoIDs lists the inserted items in order.
type YouTubePlaylist struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	VideoIDs []string `json:"video_ids"`
}

// URL returns the public link of the playlist.
func (p YouTubePlaylist) URL() string {
	return PlaylistURLPrefix + p.ID
}

// ItemFailure records a match that could not be inserted into the playlist.
type ItemFailure struct {
	Match VideoMatch `json:"match"`
	Error string     `json:"error"`
}

// PublishResult reports the playlist that was created and how many items made it in.
type PublishResult struct {
	Playlist YouTubePlaylist `json:"playlist"`
	Inserted int             `json:"inserted"`
	Failed   []ItemFailure   `json:"failed"`
}

// Grant is the OAuth authorization a session holds for the YouTube write scope.
type Grant struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks that the grant can be persisted.
func (g *Grant) Validate() error {
	if g.SessionID == "" {
		return errors.New("grant session id is required")
	}
	if g.AccessToken == "" {
		return errors.New("grant access token is required")
	}
	return nil
}

// Conversion is a history record of a published playlist.
type Conversion struct {
	ID                string
	Sequence          int
	SessionID         string
	SourceURL         string
	SourcePlaylistID  string
	YouTubePlaylistID string
	Title             string
	TracksTotal       int
	TracksMatched     int
	ItemsInserted     int
	ItemsFailed       int
	CreatedAt         time.Time
}

// PlaylistURL returns the link of the published playlist.
func (c Conversion) PlaylistURL() string {
	return PlaylistURLPrefix + c.YouTubePlaylistID
}
