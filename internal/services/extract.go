package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
)

var (
	playlistIDPattern       = regexp.MustCompile(`playlist/([^/?#]+)`)
	strictPlaylistIDPattern = regexp.MustCompile(`playlist/([A-Za-z0-9]+)`)
)

// ExtractPlaylistID returns the identifier following "playlist/" in url, up to the next '/', '?', '#' or the end.
//
// The identifier is returned exactly as it appears.
func ExtractPlaylistID(url string) (string, error) {
	return extract(playlistIDPattern, url)
}

// ExtractPlaylistIDStrict is like [ExtractPlaylistID] but only accepts an alphanumeric identifier run.
func ExtractPlaylistIDStrict(url string) (string, error) {
	return extract(strictPlaylistIDPattern, url)
}

func extract(pattern *regexp.Regexp, url string) (string, error) {
	m := pattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: %s", shared.ErrPlaylistIDNotFound, url)
	}
	return m[1], nil
}

// ParseReference validates a user supplied Spotify URL and builds its [models.PlaylistReference].
func ParseReference(url string) (models.PlaylistReference, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return models.PlaylistReference{}, shared.ErrMissingSpotifyURL
	}

	id, err := ExtractPlaylistID(url)
	if err != nil {
		return models.PlaylistReference{}, err
	}

	return models.PlaylistReference{SourceURL: url, PlaylistID: id}, nil
}
