// Package services talks to the upstream APIs a conversion depends on.
//
// # Track Extractor
//
// [ExtractPlaylistID] pulls the playlist identifier out of a Spotify URL; [ParseReference]
// adds the empty-input check used by the HTTP and CLI entry points.
//
// # Spotify
//
// [SpotifyService] reads playlist items with a client-credentials token from
// [golang.org/x/oauth2/clientcredentials]. The token source is reused, so the token is
// fetched once per lifetime rather than once per call. Only the first page of items is
// read unless credentials.spotify.max_pages is raised.
//
// # YouTube
//
// [YouTubeService] searches with the Data API key and writes playlists with a user access
// token obtained by the auth package. Search requests exactly one video result.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrUpstreamAuth] : credentials rejected (401/403)
//   - [shared.ErrAuthorizationRevoked] : a user token was rejected during a write
//   - [shared.ErrUpstreamUnavailable] : timeout, network failure or 5xx
//   - [shared.ErrPlaylistNotFound] : 404
//   - [shared.ErrPlaylistCreate] : the playlist could not be created
//   - [shared.ErrAPIRequest] : any other non-2xx status
//
// Unexpected response shapes degrade to empty results and are logged at warn level.
package services
