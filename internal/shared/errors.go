package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Client input errors. Everything in this group maps to HTTP 400.
	ErrClientInput        = fmt.Errorf("invalid input")
	ErrMissingSpotifyURL  = fmt.Errorf("%w: missing spotify url", ErrClientInput)
	ErrPlaylistIDNotFound = fmt.Errorf("%w: no playlist id in url", ErrClientInput)
	ErrMissingArgument    = fmt.Errorf("missing required argument")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")

	// Authentication errors
	ErrUpstreamAuth          = fmt.Errorf("upstream authentication failed")
	ErrAuthFailed            = fmt.Errorf("%w: authorization callback failed", ErrUpstreamAuth)
	ErrAuthorizationRequired = fmt.Errorf("authorization required")
	ErrAuthorizationRevoked  = fmt.Errorf("%w: access grant revoked", ErrAuthorizationRequired)
	ErrNotAuthenticated      = fmt.Errorf("not authenticated")
	ErrRefreshFailed         = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken        = fmt.Errorf("no refresh token available")
	ErrGrantNotFound         = fmt.Errorf("grant not found")
	ErrInvalidState          = fmt.Errorf("%w: state mismatch", ErrAuthFailed)
	ErrMissingAuthCode       = fmt.Errorf("%w: missing authorization code", ErrAuthFailed)

	// API and service errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	ErrUpstreamData        = fmt.Errorf("unexpected upstream response")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found")
	ErrPlaylistCreate      = fmt.Errorf("playlist creation failed")
)

// IsClientError reports whether err was caused by bad caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrClientInput)
}

// IsAuthorizationRequired reports whether err asks the caller to (re)authorize.
func IsAuthorizationRequired(err error) bool {
	return errors.Is(err, ErrAuthorizationRequired)
}
