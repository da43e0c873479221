// package services implements the upstream HTTP APIs used by a conversion
//
// Spotify (catalog read), YouTube Data API (search, playlist writes)
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/desertthunder/sp2yt/internal/shared"
)

// apiErrorBody is the error envelope both Spotify and Google return.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Status  any    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// isTimeout reports whether err is a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportError classifies a failed round trip as [shared.ErrUpstreamUnavailable].
// Caller cancellation stays detectable with errors.Is(err, context.Canceled).
func transportError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: request timed out: %w", shared.ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err)
}

// statusError maps a non-2xx response from service onto the error taxonomy.
func statusError(service string, resp *APIResponse) error {
	msg := http.StatusText(resp.StatusCode)
	var body apiErrorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s API status %d: %s", shared.ErrUpstreamAuth, service, resp.StatusCode, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s API status %d: %s", shared.ErrPlaylistNotFound, service, resp.StatusCode, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s API status %d: %s", shared.ErrUpstreamUnavailable, service, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: %s API status %d: %s", shared.ErrAPIRequest, service, resp.StatusCode, msg)
	}
}
