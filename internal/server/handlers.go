package server

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/desertthunder/sp2yt/internal/tasks"
)

const maxBodyBytes = 1 << 20

// Converter runs the conversions served by [API].
type Converter interface {
	SearchOnly(ctx context.Context, spotifyURL string, progress chan<- tasks.ProgressUpdate) (*models.MatchReport, error)
	ConvertAndPublish(ctx context.Context, sessionID, spotifyURL, title string, progress chan<- tasks.ProgressUpdate) (*tasks.ConvertResult, error)
}

// Authorizer starts and completes YouTube authorization for a session.
type Authorizer interface {
	AuthURL(sessionID string) string
	HandleCallback(ctx context.Context, sessionID, state, code string) (*models.Grant, error)
}

// API serves the conversion endpoints.
type API struct {
	converter Converter
	auth      Authorizer
	uiURL     string
	logger    *log.Logger
}

// NewAPI creates the endpoint handlers. uiURL is where the OAuth callback sends the browser back to.
func NewAPI(converter Converter, authorizer Authorizer, uiURL string, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{
		converter: converter,
		auth:      authorizer,
		uiURL:     uiURL,
		logger:    shared.WithLogger(logger, "component", "api"),
	}
}

// Register adds every endpoint to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(a.health))
	r.Handle(http.MethodGet, "/convert", http.HandlerFunc(a.convert))
	r.Handle(http.MethodPost, "/convert", http.HandlerFunc(a.convert))
	r.Handle(http.MethodPost, "/api/search-playlist", http.HandlerFunc(a.searchPlaylist))
	r.Handle(http.MethodGet, "/youtube/auth", http.HandlerFunc(a.youtubeAuth))
	r.Handle(http.MethodGet, "/youtube/callback", http.HandlerFunc(a.youtubeCallback))
}

// NewRouter returns a [BasicRouter] with the standard middleware stack and every endpoint of api.
func NewRouter(api *API, sessionCookie string, logger *log.Logger) *BasicRouter {
	r := NewBasicRouter()
	r.Use(RecoverMiddleware(logger), LoggingMiddleware(logger), SessionMiddleware(sessionCookie))
	api.Register(r)
	return r
}

type convertRequest struct {
	SpotifyURL    string `json:"spotify_url"`
	PlaylistTitle string `json:"playlist_title"`
}

type convertResponse struct {
	YouTubePlaylistURL string `json:"youtube_playlist_url"`
	Matched            int    `json:"matched"`
	Unmatched          int    `json:"unmatched"`
	SearchFailed       int    `json:"search_failed"`
	Inserted           int    `json:"inserted"`
	Failed             int    `json:"failed"`
}

type searchResponse struct {
	YouTubeLinks []string       `json:"youtube_links"`
	Unmatched    []models.Track `json:"unmatched"`
}

type redirectBody struct {
	RedirectURL string `json:"redirect_url"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeRequest reads the request fields from a JSON body, a form body or the query string.
func decodeRequest(w http.ResponseWriter, r *http.Request) (convertRequest, error) {
	var req convertRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			return req, fmt.Errorf("%w: malformed request: %w", shared.ErrClientInput, err)
		}
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("%w: malformed request: %w", shared.ErrClientInput, err)
	}
	req.SpotifyURL = r.Form.Get("spotify_url")
	req.PlaylistTitle = r.Form.Get("playlist_title")
	return req, nil
}

// fail maps err onto a response. Client errors echo their message; everything else is logged
// and answered with the generic message.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error, generic string) {
	if shared.IsClientError(err) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	a.logger.Error(generic, "path", r.URL.Path, "session", SessionID(r.Context()), "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: generic})
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) convert(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		a.fail(w, r, err, "conversion failed")
		return
	}

	result, err := a.converter.ConvertAndPublish(r.Context(), SessionID(r.Context()), req.SpotifyURL, req.PlaylistTitle, nil)
	if err != nil {
		a.fail(w, r, err, "conversion failed")
		return
	}
	if result.NeedsAuthorization() {
		writeJSON(w, http.StatusOK, redirectBody{RedirectURL: result.RedirectURL})
		return
	}

	resp := convertResponse{
		YouTubePlaylistURL: result.PlaylistURL,
		Matched:            len(result.Report.Matches),
		Unmatched:          len(result.Report.Unmatched),
		SearchFailed:       len(result.Report.Failed),
	}
	if result.Publish != nil {
		resp.Inserted = result.Publish.Inserted
		resp.Failed = len(result.Publish.Failed)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) searchPlaylist(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		a.fail(w, r, err, "search failed")
		return
	}

	report, err := a.converter.SearchOnly(r.Context(), req.SpotifyURL, nil)
	if err != nil {
		a.fail(w, r, err, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{YouTubeLinks: report.Links(), Unmatched: report.Unmatched})
}

func (a *API) youtubeAuth(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, a.auth.AuthURL(SessionID(r.Context())), http.StatusFound)
}

func (a *API) youtubeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	outcome := "success"

	if denied := q.Get("error"); denied != "" {
		a.logger.Warn("authorization denied", "session", SessionID(r.Context()), "reason", denied)
		outcome = "error"
	} else if _, err := a.auth.HandleCallback(r.Context(), SessionID(r.Context()), q.Get("state"), q.Get("code")); err != nil {
		a.logger.Warn("authorization callback failed", "session", SessionID(r.Context()), "err", err)
		outcome = "error"
	}

	http.Redirect(w, r, a.callbackTarget(outcome), http.StatusFound)
}

// callbackTarget appends youtube_auth=outcome to the UI url, keeping any query it already has.
func (a *API) callbackTarget(outcome string) string {
	target, err := url.Parse(a.uiURL)
	if err != nil || a.uiURL == "" {
		target = &url.URL{Path: "/"}
	}
	q := target.Query()
	q.Set("youtube_auth", outcome)
	target.RawQuery = q.Encode()
	return target.String()
}
