package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/sp2yt/internal/auth"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/desertthunder/sp2yt/internal/tasks"
	tu "github.com/desertthunder/sp2yt/internal/testing"
)

const testPlaylistURL = "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"

type stubConverter struct {
	report    *models.MatchReport
	result    *tasks.ConvertResult
	err       error
	sessionID string
	url       string
	title     string
}

func (s *stubConverter) SearchOnly(ctx context.Context, spotifyURL string, progress chan<- tasks.ProgressUpdate) (*models.MatchReport, error) {
	s.url = spotifyURL
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubConverter) ConvertAndPublish(ctx context.Context, sessionID, spotifyURL, title string, progress chan<- tasks.ProgressUpdate) (*tasks.ConvertResult, error) {
	s.sessionID, s.url, s.title = sessionID, spotifyURL, title
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubAuthorizer struct {
	authURL string
	err     error
	calls   int
	state   string
	code    string
}

func (s *stubAuthorizer) AuthURL(sessionID string) string {
	return s.authURL + "&session=" + sessionID
}

func (s *stubAuthorizer) HandleCallback(ctx context.Context, sessionID, state, code string) (*models.Grant, error) {
	s.calls++
	s.state, s.code = state, code
	if s.err != nil {
		return nil, s.err
	}
	return &models.Grant{SessionID: sessionID, AccessToken: "tok"}, nil
}

func newTestRouter(conv Converter, authz Authorizer) *BasicRouter {
	logger := shared.NewLogger(nil)
	return NewRouter(NewAPI(conv, authz, "http://localhost:5173/", logger), DefaultSessionCookie, logger)
}

func do(h http.Handler, method, target, contentType, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

func sessionCookie(id string) *http.Cookie {
	return &http.Cookie{Name: DefaultSessionCookie, Value: id}
}

func TestBasicRouter(t *testing.T) {
	t.Run("Method Table", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/thing", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("get"))
		}))
		r.Handle(http.MethodPost, "/thing", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("post"))
		}))

		if rec := do(r, http.MethodGet, "/thing", "", ""); rec.Body.String() != "get" {
			t.Errorf("expected get handler, got %q", rec.Body.String())
		}
		if rec := do(r, http.MethodPost, "/thing", "", ""); rec.Body.String() != "post" {
			t.Errorf("expected post handler, got %q", rec.Body.String())
		}

		rec := do(r, http.MethodDelete, "/thing", "", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != "GET, POST" {
			t.Errorf("expected Allow header 'GET, POST', got %q", allow)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		do(r, http.MethodGet, "/", "", "")

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})
}

func TestMiddleware(t *testing.T) {
	echoSession := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(SessionID(r.Context())))
	})

	t.Run("Issues Session Cookie", func(t *testing.T) {
		rec := do(SessionMiddleware("")(echoSession), http.MethodGet, "/", "", "")

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("expected one cookie, got %d", len(cookies))
		}
		c := cookies[0]
		if c.Name != DefaultSessionCookie || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
			t.Errorf("unexpected cookie %+v", c)
		}
		if c.Value == "" || rec.Body.String() != c.Value {
			t.Errorf("handler should see the issued id, got %q vs %q", rec.Body.String(), c.Value)
		}
	})

	t.Run("Keeps Existing Session", func(t *testing.T) {
		rec := do(SessionMiddleware("")(echoSession), http.MethodGet, "/", "", "", sessionCookie("sess-1"))
		if rec.Body.String() != "sess-1" {
			t.Errorf("expected sess-1, got %q", rec.Body.String())
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("no new cookie expected for a known session")
		}
	})

	t.Run("Recover", func(t *testing.T) {
		panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
		rec := do(RecoverMiddleware(shared.NewLogger(nil))(panicky), http.MethodGet, "/", "", "")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestAPI(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		rec := do(newTestRouter(&stubConverter{}, &stubAuthorizer{}), http.MethodGet, "/health", "", "")
		if rec.Code != http.StatusOK || decodeBody(t, rec)["status"] != "ok" {
			t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Convert Inputs", func(t *testing.T) {
		tests := []struct {
			name        string
			method      string
			target      string
			contentType string
			body        string
		}{
			{"json", http.MethodPost, "/convert", "application/json", `{"spotify_url":"` + testPlaylistURL + `","playlist_title":"Mix"}`},
			{"form", http.MethodPost, "/convert", "application/x-www-form-urlencoded", "spotify_url=" + url.QueryEscape(testPlaylistURL) + "&playlist_title=Mix"},
			{"query", http.MethodGet, "/convert?spotify_url=" + url.QueryEscape(testPlaylistURL) + "&playlist_title=Mix", "", ""},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conv := &stubConverter{result: &tasks.ConvertResult{
					Report: &models.MatchReport{
						Matches:   []models.VideoMatch{{VideoID: "a"}, {VideoID: "b"}},
						Unmatched: []models.Track{{Title: "x"}},
					},
					Publish:     &models.PublishResult{Inserted: 1, Failed: []models.ItemFailure{{Error: "quota"}}},
					PlaylistURL: models.PlaylistURLPrefix + "PL1",
				}}

				rec := do(newTestRouter(conv, &stubAuthorizer{}), tt.method, tt.target, tt.contentType, tt.body, sessionCookie("sess-1"))
				if rec.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
				}
				if conv.url != testPlaylistURL || conv.title != "Mix" || conv.sessionID != "sess-1" {
					t.Errorf("unexpected converter input url=%q title=%q session=%q", conv.url, conv.title, conv.sessionID)
				}

				body := decodeBody(t, rec)
				if body["youtube_playlist_url"] != models.PlaylistURLPrefix+"PL1" {
					t.Errorf("unexpected playlist url %v", body["youtube_playlist_url"])
				}
				if body["matched"] != float64(2) || body["unmatched"] != float64(1) || body["inserted"] != float64(1) || body["failed"] != float64(1) {
					t.Errorf("unexpected counts %v", body)
				}
			})
		}
	})

	t.Run("Convert Redirect", func(t *testing.T) {
		conv := &stubConverter{result: &tasks.ConvertResult{Report: &models.MatchReport{}, RedirectURL: "https://accounts.example/auth"}}
		rec := do(newTestRouter(conv, &stubAuthorizer{}), http.MethodPost, "/convert", "application/json", `{"spotify_url":"`+testPlaylistURL+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if decodeBody(t, rec)["redirect_url"] != "https://accounts.example/auth" {
			t.Errorf("expected redirect_url, got %s", rec.Body.String())
		}
	})

	t.Run("Client Errors", func(t *testing.T) {
		tests := []struct {
			name        string
			err         error
			contentType string
			body        string
		}{
			{"missing url", shared.ErrMissingSpotifyURL, "application/json", `{}`},
			{"no playlist id", shared.ErrPlaylistIDNotFound, "application/json", `{"spotify_url":"https://open.spotify.com/album/1"}`},
			{"malformed json", nil, "application/json", `{"spotify_url":`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(newTestRouter(&stubConverter{err: tt.err}, &stubAuthorizer{}), http.MethodPost, "/convert", tt.contentType, tt.body)
				if rec.Code != http.StatusBadRequest {
					t.Errorf("expected 400, got %d", rec.Code)
				}
				if decodeBody(t, rec)["error"] == "" {
					t.Error("expected an error message")
				}
			})
		}
	})

	t.Run("Upstream Failure Is Generic", func(t *testing.T) {
		conv := &stubConverter{err: fmt.Errorf("%w: spotify said secret-detail", shared.ErrUpstreamAuth)}
		rec := do(newTestRouter(conv, &stubAuthorizer{}), http.MethodPost, "/convert", "application/json", `{"spotify_url":"`+testPlaylistURL+`"}`)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if msg := decodeBody(t, rec)["error"]; msg != "conversion failed" {
			t.Errorf("expected generic message, got %v", msg)
		}
		if strings.Contains(rec.Body.String(), "secret-detail") {
			t.Error("upstream detail leaked into the response")
		}
	})

	t.Run("Search Playlist", func(t *testing.T) {
		conv := &stubConverter{report: &models.MatchReport{
			Matches:   []models.VideoMatch{models.NewVideoMatch(models.Track{Title: "A", Artist: "B"}, "vid1")},
			Unmatched: []models.Track{{Title: "C", Artist: "D"}},
		}}
		rec := do(newTestRouter(conv, &stubAuthorizer{}), http.MethodPost, "/api/search-playlist", "application/json", `{"spotify_url":"`+testPlaylistURL+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body searchResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if len(body.YouTubeLinks) != 1 || body.YouTubeLinks[0] != models.WatchURLPrefix+"vid1" {
			t.Errorf("unexpected links %v", body.YouTubeLinks)
		}
		if len(body.Unmatched) != 1 || body.Unmatched[0].Title != "C" {
			t.Errorf("unexpected unmatched %v", body.Unmatched)
		}
	})

	t.Run("Search Rejects GET", func(t *testing.T) {
		rec := do(newTestRouter(&stubConverter{}, &stubAuthorizer{}), http.MethodGet, "/api/search-playlist", "", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("YouTube Auth Redirect", func(t *testing.T) {
		authz := &stubAuthorizer{authURL: "https://accounts.example/auth?x=1"}
		rec := do(newTestRouter(&stubConverter{}, authz), http.MethodGet, "/youtube/auth", "", "", sessionCookie("sess-9"))

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); !strings.HasSuffix(loc, "session=sess-9") {
			t.Errorf("expected auth url for the session, got %q", loc)
		}
	})

	t.Run("Callback", func(t *testing.T) {
		tests := []struct {
			name      string
			query     string
			err       error
			want      string
			wantCalls int
		}{
			{"success", "?code=abc&state=s1", nil, "success", 1},
			{"exchange failure", "?code=abc&state=s1", shared.ErrAuthFailed, "error", 1},
			{"state mismatch", "?code=abc&state=bad", shared.ErrInvalidState, "error", 1},
			{"user denied", "?error=access_denied", nil, "error", 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				authz := &stubAuthorizer{err: tt.err}
				rec := do(newTestRouter(&stubConverter{}, authz), http.MethodGet, "/youtube/callback"+tt.query, "", "", sessionCookie("sess-1"))

				if rec.Code != http.StatusFound {
					t.Fatalf("expected 302, got %d", rec.Code)
				}
				loc, err := url.Parse(rec.Header().Get("Location"))
				if err != nil {
					t.Fatalf("bad location: %v", err)
				}
				if loc.Host != "localhost:5173" {
					t.Errorf("expected redirect to the UI, got %s", loc)
				}
				if got := loc.Query().Get("youtube_auth"); got != tt.want {
					t.Errorf("expected youtube_auth=%s, got %s", tt.want, got)
				}
				if authz.calls != tt.wantCalls {
					t.Errorf("expected %d callback calls, got %d", tt.wantCalls, authz.calls)
				}
			})
		}
	})

	t.Run("Callback Target Keeps Query", func(t *testing.T) {
		api := NewAPI(&stubConverter{}, &stubAuthorizer{}, "https://app.example/done?tab=2", nil)
		target, _ := url.Parse(api.callbackTarget("success"))
		if target.Query().Get("tab") != "2" || target.Query().Get("youtube_auth") != "success" {
			t.Errorf("unexpected target %s", target)
		}
	})
}

// newGoogleFixture serves the token endpoint and counts code exchanges.
func newGoogleFixture(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var exchanges atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("grant_type") != "authorization_code" || r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ya29.fresh","token_type":"Bearer","expires_in":3600,"refresh_token":"1//refresh"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &exchanges
}

func TestEndToEnd(t *testing.T) {
	google, exchanges := newGoogleFixture(t)

	config := auth.NewConfig(shared.YouTubeConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/youtube/callback",
		TokenURL:     google.URL,
	})
	manager, err := auth.NewManager(config, auth.NewMemoryStore(), auth.Options{HTTPClient: google.Client()})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	tracks := []models.Track{{Title: "Song A", Artist: "Band"}, {Title: "Song B", Artist: "Band"}}
	searcher := &tu.MockSearcher{Results: map[string]string{tracks[0].Query(): "vidA", tracks[1].Query(): "vidB"}}
	publisher := &tu.MockPublisher{PlaylistID: "PLdone"}
	matcher := tasks.NewMatcher(searcher, tasks.MatcherOpts{Workers: 2, RateLimit: 1000}, nil)
	converter := tasks.NewConverter(&tu.MockFetcher{Tracks: tracks}, matcher, publisher, manager, nil)
	router := newTestRouter(converter, manager)
	session := sessionCookie("browser-1")

	rec := do(router, http.MethodPost, "/convert", "application/json", `{"spotify_url":"`+testPlaylistURL+`"}`, session)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	redirect, _ := decodeBody(t, rec)["redirect_url"].(string)
	if redirect == "" {
		t.Fatalf("expected redirect_url without a grant, got %s", rec.Body.String())
	}
	if publisher.Calls != 0 {
		t.Fatal("nothing should be published before authorization")
	}

	consent, err := url.Parse(redirect)
	if err != nil {
		t.Fatalf("bad redirect url: %v", err)
	}
	q := consent.Query()
	if q.Get("scope") != auth.YouTubeScope || q.Get("access_type") != "offline" || q.Get("prompt") != "consent" {
		t.Errorf("unexpected consent parameters %v", q)
	}

	rec = do(router, http.MethodGet, "/youtube/callback?code=good-code&state="+url.QueryEscape(q.Get("state")), "", "", session)
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "youtube_auth=success") {
		t.Fatalf("expected successful callback, got %d %q", rec.Code, loc)
	}
	if exchanges.Load() != 1 {
		t.Errorf("expected one code exchange, got %d", exchanges.Load())
	}

	rec = do(router, http.MethodPost, "/convert", "application/json", `{"spotify_url":"`+testPlaylistURL+`","playlist_title":"Done"}`, session)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["youtube_playlist_url"] != models.PlaylistURLPrefix+"PLdone" {
		t.Errorf("unexpected response %v", body)
	}
	if publisher.Token != "ya29.fresh" || publisher.Title != "Done" {
		t.Errorf("publisher got token=%q title=%q", publisher.Token, publisher.Title)
	}
	if len(publisher.Matches) != 2 || publisher.Matches[0].VideoID != "vidA" || publisher.Matches[1].VideoID != "vidB" {
		t.Errorf("unexpected published matches %v", publisher.Matches)
	}

	other := do(router, http.MethodPost, "/convert", "application/json", `{"spotify_url":"`+testPlaylistURL+`"}`, sessionCookie("browser-2"))
	if decodeBody(t, other)["redirect_url"] == nil {
		t.Error("a grant must not leak to another session")
	}
}

func TestRejectedAPIKey(t *testing.T) {
	tracks := []models.Track{{Title: "Song A", Artist: "Band"}, {Title: "Song B", Artist: "Band"}}
	rejected := fmt.Errorf("%w: youtube API status 403: API key not valid", shared.ErrUpstreamAuth)
	searcher := &tu.MockSearcher{Errors: map[string]error{tracks[0].Query(): rejected, tracks[1].Query(): rejected}}
	publisher := &tu.MockPublisher{PlaylistID: "PLempty"}
	sessions := &tu.MockSessions{Resolution: auth.Resolution{AccessToken: "ya29.valid"}}
	matcher := tasks.NewMatcher(searcher, tasks.MatcherOpts{Workers: 2, RateLimit: 1000}, nil)
	converter := tasks.NewConverter(&tu.MockFetcher{Tracks: tracks}, matcher, publisher, sessions, nil)
	router := newTestRouter(converter, &stubAuthorizer{})

	for _, target := range []string{"/convert", "/api/search-playlist"} {
		t.Run(target, func(t *testing.T) {
			rec := do(router, http.MethodPost, target, "application/json", `{"spotify_url":"`+testPlaylistURL+`"}`, sessionCookie("sess-1"))
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "API key not valid") {
				t.Error("upstream detail leaked into the response")
			}
		})
	}

	if publisher.Calls != 0 {
		t.Errorf("no playlist should be created, got %d publish calls", publisher.Calls)
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		authz := &stubAuthorizer{}
		h := NewOAuthHandler(authz, "cli", "")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/youtube/callback" {
			t.Errorf("unexpected routes %v", routes)
		}

		rec := do(h, http.MethodGet, "/youtube/callback?code=c1&state=s1", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "YouTube Authorized") {
			t.Errorf("expected success page, got %s", rec.Body.String())
		}
		if authz.code != "c1" || authz.state != "s1" {
			t.Errorf("callback got code=%q state=%q", authz.code, authz.state)
		}

		result := <-h.Result()
		if result.Error() != nil || result.Grant == nil || result.Grant.SessionID != "cli" {
			t.Errorf("unexpected result %+v", result)
		}

		if rec := do(h, http.MethodGet, "/youtube/callback?code=c1&state=s1", "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("second callback should be rejected, got %d", rec.Code)
		}
	})

	t.Run("Failure", func(t *testing.T) {
		h := NewOAuthHandler(&stubAuthorizer{err: shared.ErrInvalidState}, "cli", "/cb")
		rec := do(h, http.MethodGet, "/cb?code=c1&state=bad", "", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", result.Error())
		}
	})

	t.Run("Denied", func(t *testing.T) {
		authz := &stubAuthorizer{}
		h := NewOAuthHandler(authz, "cli", "")
		rec := do(h, http.MethodGet, "/youtube/callback?error=access_denied", "", "")
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "access_denied") {
			t.Errorf("expected failure page naming the reason, got %d %s", rec.Code, rec.Body.String())
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected an error for a denied authorization")
		}
		if authz.calls != 0 {
			t.Error("no exchange expected when the user denied access")
		}
	})
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	r := NewBasicRouter()
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	}))
	srv := NewHTTPServer(ln.Addr().String(), r)
	if srv.ReadHeaderTimeout == 0 {
		t.Error("expected a read header timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, ln, shared.NewLogger(nil)) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
