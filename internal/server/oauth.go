package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/sp2yt/internal/models"
)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Grant *models.Grant
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Heading}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .card { text-align: center; background: white; padding: 2rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>{{.Heading}}</h1>
        <p>{{.Detail}}</p>
    </div>
</body>
</html>
`))

type callbackView struct {
	Heading string
	Detail  string
	Color   string
}

// OAuthHandler completes YouTube authorization for one terminal session on the local redirect URI.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	auth       Authorizer
	sessionID  string
	path       string
	resultChan chan OAuthResult
	once       sync.Once

	mu   sync.Mutex
	done bool
}

// NewOAuthHandler creates a callback handler on path that completes authorization for sessionID.
//
// State validation and the code exchange are delegated to authorizer.
func NewOAuthHandler(authorizer Authorizer, sessionID, path string) *OAuthHandler {
	if path == "" {
		path = "/youtube/callback"
	}
	return &OAuthHandler{
		auth:       authorizer,
		sessionID:  sessionID,
		path:       path,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the redirect from Google's consent page.
//
// Only the first request is processed; its outcome is sent on [OAuthHandler.Result].
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		h.render(w, http.StatusBadRequest, "Callback already processed", "This authorization was already handled.")
		return
	}
	h.done = true
	h.mu.Unlock()

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		h.Send(OAuthResult{err: fmt.Errorf("authorization denied: %s", reason)})
		h.render(w, http.StatusBadRequest, "Authorization failed", "YouTube access was not granted: "+reason)
		return
	}

	grant, err := h.auth.HandleCallback(context.WithoutCancel(r.Context()), h.sessionID, q.Get("state"), q.Get("code"))
	if err != nil {
		h.Send(OAuthResult{err: err})
		h.render(w, http.StatusBadRequest, "Authorization failed", "Return to the terminal for details.")
		return
	}

	h.Send(OAuthResult{Grant: grant})
	h.render(w, http.StatusOK, "✓ YouTube Authorized", "You can close this window and return to the terminal.")
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, heading, detail string) {
	color := "#1DB954"
	if status != http.StatusOK {
		color = "#FF0000"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, callbackView{Heading: heading, Detail: detail, Color: color})
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
