package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
)

// YouTubeScope is the scope requested for playlist writes.
const YouTubeScope = "https://www.googleapis.com/auth/youtube"

const (
	stateTTL = 10 * time.Minute
	// pruneInterval is the minimum time between sweeps of expired states.
	pruneInterval = time.Minute
	// resolveTimeout bounds a shared resolve once its callers no longer control it.
	resolveTimeout = 30 * time.Second
)

// Resolution is the outcome of [Manager.Resolve]: exactly one of AccessToken or RedirectURL is set.
type Resolution struct {
	AccessToken string
	RedirectURL string
}

// NeedsAuthorization reports whether the caller must send the user to RedirectURL.
func (r Resolution) NeedsAuthorization() bool {
	return r.RedirectURL != ""
}

// Options tunes a [Manager].
type Options struct {
	// RefreshAttempts is the total number of refresh exchanges tried on transient failure. Minimum 1.
	RefreshAttempts int
	// Backoff is the delay before the second attempt; it doubles on each further attempt.
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

type pendingState struct {
	value  string
	issued time.Time
}

// Manager resolves, refreshes and invalidates the YouTube grant of each session.
type Manager struct {
	config   *oauth2.Config
	store    GrantStore
	client   *http.Client
	attempts int
	backoff  time.Duration
	logger   *log.Logger

	group      singleflight.Group
	mu         sync.Mutex
	states     map[string]pendingState
	lastPruned time.Time
	now        func() time.Time
}

// NewConfig builds the Google OAuth2 client configuration for the YouTube write scope.
//
// Endpoints default to [google.Endpoint]; non-empty auth_url and token_url override them.
func NewConfig(cfg shared.YouTubeConfig) *oauth2.Config {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{YouTubeScope},
		Endpoint:     endpoint,
	}
}

// NewManager creates a session manager over store.
func NewManager(config *oauth2.Config, store GrantStore, opts Options) (*Manager, error) {
	if config == nil || config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing google client id or secret", shared.ErrMissingCredentials)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: grant store is required", shared.ErrInvalidConfig)
	}

	attempts := max(opts.RefreshAttempts, 1)
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	client := opts.HTTPClient
	if client == nil {
		client = shared.NewHTTPClient(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Manager{
		config:   config,
		store:    store,
		client:   client,
		attempts: attempts,
		backoff:  backoff,
		logger:   shared.WithLogger(logger, "component", "auth"),
		states:   make(map[string]pendingState),
		now:      time.Now,
	}, nil
}

func (m *Manager) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// AuthURL returns the consent URL for sessionID and remembers the state it carries.
//
// Each call replaces the pending state of the session.
func (m *Manager) AuthURL(sessionID string) string {
	state := shared.GenerateID()

	m.mu.Lock()
	now := m.now()
	if now.Sub(m.lastPruned) >= pruneInterval {
		m.pruneLocked(now)
	}
	m.states[sessionID] = pendingState{value: state, issued: now}
	m.mu.Unlock()

	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// consumeState checks state against the one issued to sessionID. A state is usable once.
func (m *Manager) consumeState(sessionID, state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	pending, ok := m.states[sessionID]
	delete(m.states, sessionID)
	m.pruneLocked(now)

	return ok && state != "" && pending.value == state && now.Sub(pending.issued) <= stateTTL
}

// pruneLocked drops every state older than stateTTL. m.mu must be held.
func (m *Manager) pruneLocked(now time.Time) {
	for id, p := range m.states {
		if now.Sub(p.issued) > stateTTL {
			delete(m.states, id)
		}
	}
	m.lastPruned = now
}

func (m *Manager) redirect(sessionID string) Resolution {
	return Resolution{RedirectURL: m.AuthURL(sessionID)}
}

// Resolve returns a usable access token for sessionID, or the URL where the user must authorize.
//
// Concurrent calls for the same session share one store read and at most one refresh.
// The shared work outlives the caller that started it; each caller stops waiting when its own
// ctx ends.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (Resolution, error) {
	ch := m.group.DoChan(sessionID, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return m.resolve(rctx, sessionID)
	})

	select {
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Resolution{}, res.Err
		}
		if res.Shared {
			m.logger.Debug("joined in-flight resolve", "session", sessionID)
		}
		return res.Val.(Resolution), nil
	}
}

func (m *Manager) resolve(ctx context.Context, sessionID string) (Resolution, error) {
	grant, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, shared.ErrGrantNotFound) {
		return m.redirect(sessionID), nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to load grant: %w", err)
	}

	tok := TokenFromGrant(grant)
	if tok.Valid() {
		return Resolution{AccessToken: tok.AccessToken}, nil
	}

	if grant.RefreshToken == "" {
		m.logger.Info("grant expired without refresh token", "session", sessionID)
		if err := m.Invalidate(ctx, sessionID); err != nil {
			return Resolution{}, err
		}
		return m.redirect(sessionID), nil
	}

	refreshed, err := m.refresh(ctx, grant.RefreshToken)
	switch {
	case err == nil:
		updated := GrantFromToken(sessionID, refreshed, grant)
		if err := m.store.Save(ctx, updated); err != nil {
			return Resolution{}, fmt.Errorf("failed to store refreshed grant: %w", err)
		}
		m.logger.Info("refreshed grant", "session", sessionID, "expiry", updated.Expiry)
		return Resolution{AccessToken: updated.AccessToken}, nil
	case isRevocation(err):
		m.logger.Warn("refresh token rejected, grant removed", "session", sessionID, "err", err)
		if err := m.Invalidate(ctx, sessionID); err != nil {
			return Resolution{}, err
		}
		return m.redirect(sessionID), nil
	default:
		m.logger.Error("refresh failed, grant kept", "session", sessionID, "err", err)
		return Resolution{}, fmt.Errorf("%w: %w: %w", shared.ErrUpstreamUnavailable, shared.ErrRefreshFailed, err)
	}
}

// refresh exchanges refreshToken for a new token, retrying transient failures with exponential backoff.
func (m *Manager) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	var lastErr error
	for attempt := range m.attempts {
		if attempt > 0 {
			delay := m.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		src := m.config.TokenSource(m.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
		tok, err := src.Token()
		if err == nil {
			return tok, nil
		}
		if isRevocation(err) {
			return nil, err
		}
		lastErr = err
		m.logger.Debug("transient refresh failure", "attempt", attempt+1, "of", m.attempts, "err", err)
	}
	return nil, lastErr
}

// isRevocation reports whether the token endpoint explicitly refused the grant.
func isRevocation(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	switch re.ErrorCode {
	case "invalid_grant", "unauthorized_client":
		return true
	}
	return re.Response != nil && re.Response.StatusCode >= 400 && re.Response.StatusCode < 500
}

// HandleCallback completes authorization for sessionID by exchanging code for a grant.
//
// A missing code, a state that was not issued to this session, or a failed exchange are
// reported as [shared.ErrAuthFailed]; nothing is stored in that case.
func (m *Manager) HandleCallback(ctx context.Context, sessionID, state, code string) (*models.Grant, error) {
	if code == "" {
		return nil, shared.ErrMissingAuthCode
	}
	if !m.consumeState(sessionID, state) {
		return nil, shared.ErrInvalidState
	}

	tok, err := m.config.Exchange(m.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %w", shared.ErrAuthFailed, err)
	}

	var prev *models.Grant
	if existing, err := m.store.Get(ctx, sessionID); err == nil {
		prev = existing
	}

	grant := GrantFromToken(sessionID, tok, prev)
	if err := m.store.Save(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to store grant: %w", err)
	}

	m.logger.Info("authorization granted", "session", sessionID, "expiry", grant.Expiry)
	return grant, nil
}

// Invalidate removes the grant of sessionID.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, shared.ErrGrantNotFound) {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

// Grant returns the stored grant of sessionID without refreshing it.
func (m *Manager) Grant(ctx context.Context, sessionID string) (*models.Grant, error) {
	return m.store.Get(ctx, sessionID)
}
