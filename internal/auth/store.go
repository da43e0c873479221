package auth

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"golang.org/x/oauth2"
)

// GrantStore persists one [models.Grant] per session.
//
// Get returns [shared.ErrGrantNotFound] when the session holds no grant.
// Delete of a missing grant is not an error.
type GrantStore interface {
	Get(ctx context.Context, sessionID string) (*models.Grant, error)
	Save(ctx context.Context, grant *models.Grant) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is a process-local [GrantStore].
type MemoryStore struct {
	mu     sync.RWMutex
	grants map[string]models.Grant
}

// NewMemoryStore creates an empty in-memory grant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{grants: make(map[string]models.Grant)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grants[sessionID]
	if !ok {
		return nil, shared.ErrGrantNotFound
	}
	return &g, nil
}

func (s *MemoryStore) Save(_ context.Context, grant *models.Grant) error {
	if err := grant.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.SessionID] = *grant
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, sessionID)
	return nil
}

// Len returns the number of stored grants.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grants)
}

// TokenFromGrant converts a stored grant into an [oauth2.Token].
func TokenFromGrant(g *models.Grant) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  g.AccessToken,
		TokenType:    g.TokenType,
		RefreshToken: g.RefreshToken,
		Expiry:       g.Expiry,
	}
}

// GrantFromToken builds the grant stored for sessionID after an exchange or refresh.
//
// When prev is given its creation time is kept, as is its refresh token if tok carries none.
func GrantFromToken(sessionID string, tok *oauth2.Token, prev *models.Grant) *models.Grant {
	now := time.Now().UTC()
	g := &models.Grant{
		SessionID:    sessionID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if prev != nil {
		g.CreatedAt = prev.CreatedAt
		if g.RefreshToken == "" {
			g.RefreshToken = prev.RefreshToken
		}
	}
	return g
}
