package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
)

// GrantRepository persists [models.Grant] rows in SQLite, one per session.
type GrantRepository struct {
	db *sql.DB
}

// NewGrantRepository creates a new [GrantRepository] with the given database connection
func NewGrantRepository(db *sql.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Get retrieves the grant of a session, or [shared.ErrGrantNotFound]
func (r *GrantRepository) Get(ctx context.Context, sessionID string) (*models.Grant, error) {
	query := `
		SELECT session_id, access_token, refresh_token, token_type, expiry, created_at, updated_at
		FROM grants
		WHERE session_id = ?
	`

	var (
		g      models.Grant
		expiry sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&g.SessionID, &g.AccessToken, &g.RefreshToken, &g.TokenType, &expiry, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrGrantNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query grant: %w", err)
	}

	if expiry.Valid {
		g.Expiry = expiry.Time
	}

	return &g, nil
}

// Save inserts the grant or replaces the one already held by the session
func (r *GrantRepository) Save(ctx context.Context, grant *models.Grant) error {
	if err := grant.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now

	var expiry sql.NullTime
	if !grant.Expiry.IsZero() {
		expiry = sql.NullTime{Time: grant.Expiry.UTC(), Valid: true}
	}

	query := `
		INSERT INTO grants (session_id, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		grant.SessionID, grant.AccessToken, grant.RefreshToken, grant.TokenType, expiry, grant.CreatedAt.UTC(), grant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save grant: %w", err)
	}

	return nil
}

// Delete removes the grant of a session. Deleting a missing grant is not an error.
func (r *GrantRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM grants WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

// List returns every stored grant ordered by most recent update
func (r *GrantRepository) List(ctx context.Context) ([]*models.Grant, error) {
	query := `
		SELECT session_id, access_token, refresh_token, token_type, expiry, created_at, updated_at
		FROM grants
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []*models.Grant
	for rows.Next() {
		var (
			g      models.Grant
			expiry sql.NullTime
		)
		if err := rows.Scan(&g.SessionID, &g.AccessToken, &g.RefreshToken, &g.TokenType, &expiry, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		if expiry.Valid {
			g.Expiry = expiry.Time
		}
		grants = append(grants, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return grants, nil
}
