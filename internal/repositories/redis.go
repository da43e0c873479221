package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/redis/go-redis/v9"
)

// RedisGrantStore keeps grants in Redis so several server instances share sessions.
type RedisGrantStore struct {
	client *redis.Client
	prefix string
}

// grantRecord is the JSON stored under each key.
type grantRecord struct {
	SessionID    string    `json:"session_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewRedisClient opens a client from cfg and checks the connection.
func NewRedisClient(ctx context.Context, cfg shared.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping failed: %w", shared.ErrServiceUnavailable, err)
	}

	return client, nil
}

// NewRedisGrantStore creates a grant store over client; keys are prefix + session id.
func NewRedisGrantStore(client *redis.Client, prefix string) *RedisGrantStore {
	return &RedisGrantStore{client: client, prefix: prefix}
}

func (s *RedisGrantStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Get retrieves the grant of a session, or [shared.ErrGrantNotFound]
func (s *RedisGrantStore) Get(ctx context.Context, sessionID string) (*models.Grant, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", shared.ErrGrantNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var rec grantRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt grant record: %w", shared.ErrGrantNotFound, err)
	}

	return &models.Grant{
		SessionID:    rec.SessionID,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenType:    rec.TokenType,
		Expiry:       rec.Expiry,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// Save stores the grant. A grant without a refresh token expires from Redis with its access token.
func (s *RedisGrantStore) Save(ctx context.Context, grant *models.Grant) error {
	if err := grant.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now

	data, err := json.Marshal(grantRecord{
		SessionID:    grant.SessionID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    grant.TokenType,
		Expiry:       grant.Expiry.UTC(),
		CreatedAt:    grant.CreatedAt.UTC(),
		UpdatedAt:    grant.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode grant: %w", err)
	}

	var ttl time.Duration
	if grant.RefreshToken == "" && !grant.Expiry.IsZero() {
		ttl = time.Until(grant.Expiry)
		if ttl <= 0 {
			return s.Delete(ctx, grant.SessionID)
		}
	}

	if err := s.client.Set(ctx, s.key(grant.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes the grant of a session. Deleting a missing grant is not an error.
func (s *RedisGrantStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
