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

// ConversionRepository records published conversions.
type ConversionRepository struct {
	db *sql.DB
}

// NewConversionRepository creates a new [ConversionRepository] with the given database connection
func NewConversionRepository(db *sql.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// Record inserts a conversion with a generated ID and sequence
func (r *ConversionRepository) Record(ctx context.Context, c *models.Conversion) error {
	if c.SessionID == "" || c.SourcePlaylistID == "" {
		return fmt.Errorf("%w: conversion needs a session and a source playlist", shared.ErrInvalidArgument)
	}

	sequence, err := NextSequence(ctx, r.db, "conversions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	c.ID = shared.GenerateID()
	c.Sequence = sequence
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO conversions (
			id, sequence, session_id, source_url, source_playlist_id, youtube_playlist_id, title,
			tracks_total, tracks_matched, items_inserted, items_failed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.Sequence, c.SessionID, c.SourceURL, c.SourcePlaylistID, c.YouTubePlaylistID, c.Title,
		c.TracksTotal, c.TracksMatched, c.ItemsInserted, c.ItemsFailed, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion: %w", err)
	}

	return nil
}

// Get retrieves a conversion by ID
func (r *ConversionRepository) Get(ctx context.Context, id string) (*models.Conversion, error) {
	row := r.db.QueryRowContext(ctx, selectConversions+" WHERE id = ?", id)

	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversion not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion: %w", err)
	}
	return c, nil
}

// List retrieves conversions, newest first. An empty sessionID lists every session.
// A limit of zero or less returns all rows.
func (r *ConversionRepository) List(ctx context.Context, sessionID string, limit int) ([]*models.Conversion, error) {
	query := selectConversions
	args := []any{}

	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}

	query += " ORDER BY sequence DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var conversions []*models.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		conversions = append(conversions, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return conversions, nil
}

const selectConversions = `
	SELECT id, sequence, session_id, source_url, source_playlist_id, youtube_playlist_id, title,
		tracks_total, tracks_matched, items_inserted, items_failed, created_at
	FROM conversions`

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(s scanner) (*models.Conversion, error) {
	var c models.Conversion
	err := s.Scan(
		&c.ID, &c.Sequence, &c.SessionID, &c.SourceURL, &c.SourcePlaylistID, &c.YouTubePlaylistID, &c.Title,
		&c.TracksTotal, &c.TracksMatched, &c.ItemsInserted, &c.ItemsFailed, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
