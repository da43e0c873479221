// package repositories provides persistence for grants and conversion history.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// sequenced lists the tables that carry a {table}_sequence counter.
var sequenced = map[string]bool{"conversions": true}

// NextSequence atomically increments and returns the next sequence number for table.
//
// Sequence numbers give conversions a human-readable ordering (conversion #42) independent
// of their ids and timestamps.
func NextSequence(ctx context.Context, db *sql.DB, table string) (int, error) {
	if !sequenced[table] {
		return 0, fmt.Errorf("no sequence for table %q", table)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sequence int
	err = tx.QueryRowContext(ctx, fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}
