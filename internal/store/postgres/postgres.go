// Package postgres stores anti-cheat revision history, adapting the
// teacher's session store (internal/storage/postgres/postgres_sessions.go
// in the retrieval pack) from poker session/chip bookkeeping to mau's
// revision-velocity audit trail.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"mau/internal/anticheat"
)

// RevisionRecord is one recorded anticheat.Result for a player in a room.
type RevisionRecord struct {
	RoomID     string
	PlayerID   string
	Revision   int64
	Score      float64
	Flagged    bool
	RecordedAt time.Time
}

// Store persists anti-cheat revision history to PostgreSQL.
type Store struct {
	db *sql.DB
}

// New wraps an existing *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTables creates the revision_history table if it doesn't exist.
func (s *Store) CreateTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS revision_history (
			id SERIAL PRIMARY KEY,
			room_id VARCHAR(64) NOT NULL,
			player_id VARCHAR(64) NOT NULL,
			revision BIGINT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			flagged BOOLEAN NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_revision_history_player_id ON revision_history(player_id);
		CREATE INDEX IF NOT EXISTS idx_revision_history_room_id ON revision_history(room_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// RecordResult appends one anticheat.Result for playerID in roomID.
func (s *Store) RecordResult(ctx context.Context, roomID, playerID string, revision int64, res anticheat.Result, at time.Time) error {
	query := `
		INSERT INTO revision_history (room_id, player_id, revision, score, flagged, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query, roomID, playerID, revision, res.Score, res.Flagged, at)
	return err
}

// PlayerHistory returns playerID's recorded revision history, newest first.
func (s *Store) PlayerHistory(ctx context.Context, playerID string, limit int) ([]RevisionRecord, error) {
	query := `
		SELECT room_id, player_id, revision, score, flagged, recorded_at
		FROM revision_history
		WHERE player_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRevisions(rows)
}

// FlaggedSince returns every flagged record recorded at or after since.
func (s *Store) FlaggedSince(ctx context.Context, since time.Time) ([]RevisionRecord, error) {
	query := `
		SELECT room_id, player_id, revision, score, flagged, recorded_at
		FROM revision_history
		WHERE flagged = true AND recorded_at >= $1
		ORDER BY recorded_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRevisions(rows)
}

// DeleteOlderThan removes history rows recorded before cutoff,
// bounding table growth for long-lived deployments.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM revision_history WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanRevisions(rows *sql.Rows) ([]RevisionRecord, error) {
	var out []RevisionRecord
	for rows.Next() {
		var r RevisionRecord
		if err := rows.Scan(&r.RoomID, &r.PlayerID, &r.Revision, &r.Score, &r.Flagged, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("mau/store/postgres: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
