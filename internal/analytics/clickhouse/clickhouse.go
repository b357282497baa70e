// Package clickhouse sinks mau.Event records into ClickHouse for
// after-the-fact analytics, adapting the teacher's poker analytics
// repository (internal/storage/clickhouse.go +
// internal/storage/analytics.go in the retrieval pack) from a
// multi-table hand/fraud/session/table schema down to the single
// event stream mau actually produces.
package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"mau/internal/mau"
)

// Config holds ClickHouse connection configuration.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Secure       bool          `yaml:"secure"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnTimeout  time.Duration `yaml:"conn_timeout"`
}

// GameEvent is the row shape stored for every mau.Event, mirroring the
// teacher's `ch:`-tagged analytics structs.
type GameEvent struct {
	Kind     string    `json:"kind" ch:"kind"`
	GameID   string    `json:"game_id" ch:"game_id"`
	PlayerID string    `json:"player_id" ch:"player_id"`
	Data     string    `json:"data" ch:"data"`
	Ts       time.Time `json:"ts" ch:"ts"`
}

// PlayerStats summarizes a player's activity over a time window.
type PlayerStats struct {
	PlayerID      string
	GamesPlayed   int64
	TurnsPlayed   int64
	LastActive    time.Time
	FirstSeen     time.Time
}

// Analytics holds the ClickHouse connection behind the Journal sink
// (see NewJournal) and serves the read-side queries.
type Analytics struct {
	db clickhouse.Conn
}

// New connects to ClickHouse and pings it.
func New(ctx context.Context, cfg Config) (*Analytics, error) {
	var tlsConfig *tls.Config
	if cfg.Secure {
		tlsConfig = &tls.Config{}
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		TLS: tlsConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("mau/analytics/clickhouse: connect: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("mau/analytics/clickhouse: ping: %w", err)
	}
	return &Analytics{db: conn}, nil
}

// CreateTables creates the game_events table if it doesn't exist.
func (a *Analytics) CreateTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS game_events (
		kind String,
		game_id String,
		player_id String,
		data String,
		ts DateTime64(3)
	) ENGINE = MergeTree()
	ORDER BY (game_id, ts)`

	if err := a.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("mau/analytics/clickhouse: create table: %w", err)
	}
	return nil
}

// Journal adapts Analytics to mau.Journal. Add only appends to an
// in-memory buffer; Send, invoked once per command, performs the
// actual (suspending) batch insert.
type Journal struct {
	a       *Analytics
	pending []mau.Event
}

// NewJournal wraps a to produce a mau.Journal.
func NewJournal(a *Analytics) *Journal {
	return &Journal{a: a}
}

// Add buffers event without touching the network.
func (j *Journal) Add(event mau.Event) {
	j.pending = append(j.pending, event)
}

// Send flushes the buffered events to ClickHouse in one batch insert.
func (j *Journal) Send(ctx context.Context) error {
	if len(j.pending) == 0 {
		return nil
	}
	batch := j.pending
	j.pending = nil
	return j.a.RecordEvents(ctx, batch)
}

// RecordEvents batch-inserts events into game_events.
func (a *Analytics) RecordEvents(ctx context.Context, events []mau.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := a.db.PrepareBatch(ctx, "INSERT INTO game_events (kind, game_id, player_id, data, ts)")
	if err != nil {
		return fmt.Errorf("mau/analytics/clickhouse: prepare batch: %w", err)
	}

	for _, evt := range events {
		ts := time.Unix(0, evt.Ts)
		if err := batch.Append(string(evt.Kind), evt.GameID, evt.PlayerID, evt.Data, ts); err != nil {
			return fmt.Errorf("mau/analytics/clickhouse: append: %w", err)
		}
	}

	return batch.Send()
}

// PlayerActivity returns a rollup of playerID's activity between
// start and end.
func (a *Analytics) PlayerActivity(ctx context.Context, playerID string, start, end time.Time) (*PlayerStats, error) {
	query := `
		SELECT
			player_id,
			uniqExact(game_id) AS games_played,
			countIf(kind = 'GAME_TURN') AS turns_played,
			max(ts) AS last_active,
			min(ts) AS first_seen
		FROM game_events
		WHERE player_id = ? AND ts >= ? AND ts <= ?
		GROUP BY player_id
	`

	rows, err := a.db.Query(ctx, query, playerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		stats := &PlayerStats{}
		if err := rows.Scan(&stats.PlayerID, &stats.GamesPlayed, &stats.TurnsPlayed, &stats.LastActive, &stats.FirstSeen); err != nil {
			return nil, err
		}
		return stats, nil
	}
	return nil, rows.Err()
}

// EventsForGame returns every recorded event for gameID, ordered by
// time, for post-game review.
func (a *Analytics) EventsForGame(ctx context.Context, gameID string) ([]GameEvent, error) {
	query := `
		SELECT kind, game_id, player_id, data, ts
		FROM game_events
		WHERE game_id = ?
		ORDER BY ts ASC
	`

	rows, err := a.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameEvent
	for rows.Next() {
		var e GameEvent
		if err := rows.Scan(&e.Kind, &e.GameID, &e.PlayerID, &e.Data, &e.Ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying connection.
func (a *Analytics) Close() error {
	return a.db.Close()
}

// Ping checks if the connection is alive.
func (a *Analytics) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}
