// Package database provides Postgres-backed persistence for rule-sets and
// attack records.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a database connection and provides rule-set and record operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection using the provided DSN.
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to PostgreSQL database")

	return &DB{conn: conn}, nil
}

// InitSchema creates the rule_sets and records tables if they do not exist.
func (db *DB) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rule_sets (
			uuid        TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			rules       TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id                BIGSERIAL PRIMARY KEY,
			portal_name       TEXT NOT NULL,
			portal_address    TEXT NOT NULL,
			portal_image_url  TEXT,
			latitude          DOUBLE PRECISION,
			longitude         DOUBLE PRECISION,
			agent_name        TEXT NOT NULL,
			timestamp         TIMESTAMPTZ NOT NULL,
			matched_rule_sets TEXT NOT NULL DEFAULT '[]',
			receive_address   TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records (timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_records_agent ON records (agent_name)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		slog.Info("Closing database connection")
		return db.conn.Close()
	}
	return nil
}

// unmarshalMatchedIDs deserializes the matched rule-set ID list stored with a
// record. Malformed data degrades to an empty list with a logged warning.
func unmarshalMatchedIDs(raw sql.NullString, warnAttrs ...any) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw.String), &ids); err != nil {
		slog.Warn("Failed to unmarshal matched rule set IDs", append([]any{"error", err}, warnAttrs...)...)
		return []string{}
	}
	if ids == nil {
		return []string{}
	}
	return ids
}
