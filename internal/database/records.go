package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// CreateRecord persists one parsed attack report and returns its ID. This is
// the system of record: failures propagate as hard errors and are never
// swallowed. A zero Timestamp defaults to the time of insertion.
func (db *DB) CreateRecord(ctx context.Context, rec NewRecord) (int64, error) {
	matchedIDs := rec.MatchedRuleSetIDs
	if matchedIDs == nil {
		matchedIDs = []string{}
	}
	matchedJSON, err := json.Marshal(matchedIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal matched rule set IDs: %w", err)
	}

	timestamp := rec.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	var latitude, longitude sql.NullFloat64
	if rec.Coordinates != nil {
		latitude = sql.NullFloat64{Float64: rec.Coordinates.Lat, Valid: true}
		longitude = sql.NullFloat64{Float64: rec.Coordinates.Lng, Valid: true}
	}

	query := `
		INSERT INTO records (portal_name, portal_address, portal_image_url, latitude, longitude,
		                     agent_name, timestamp, matched_rule_sets, receive_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id
	`
	var id int64
	err = db.conn.QueryRowContext(ctx, query,
		rec.PortalName,
		rec.PortalAddress,
		rec.PortalImageURL,
		latitude,
		longitude,
		rec.AgentName,
		timestamp,
		string(matchedJSON),
		rec.ReceiveAddress,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create record: %w", err)
	}
	return id, nil
}

// GetRecord retrieves a record by ID.
func (db *DB) GetRecord(ctx context.Context, id int64) (*Record, error) {
	query := selectRecords + ` WHERE id = $1`
	rec, err := scanRecord(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// ListRecords retrieves records newest first with optional conjunctive
// filters and pagination. This is a reporting path: failures degrade to an
// empty sequence with a logged error.
func (db *DB) ListRecords(ctx context.Context, f RecordFilters) []*Record {
	query := selectRecords + ` WHERE 1=1`
	args := []interface{}{}
	query, args = appendRecordFilters(query, args, f)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageLimit(f.Limit), f.Offset)

	return db.queryRecords(ctx, query, args...)
}

// ListRecordsForRuleSet retrieves the records whose matched rule-set list
// contains the given rule-set ID, newest first, with the same filters as
// ListRecords. Failures degrade to an empty sequence with a logged error.
func (db *DB) ListRecordsForRuleSet(ctx context.Context, ruleSetID string, f RecordFilters) []*Record {
	query := selectRecords + ` WHERE matched_rule_sets LIKE '%' || $1 || '%'`
	args := []interface{}{ruleSetID}
	query, args = appendRecordFilters(query, args, f)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageLimit(f.Limit), f.Offset)

	return db.queryRecords(ctx, query, args...)
}

const selectRecords = `
	SELECT id, portal_name, portal_address, portal_image_url, latitude, longitude,
	       agent_name, timestamp, matched_rule_sets, receive_address, created_at
	FROM records`

// appendRecordFilters adds the optional conjunctive filters to a records
// query.
func appendRecordFilters(query string, args []interface{}, f RecordFilters) (string, []interface{}) {
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		query += fmt.Sprintf(" AND timestamp <= $%d", len(args))
	}
	if f.Agent != "" {
		args = append(args, f.Agent)
		query += fmt.Sprintf(" AND agent_name ILIKE '%%' || $%d || '%%'", len(args))
	}
	if f.PortalName != "" {
		args = append(args, f.PortalName)
		query += fmt.Sprintf(" AND portal_name ILIKE '%%' || $%d || '%%'", len(args))
	}
	return query, args
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func (db *DB) queryRecords(ctx context.Context, query string, args ...interface{}) []*Record {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("Failed to list records", "error", err)
		return []*Record{}
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			slog.Error("Failed to scan record", "error", err)
			return []*Record{}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("Failed to iterate records", "error", err)
		return []*Record{}
	}
	return records
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		imageURL   sql.NullString
		latitude   sql.NullFloat64
		longitude  sql.NullFloat64
		matchedRaw sql.NullString
	)
	if err := row.Scan(
		&rec.ID,
		&rec.PortalName,
		&rec.PortalAddress,
		&imageURL,
		&latitude,
		&longitude,
		&rec.AgentName,
		&rec.Timestamp,
		&matchedRaw,
		&rec.ReceiveAddress,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.PortalImageURL = imageURL.String
	if latitude.Valid {
		rec.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		rec.Longitude = &longitude.Float64
	}
	rec.MatchedRuleSetIDs = unmarshalMatchedIDs(matchedRaw, "record_id", rec.ID)
	return &rec, nil
}
