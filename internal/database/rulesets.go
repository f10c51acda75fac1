package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"portal-sentinel/internal/rules"
)

// CreateRuleSet creates a new rule-set with a generated UUID.
// Returns the created rule-set with database-assigned timestamps.
func (db *DB) CreateRuleSet(ctx context.Context, name, description string, ruleList []rules.Rule) (*rules.RuleSet, error) {
	rulesJSON, err := rules.MarshalRules(ruleList)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO rule_sets (uuid, name, description, rules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING uuid, name, description, rules, created_at, updated_at
	`
	id := uuid.NewString()
	row := db.conn.QueryRowContext(ctx, query, id, name, description, string(rulesJSON))
	rs, err := scanRuleSet(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule set: %w", err)
	}
	return rs, nil
}

// GetRuleSet retrieves a rule-set by ID.
func (db *DB) GetRuleSet(ctx context.Context, id string) (*rules.RuleSet, error) {
	query := `
		SELECT uuid, name, description, rules, created_at, updated_at
		FROM rule_sets
		WHERE uuid = $1
	`
	rs, err := scanRuleSet(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule set not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule set: %w", err)
	}
	return rs, nil
}

// UpdateRuleSet replaces the name, description, and rules of a rule-set.
func (db *DB) UpdateRuleSet(ctx context.Context, id, name, description string, ruleList []rules.Rule) (*rules.RuleSet, error) {
	rulesJSON, err := rules.MarshalRules(ruleList)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE rule_sets
		SET name = $2,
		    description = $3,
		    rules = $4,
		    updated_at = NOW()
		WHERE uuid = $1
		RETURNING uuid, name, description, rules, created_at, updated_at
	`
	rs, err := scanRuleSet(db.conn.QueryRowContext(ctx, query, id, name, description, string(rulesJSON)))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule set not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update rule set: %w", err)
	}
	return rs, nil
}

// DeleteRuleSet deletes a rule-set by ID. Records that matched it keep their
// stored ID list unchanged.
func (db *DB) DeleteRuleSet(ctx context.Context, id string) error {
	query := `DELETE FROM rule_sets WHERE uuid = $1`
	result, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule set: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule set not found: %s", id)
	}
	return nil
}

// ListRuleSets retrieves all rule-sets, newest first. This is a reporting
// path: failures degrade to an empty sequence with a logged error.
func (db *DB) ListRuleSets(ctx context.Context) []*rules.RuleSet {
	query := `
		SELECT uuid, name, description, rules, created_at, updated_at
		FROM rule_sets
		ORDER BY created_at DESC
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		slog.Error("Failed to list rule sets", "error", err)
		return []*rules.RuleSet{}
	}
	defer rows.Close()

	ruleSets := []*rules.RuleSet{}
	for rows.Next() {
		rs, err := scanRuleSet(rows)
		if err != nil {
			slog.Error("Failed to scan rule set", "error", err)
			return []*rules.RuleSet{}
		}
		ruleSets = append(ruleSets, rs)
	}
	if err := rows.Err(); err != nil {
		slog.Error("Failed to iterate rule sets", "error", err)
		return []*rules.RuleSet{}
	}
	return ruleSets
}

// ListRuleSetsWithStats retrieves all rule-sets joined with the count and
// latest timestamp of the records that matched them. Failures degrade to an
// empty sequence with a logged error.
func (db *DB) ListRuleSetsWithStats(ctx context.Context) []*RuleSetStats {
	query := `
		SELECT rs.uuid, rs.name, rs.description, rs.rules, rs.created_at, rs.updated_at,
		       COUNT(rec.id) AS match_count,
		       MAX(rec.timestamp) AS last_match_at
		FROM rule_sets rs
		LEFT JOIN records rec ON rec.matched_rule_sets LIKE '%' || rs.uuid || '%'
		GROUP BY rs.uuid, rs.name, rs.description, rs.rules, rs.created_at, rs.updated_at
		ORDER BY rs.created_at DESC
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		slog.Error("Failed to list rule set stats", "error", err)
		return []*RuleSetStats{}
	}
	defer rows.Close()

	stats := []*RuleSetStats{}
	for rows.Next() {
		var (
			rs          rules.RuleSet
			description sql.NullString
			rulesJSON   string
			matchCount  int64
			lastMatch   sql.NullTime
		)
		if err := rows.Scan(
			&rs.ID,
			&rs.Name,
			&description,
			&rulesJSON,
			&rs.CreatedAt,
			&rs.UpdatedAt,
			&matchCount,
			&lastMatch,
		); err != nil {
			slog.Error("Failed to scan rule set stats", "error", err)
			return []*RuleSetStats{}
		}
		rs.Description = description.String
		rs.Rules = parseStoredRules(rulesJSON, rs.ID)

		entry := &RuleSetStats{RuleSet: &rs, MatchCount: matchCount}
		if lastMatch.Valid {
			t := lastMatch.Time
			entry.LastMatchAt = &t
		}
		stats = append(stats, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("Failed to iterate rule set stats", "error", err)
		return []*RuleSetStats{}
	}
	return stats
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRuleSet(row rowScanner) (*rules.RuleSet, error) {
	var (
		rs          rules.RuleSet
		description sql.NullString
		rulesJSON   string
	)
	if err := row.Scan(
		&rs.ID,
		&rs.Name,
		&description,
		&rulesJSON,
		&rs.CreatedAt,
		&rs.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rs.Description = description.String
	rs.Rules = parseStoredRules(rulesJSON, rs.ID)
	return &rs, nil
}

// parseStoredRules deserializes a persisted rule list. Malformed stored rules
// degrade to an empty list so one corrupt row cannot break listings; the
// engine treats such a set as non-matching.
func parseStoredRules(rulesJSON, ruleSetID string) []rules.Rule {
	list, err := rules.ParseRules([]byte(rulesJSON))
	if err != nil {
		slog.Warn("Failed to parse stored rules", "rule_set_id", ruleSetID, "error", err)
		return []rules.Rule{}
	}
	return list
}
