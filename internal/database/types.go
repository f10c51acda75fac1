// Package database provides Postgres-backed persistence for rule-sets and
// attack records.
package database

import (
	"time"

	"portal-sentinel/internal/geo"
	"portal-sentinel/internal/rules"
)

// Record is one persisted attack report. Records are created exactly once per
// successfully parsed message and never mutated afterwards.
type Record struct {
	ID                int64      `json:"id"`
	PortalName        string     `json:"portal_name"`
	PortalAddress     string     `json:"portal_address"`
	PortalImageURL    string     `json:"portal_image_url,omitempty"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	AgentName         string     `json:"agent_name"`
	Timestamp         time.Time  `json:"timestamp"`
	MatchedRuleSetIDs []string   `json:"matched_rule_sets"`
	ReceiveAddress    string     `json:"receive_address"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewRecord carries the fields for a record insert.
type NewRecord struct {
	PortalName        string
	PortalAddress     string
	PortalImageURL    string
	Coordinates       *geo.Coordinate
	AgentName         string
	Timestamp         time.Time // zero value defaults to insertion time
	MatchedRuleSetIDs []string
	ReceiveAddress    string
}

// RecordFilters are the optional, conjunctive filters for record listings.
type RecordFilters struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Agent      string // substring match on agent name
	PortalName string // substring match on portal name
	Limit      int    // defaults to 100 when <= 0
	Offset     int
}

// RuleSetStats is the aggregate view of a rule-set joined with the records
// that matched it.
type RuleSetStats struct {
	RuleSet     *rules.RuleSet `json:"rule_set"`
	MatchCount  int64          `json:"match_count"`
	LastMatchAt *time.Time     `json:"last_match_at,omitempty"`
}

// DefaultListLimit is the page size applied when a listing query does not
// specify one.
const DefaultListLimit = 100
