// Package rules defines the watch rule model and the engine that evaluates
// parsed events against rule-sets.
package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"portal-sentinel/internal/geo"
)

// Rule kinds. The set is closed: evaluation dispatches on the tag and funnels
// unknown tags to a logged no-match branch.
const (
	TypeRadius  = "radius"
	TypePolygon = "polygon"
	TypeAgent   = "agent"
	TypeName    = "name"
)

// Rule is one watch condition. Exactly the fields for its Type are set:
// radius uses Center/Radius, polygon uses Points, agent and name use Value.
type Rule struct {
	Type   string           `json:"type"`
	Value  string           `json:"value,omitempty"`
	Center *geo.Coordinate  `json:"center,omitempty"`
	Radius float64          `json:"radius,omitempty"` // meters
	Points []geo.Coordinate `json:"points,omitempty"`
}

// RuleSet is a named, user-managed collection of rules. It matches an event
// if any member rule matches.
type RuleSet struct {
	ID          string    `json:"uuid"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Rules       []Rule    `json:"rules"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ParseRules deserializes the persisted JSON form of a rule list.
func ParseRules(data []byte) ([]Rule, error) {
	var list []Rule
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}
	return list, nil
}

// MarshalRules serializes a rule list to its persisted JSON form.
func MarshalRules(list []Rule) ([]byte, error) {
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rules: %w", err)
	}
	return data, nil
}

// ValidateRules checks a rule list on the write path. Evaluation itself is
// lenient (malformed rules are skipped), but new rule-sets must be
// well-formed.
func ValidateRules(list []Rule) error {
	if len(list) == 0 {
		return fmt.Errorf("rule set must contain at least one rule")
	}
	for i, r := range list {
		switch r.Type {
		case TypeRadius:
			if r.Center == nil {
				return fmt.Errorf("rule %d: radius rule requires a center", i)
			}
			if !geo.Valid(*r.Center) {
				return fmt.Errorf("rule %d: center coordinates out of range", i)
			}
			if r.Radius <= 0 {
				return fmt.Errorf("rule %d: radius must be > 0 meters", i)
			}
		case TypePolygon:
			if len(r.Points) < 3 {
				return fmt.Errorf("rule %d: polygon requires at least 3 points", i)
			}
			for j, p := range r.Points {
				if !geo.Valid(p) {
					return fmt.Errorf("rule %d: point %d coordinates out of range", i, j)
				}
			}
		case TypeAgent, TypeName:
			if r.Value == "" {
				return fmt.Errorf("rule %d: %s rule requires a value", i, r.Type)
			}
		default:
			return fmt.Errorf("rule %d: unknown rule type %q", i, r.Type)
		}
	}
	return nil
}
