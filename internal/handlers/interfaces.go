// Package handlers provides HTTP handlers for the rule-set and record API.
package handlers

import (
	"context"

	"portal-sentinel/internal/database"
	"portal-sentinel/internal/rules"
)

// Repository defines the interface for database operations.
// This allows handlers to be tested without a real database.
type Repository interface {
	// Rule-set operations
	CreateRuleSet(ctx context.Context, name, description string, ruleList []rules.Rule) (*rules.RuleSet, error)
	GetRuleSet(ctx context.Context, id string) (*rules.RuleSet, error)
	UpdateRuleSet(ctx context.Context, id, name, description string, ruleList []rules.Rule) (*rules.RuleSet, error)
	DeleteRuleSet(ctx context.Context, id string) error
	ListRuleSets(ctx context.Context) []*rules.RuleSet
	ListRuleSetsWithStats(ctx context.Context) []*database.RuleSetStats

	// Record operations
	GetRecord(ctx context.Context, id int64) (*database.Record, error)
	ListRecords(ctx context.Context, f database.RecordFilters) []*database.Record
	ListRecordsForRuleSet(ctx context.Context, ruleSetID string, f database.RecordFilters) []*database.Record
}
