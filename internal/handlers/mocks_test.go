package handlers

import (
	"context"

	"portal-sentinel/internal/database"
	"portal-sentinel/internal/rules"
)

// mockRepository implements Repository with overridable behavior per test.
type mockRepository struct {
	createRuleSetFn         func(ctx context.Context, name, description string, ruleList []rules.Rule) (*rules.RuleSet, error)
	getRuleSetFn            func(ctx context.Context, id string) (*rules.RuleSet, error)
	updateRuleSetFn         func(ctx context.Context, id, name, description string, ruleList []rules.Rule) (*rules.RuleSet, error)
	deleteRuleSetFn         func(ctx context.Context, id string) error
	listRuleSetsFn          func(ctx context.Context) []*rules.RuleSet
	listRuleSetsWithStatsFn func(ctx context.Context) []*database.RuleSetStats
	getRecordFn             func(ctx context.Context, id int64) (*database.Record, error)
	listRecordsFn           func(ctx context.Context, f database.RecordFilters) []*database.Record
	listRecordsForRuleSetFn func(ctx context.Context, ruleSetID string, f database.RecordFilters) []*database.Record
}

func (m *mockRepository) CreateRuleSet(ctx context.Context, name, description string, ruleList []rules.Rule) (*rules.RuleSet, error) {
	if m.createRuleSetFn != nil {
		return m.createRuleSetFn(ctx, name, description, ruleList)
	}
	return &rules.RuleSet{ID: "rs-1", Name: name, Description: description, Rules: ruleList}, nil
}

func (m *mockRepository) GetRuleSet(ctx context.Context, id string) (*rules.RuleSet, error) {
	if m.getRuleSetFn != nil {
		return m.getRuleSetFn(ctx, id)
	}
	return &rules.RuleSet{ID: id}, nil
}

func (m *mockRepository) UpdateRuleSet(ctx context.Context, id, name, description string, ruleList []rules.Rule) (*rules.RuleSet, error) {
	if m.updateRuleSetFn != nil {
		return m.updateRuleSetFn(ctx, id, name, description, ruleList)
	}
	return &rules.RuleSet{ID: id, Name: name, Description: description, Rules: ruleList}, nil
}

func (m *mockRepository) DeleteRuleSet(ctx context.Context, id string) error {
	if m.deleteRuleSetFn != nil {
		return m.deleteRuleSetFn(ctx, id)
	}
	return nil
}

func (m *mockRepository) ListRuleSets(ctx context.Context) []*rules.RuleSet {
	if m.listRuleSetsFn != nil {
		return m.listRuleSetsFn(ctx)
	}
	return []*rules.RuleSet{}
}

func (m *mockRepository) ListRuleSetsWithStats(ctx context.Context) []*database.RuleSetStats {
	if m.listRuleSetsWithStatsFn != nil {
		return m.listRuleSetsWithStatsFn(ctx)
	}
	return []*database.RuleSetStats{}
}

func (m *mockRepository) GetRecord(ctx context.Context, id int64) (*database.Record, error) {
	if m.getRecordFn != nil {
		return m.getRecordFn(ctx, id)
	}
	return &database.Record{ID: id}, nil
}

func (m *mockRepository) ListRecords(ctx context.Context, f database.RecordFilters) []*database.Record {
	if m.listRecordsFn != nil {
		return m.listRecordsFn(ctx, f)
	}
	return []*database.Record{}
}

func (m *mockRepository) ListRecordsForRuleSet(ctx context.Context, ruleSetID string, f database.RecordFilters) []*database.Record {
	if m.listRecordsForRuleSetFn != nil {
		return m.listRecordsForRuleSetFn(ctx, ruleSetID, f)
	}
	return []*database.Record{}
}
