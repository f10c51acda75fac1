package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"portal-sentinel/internal/database"
	"portal-sentinel/internal/extractor"
	"portal-sentinel/internal/geo"
	"portal-sentinel/internal/rules"
)

// mockRepository implements Repository with overridable behavior.
type mockRepository struct {
	listRuleSetsFn func(ctx context.Context) []*rules.RuleSet
	createRecordFn func(ctx context.Context, rec database.NewRecord) (int64, error)
}

func (m *mockRepository) ListRuleSets(ctx context.Context) []*rules.RuleSet {
	if m.listRuleSetsFn != nil {
		return m.listRuleSetsFn(ctx)
	}
	return []*rules.RuleSet{}
}

func (m *mockRepository) CreateRecord(ctx context.Context, rec database.NewRecord) (int64, error) {
	if m.createRecordFn != nil {
		return m.createRecordFn(ctx, rec)
	}
	return 1, nil
}

const reportHTML = `
<div>DAMAGE REPORT</div>
<div>Example Portal</div>
<div><a href="https://intel.ingress.com/intel">1 Main St</a></div>
<img src="https://lh3.googleusercontent.com/portal.jpg"/>
<a href="https://maps.example.com/map?center=1.0,2.0&zoom=17">map</a>
<span style="color: #428F43;">AgentX</span> at 13:37
<div>DAMAGE:<br>RESONATOR destroyed</div>
<div>STATUS:<br>Level 5</div>
`

func newTestCoordinator(repo Repository) *Coordinator {
	return NewCoordinator(extractor.New(nil), rules.NewEngine(nil), repo, nil)
}

func TestCoordinator_Ingest(t *testing.T) {
	ctx := context.Background()
	msg := extractor.Message{HTML: reportHTML}

	nearbySet := &rules.RuleSet{
		ID:   "rs-near",
		Name: "Nearby",
		Rules: []rules.Rule{
			{Type: rules.TypeRadius, Center: &geo.Coordinate{Lat: 1.0, Lng: 2.0}, Radius: 1000},
		},
	}
	agentSet := &rules.RuleSet{
		ID:   "rs-agent",
		Name: "Watched Agent",
		Rules: []rules.Rule{
			{Type: rules.TypeAgent, Value: "agentx"},
		},
	}
	farSet := &rules.RuleSet{
		ID:   "rs-far",
		Name: "Far Away",
		Rules: []rules.Rule{
			{Type: rules.TypeRadius, Center: &geo.Coordinate{Lat: 50.0, Lng: 50.0}, Radius: 100},
		},
	}

	t.Run("record persisted with matched rule set IDs", func(t *testing.T) {
		var created database.NewRecord
		repo := &mockRepository{
			listRuleSetsFn: func(ctx context.Context) []*rules.RuleSet {
				return []*rules.RuleSet{nearbySet, farSet, agentSet}
			},
			createRecordFn: func(ctx context.Context, rec database.NewRecord) (int64, error) {
				created = rec
				return 42, nil
			},
		}

		res, err := newTestCoordinator(repo).Ingest(ctx, msg, "watch@example.com")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if res.Record.ID != 42 {
			t.Errorf("Ingest() record ID = %d, want 42", res.Record.ID)
		}
		if len(res.Matched) != 2 || res.Matched[0].ID != "rs-near" || res.Matched[1].ID != "rs-agent" {
			t.Errorf("Ingest() matched = %+v, want [rs-near rs-agent]", res.Matched)
		}
		if len(created.MatchedRuleSetIDs) != 2 {
			t.Errorf("persisted matched IDs = %v, want 2", created.MatchedRuleSetIDs)
		}
		if created.PortalName != "Example Portal" || created.AgentName != "AgentX" {
			t.Errorf("persisted record = %+v", created)
		}
		if created.ReceiveAddress != "watch@example.com" {
			t.Errorf("persisted receive address = %q", created.ReceiveAddress)
		}
		if created.Coordinates == nil || created.Coordinates.Lat != 1.0 {
			t.Errorf("persisted coordinates = %v", created.Coordinates)
		}
	})

	t.Run("record created even with zero matches", func(t *testing.T) {
		var created *database.NewRecord
		repo := &mockRepository{
			listRuleSetsFn: func(ctx context.Context) []*rules.RuleSet {
				return []*rules.RuleSet{farSet}
			},
			createRecordFn: func(ctx context.Context, rec database.NewRecord) (int64, error) {
				created = &rec
				return 7, nil
			},
		}

		res, err := newTestCoordinator(repo).Ingest(ctx, msg, "watch@example.com")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if len(res.Matched) != 0 {
			t.Errorf("Ingest() matched = %+v, want none", res.Matched)
		}
		if created == nil {
			t.Fatal("record was not persisted")
		}
		if len(created.MatchedRuleSetIDs) != 0 {
			t.Errorf("persisted matched IDs = %v, want empty", created.MatchedRuleSetIDs)
		}
	})

	t.Run("unrecognized mail leaves no record", func(t *testing.T) {
		createCalled := false
		repo := &mockRepository{
			createRecordFn: func(ctx context.Context, rec database.NewRecord) (int64, error) {
				createCalled = true
				return 1, nil
			},
		}

		_, err := newTestCoordinator(repo).Ingest(ctx, extractor.Message{HTML: "<p>weekly newsletter</p>"}, "watch@example.com")
		if !errors.Is(err, extractor.ErrNotRecognized) {
			t.Fatalf("Ingest() error = %v, want ErrNotRecognized", err)
		}
		if createCalled {
			t.Error("CreateRecord was called for an unrecognized message")
		}
	})

	t.Run("persistence failure is a hard error", func(t *testing.T) {
		repo := &mockRepository{
			createRecordFn: func(ctx context.Context, rec database.NewRecord) (int64, error) {
				return 0, errors.New("connection refused")
			},
		}

		_, err := newTestCoordinator(repo).Ingest(ctx, msg, "watch@example.com")
		if err == nil || !strings.Contains(err.Error(), "failed to persist record") {
			t.Errorf("Ingest() error = %v, want persistence error", err)
		}
	})

	t.Run("rule set load failure degrades to no matches", func(t *testing.T) {
		repo := &mockRepository{
			listRuleSetsFn: func(ctx context.Context) []*rules.RuleSet {
				return []*rules.RuleSet{} // repository already degraded
			},
		}

		res, err := newTestCoordinator(repo).Ingest(ctx, msg, "watch@example.com")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if len(res.Matched) != 0 {
			t.Errorf("Ingest() matched = %+v, want none", res.Matched)
		}
	})
}

func TestReportTimestamp(t *testing.T) {
	ts := reportTimestamp("13:37")
	if ts.Hour() != 13 || ts.Minute() != 37 {
		t.Errorf("reportTimestamp(13:37) = %v", ts)
	}

	fallback := reportTimestamp(extractor.UnknownTime)
	if fallback.IsZero() {
		t.Error("reportTimestamp() fallback should not be zero")
	}
}
