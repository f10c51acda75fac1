package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"portal-sentinel/internal/events"
	"portal-sentinel/internal/notifier/provider"
)

// mockProvider implements provider.Provider with overridable behavior.
type mockProvider struct {
	name       string
	configured bool
	sendFn     func(ctx context.Context, req *provider.EmailRequest) error
	sent       []*provider.EmailRequest
}

func (m *mockProvider) Name() string       { return m.name }
func (m *mockProvider) IsConfigured() bool { return m.configured }
func (m *mockProvider) Send(ctx context.Context, req *provider.EmailRequest) error {
	m.sent = append(m.sent, req)
	if m.sendFn != nil {
		return m.sendFn(ctx, req)
	}
	return nil
}

func sampleMatched() *events.RecordMatched {
	lat, lng := 1.0, 2.0
	return &events.RecordMatched{
		RecordID:       42,
		PortalName:     "Example Portal",
		PortalAddress:  "1 Main St",
		PortalImageURL: "https://lh3.googleusercontent.com/portal.jpg",
		Latitude:       &lat,
		Longitude:      &lng,
		AgentName:      "AgentX",
		Damage:         []string{"RESONATOR destroyed"},
		Status:         []string{"Level 5", "Health: 80%"},
		Timestamp:      time.Date(2025, 6, 1, 13, 37, 0, 0, time.UTC),
		MatchedSets:    []events.MatchedRuleSet{{ID: "rs-1", Name: "Downtown"}},
		ReceiveAddress: "watch@example.com",
	}
}

func TestNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("sends to receive address", func(t *testing.T) {
		p := &mockProvider{name: "mock", configured: true}
		registry := provider.NewRegistry()
		registry.Register(p)

		n := New(registry, "alerts@example.com", nil)
		if err := n.Notify(ctx, sampleMatched()); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if len(p.sent) != 1 {
			t.Fatalf("provider received %d requests, want 1", len(p.sent))
		}
		req := p.sent[0]
		if req.From != "alerts@example.com" || req.To[0] != "watch@example.com" {
			t.Errorf("Notify() sent from=%q to=%v", req.From, req.To)
		}
		if !strings.Contains(req.Subject, "Example Portal") {
			t.Errorf("Notify() subject = %q", req.Subject)
		}
	})

	t.Run("no matched rule sets sends nothing", func(t *testing.T) {
		p := &mockProvider{name: "mock", configured: true}
		registry := provider.NewRegistry()
		registry.Register(p)

		m := sampleMatched()
		m.MatchedSets = nil
		if err := New(registry, "", nil).Notify(ctx, m); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if len(p.sent) != 0 {
			t.Errorf("provider received %d requests, want 0", len(p.sent))
		}
	})

	t.Run("fallback provider used when primary fails", func(t *testing.T) {
		primary := &mockProvider{
			name:       "primary",
			configured: true,
			sendFn: func(ctx context.Context, req *provider.EmailRequest) error {
				return errors.New("rate limited")
			},
		}
		fallback := &mockProvider{name: "fallback", configured: true}
		registry := provider.NewRegistry()
		registry.Register(primary)
		registry.Register(fallback)
		if err := registry.SetPrimary("primary"); err != nil {
			t.Fatal(err)
		}
		if err := registry.SetFallback("fallback"); err != nil {
			t.Fatal(err)
		}

		if err := New(registry, "", nil).Notify(ctx, sampleMatched()); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if len(fallback.sent) != 1 {
			t.Errorf("fallback received %d requests, want 1", len(fallback.sent))
		}
	})

	t.Run("send failure surfaces as error", func(t *testing.T) {
		p := &mockProvider{
			name:       "mock",
			configured: true,
			sendFn: func(ctx context.Context, req *provider.EmailRequest) error {
				return errors.New("smtp down")
			},
		}
		registry := provider.NewRegistry()
		registry.Register(p)

		err := New(registry, "", nil).Notify(ctx, sampleMatched())
		if err == nil {
			t.Error("Notify() expected error, got nil")
		}
	})
}

func TestFormatAlertText(t *testing.T) {
	body := FormatAlertText(sampleMatched())

	for _, want := range []string{
		"Example Portal",
		"1 Main St",
		"AgentX",
		"13:37 GMT",
		"RESONATOR destroyed",
		"Health: 80%",
		"https://intel.ingress.com/intel?ll=1,2&z=19",
		"Downtown",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("FormatAlertText() missing %q in:\n%s", want, body)
		}
	}
}

func TestFormatAlertText_EmptySections(t *testing.T) {
	m := sampleMatched()
	m.Damage = nil
	m.Status = nil
	m.Latitude = nil
	m.Longitude = nil

	body := FormatAlertText(m)
	if !strings.Contains(body, "No damage information available") {
		t.Error("FormatAlertText() missing damage placeholder")
	}
	if !strings.Contains(body, "No status information available") {
		t.Error("FormatAlertText() missing status placeholder")
	}
	if strings.Contains(body, "Intel Map") {
		t.Error("FormatAlertText() should omit map link without coordinates")
	}
}

func TestFormatAlertHTML_EscapesContent(t *testing.T) {
	m := sampleMatched()
	m.PortalName = `Café <script>alert(1)</script>`

	body := FormatAlertHTML(m)
	if strings.Contains(body, "<script>") {
		t.Error("FormatAlertHTML() did not escape portal name")
	}
	if !strings.Contains(body, "Café") {
		t.Error("FormatAlertHTML() lost portal name content")
	}
}
