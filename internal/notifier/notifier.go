// Package notifier sends outbound alert email for records that matched at
// least one rule-set.
package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"portal-sentinel/internal/events"
	"portal-sentinel/internal/notifier/provider"
)

// DefaultFrom is the sender address used when none is configured.
const DefaultFrom = "alerts@portal-sentinel.local"

// Notifier formats and sends alert email through the provider registry.
type Notifier struct {
	registry *provider.Registry
	from     string
	log      *slog.Logger
}

// New creates a Notifier. A nil logger defaults to slog.Default(); an empty
// from address defaults to DefaultFrom.
func New(registry *provider.Registry, from string, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	if from == "" {
		from = DefaultFrom
	}
	return &Notifier{
		registry: registry,
		from:     from,
		log:      log,
	}
}

// NewDefaultRegistry builds the standard provider registry: Resend primary,
// SES fallback.
func NewDefaultRegistry() *provider.Registry {
	registry := provider.NewRegistry()
	registry.Register(provider.NewResendProvider())
	registry.Register(provider.NewSESProvider())
	if err := registry.SetPrimary("resend"); err != nil {
		slog.Warn("Failed to set primary email provider", "error", err)
	}
	if err := registry.SetFallback("ses"); err != nil {
		slog.Warn("Failed to set fallback email providers", "error", err)
	}
	return registry
}

// Notify emails an attack alert to the record's receive address. Callers
// treat failures as non-fatal; the record is already persisted.
func (n *Notifier) Notify(ctx context.Context, matched *events.RecordMatched) error {
	if len(matched.MatchedSets) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Portal Attack Alert: %s", matched.PortalName)
	req := &provider.EmailRequest{
		From:    n.from,
		To:      []string{matched.ReceiveAddress},
		Subject: subject,
		Body:    FormatAlertText(matched),
		HTML:    FormatAlertHTML(matched),
	}

	if err := n.registry.Send(ctx, req); err != nil {
		n.log.Error("Failed to send alert email",
			"record_id", matched.RecordID,
			"to", matched.ReceiveAddress,
			"error", err,
		)
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	n.log.Info("Alert email sent",
		"record_id", matched.RecordID,
		"to", matched.ReceiveAddress,
		"portal", matched.PortalName,
	)
	return nil
}

// FormatAlertText renders the plain-text alert body.
func FormatAlertText(m *events.RecordMatched) string {
	var b strings.Builder

	b.WriteString("Portal Attack Alert\n\n")
	b.WriteString("Portal Information\n")
	fmt.Fprintf(&b, "Name: %s\n", m.PortalName)
	fmt.Fprintf(&b, "Address: %s\n", m.PortalAddress)
	if m.PortalImageURL != "" {
		fmt.Fprintf(&b, "Image: %s\n", m.PortalImageURL)
	}

	b.WriteString("\nAttack Details\n")
	fmt.Fprintf(&b, "Attacker: %s\n", m.AgentName)
	fmt.Fprintf(&b, "Time: %s GMT\n", m.Timestamp.UTC().Format("15:04"))

	b.WriteString("\nDamage Report\n")
	writeLines(&b, m.Damage, "No damage information available")

	b.WriteString("\nCurrent Status\n")
	writeLines(&b, m.Status, "No status information available")

	if m.Latitude != nil && m.Longitude != nil {
		fmt.Fprintf(&b, "\nIntel Map: %s\n", intelMapURL(*m.Latitude, *m.Longitude))
	}

	b.WriteString("\nMatched Watches\n")
	for _, rs := range m.MatchedSets {
		fmt.Fprintf(&b, "- %s\n", rs.Name)
	}

	return b.String()
}

// FormatAlertHTML renders the HTML alert body.
func FormatAlertHTML(m *events.RecordMatched) string {
	var b strings.Builder

	b.WriteString("<h2>Portal Attack Alert</h2>")
	b.WriteString("<h3>Portal Information</h3>")
	fmt.Fprintf(&b, "<p><b>Name:</b> %s<br><b>Address:</b> %s</p>",
		html.EscapeString(m.PortalName), html.EscapeString(m.PortalAddress))
	if m.PortalImageURL != "" {
		fmt.Fprintf(&b, `<p><img src="%s" alt="portal"></p>`, html.EscapeString(m.PortalImageURL))
	}

	b.WriteString("<h3>Attack Details</h3>")
	fmt.Fprintf(&b, "<p><b>Attacker:</b> %s<br><b>Time:</b> %s GMT</p>",
		html.EscapeString(m.AgentName), m.Timestamp.UTC().Format("15:04"))

	b.WriteString("<h3>Damage Report</h3><p>")
	writeHTMLLines(&b, m.Damage, "No damage information available")
	b.WriteString("</p><h3>Current Status</h3><p>")
	writeHTMLLines(&b, m.Status, "No status information available")
	b.WriteString("</p>")

	if m.Latitude != nil && m.Longitude != nil {
		fmt.Fprintf(&b, `<p><a href="%s">View on Intel Map</a></p>`, intelMapURL(*m.Latitude, *m.Longitude))
	}

	b.WriteString("<h3>Matched Watches</h3><ul>")
	for _, rs := range m.MatchedSets {
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(rs.Name))
	}
	b.WriteString("</ul>")

	return b.String()
}

func intelMapURL(lat, lng float64) string {
	return fmt.Sprintf("https://intel.ingress.com/intel?ll=%g,%g&z=19", lat, lng)
}

func writeLines(b *strings.Builder, lines []string, empty string) {
	if len(lines) == 0 {
		b.WriteString(empty)
		b.WriteString("\n")
		return
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeHTMLLines(b *strings.Builder, lines []string, empty string) {
	if len(lines) == 0 {
		b.WriteString(html.EscapeString(empty))
		return
	}
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(html.EscapeString(line))
	}
}
