// Package extractor converts raw portal attack report messages into
// structured events. Source messages come from several historical template
// versions with different markup, so each field is extracted independently
// with its own fallback chain and placeholder default; a failure in one field
// never aborts the others.
package extractor

import (
	"errors"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"portal-sentinel/internal/geo"
)

// ErrNotRecognized is returned by Parse when the message carries none of the
// known report markers. This is the expected outcome for unrelated mail, not
// a failure.
var ErrNotRecognized = errors.New("message is not a portal attack report")

// Placeholder defaults used when a field cannot be extracted.
const (
	UnknownPortal   = "Unknown Portal"
	UnknownLocation = "Unknown Location"
	UnknownAttacker = "Unknown"
	UnknownTime     = "Unknown"
	NoDamageInfo    = "No damage information available"
	NoStatusInfo    = "No status information available"
)

// reportMarkers are the phrases that gate recognition. A message is accepted
// only if its HTML or text body contains at least one of them.
var reportMarkers = []string{
	"DAMAGE REPORT",
	"ingress.com",
}

var (
	portalPairRe  = regexp.MustCompile(`<div>([^<]+)</div>\s*<div><a[^>]+>([^<]+)</a></div>`)
	divContentRe  = regexp.MustCompile(`<div[^>]*>([^<]+)</div>`)
	portalImageRe = regexp.MustCompile(`src="(https://lh3\.googleusercontent\.com/[^"]+)"`)
	coordinatesRe = regexp.MustCompile(`center=([\d.-]+),([\d.-]+)`)
	attackerRe    = regexp.MustCompile(`color: #428F43;">([^<]+)</span> at (\d{2}:\d{2})`)
	damageRe      = regexp.MustCompile(`DAMAGE:<br>([^<]+(?:<br>[^<]+)*)`)
	statusRe      = regexp.MustCompile(`STATUS:<br>([^<]+(?:<br>[^<]+)*)`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Message is the decoded body pair of an inbound mail message.
type Message struct {
	HTML string
	Text string
}

// Portal is the point of interest referenced by a report.
type Portal struct {
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	ImageURL    string          `json:"image_url,omitempty"`
	Coordinates *geo.Coordinate `json:"coordinates,omitempty"`
}

// Attacker identifies who triggered the report and when.
type Attacker struct {
	Name string `json:"name"`
	Time string `json:"time"` // HH:MM as it appears in the report
}

// Event is the structured form of one parsed report. Immutable after Parse.
type Event struct {
	Portal   Portal   `json:"portal"`
	Attacker Attacker `json:"attacker"`
	Damage   []string `json:"damage"`
	Status   []string `json:"status"`
}

// Extractor parses report messages. It is stateless and safe for concurrent
// use.
type Extractor struct {
	log *slog.Logger
}

// New creates an extractor. A nil logger falls back to slog.Default().
func New(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{log: log}
}

// Parse converts a message into a structured event. It returns
// ErrNotRecognized when no report marker is present; that path has no side
// effects. Parsing the same message twice yields identical output.
func (e *Extractor) Parse(msg Message) (*Event, error) {
	if !recognized(msg) {
		return nil, ErrNotRecognized
	}

	body := msg.HTML
	if strings.TrimSpace(body) == "" {
		body = msg.Text
	}

	name, address := e.extractPortalInfo(body)
	event := &Event{
		Portal: Portal{
			Name:        name,
			Address:     address,
			ImageURL:    extractPortalImage(body),
			Coordinates: e.extractCoordinates(body),
		},
		Attacker: extractAttacker(body),
		Damage:   extractLines(body, damageRe, NoDamageInfo),
		Status:   extractLines(body, statusRe, NoStatusInfo),
	}
	return event, nil
}

// recognized reports whether either body carries a report marker.
func recognized(msg Message) bool {
	for _, marker := range reportMarkers {
		if strings.Contains(msg.HTML, marker) || strings.Contains(msg.Text, marker) {
			return true
		}
	}
	return false
}

// extractPortalInfo locates the portal name and address. It first tries the
// structural name/address div pair; if that template variant is absent it
// scans all div blocks for the one following the DAMAGE REPORT header.
func (e *Extractor) extractPortalInfo(body string) (name, address string) {
	if m := portalPairRe.FindStringSubmatch(body); m != nil {
		return cleanText(m[1]), cleanText(m[2])
	}

	var blocks []string
	for _, m := range divContentRe.FindAllStringSubmatch(body, -1) {
		if text := cleanText(m[1]); text != "" {
			blocks = append(blocks, text)
		}
	}
	for i, text := range blocks {
		if !strings.Contains(text, "DAMAGE REPORT") {
			continue
		}
		if i+1 < len(blocks) {
			name = blocks[i+1]
			address = UnknownLocation
			if i+2 < len(blocks) {
				address = blocks[i+2]
			}
			return name, address
		}
		break
	}

	e.log.Debug("portal identity not found, using placeholders")
	return UnknownPortal, UnknownLocation
}

// extractPortalImage returns the first portal image URL, or "" when absent.
func extractPortalImage(body string) string {
	if m := portalImageRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// extractCoordinates pulls the lat,lng pair out of the intel map link.
// Returns nil when the link is absent or the values do not parse as a valid
// coordinate.
func (e *Extractor) extractCoordinates(body string) *geo.Coordinate {
	m := coordinatesRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}

	lat, errLat := strconv.ParseFloat(m[1], 64)
	lng, errLng := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLng != nil {
		e.log.Warn("map link coordinates did not parse", "lat", m[1], "lng", m[2])
		return nil
	}

	c := geo.Coordinate{Lat: lat, Lng: lng}
	if !geo.Valid(c) {
		e.log.Warn("map link coordinates out of range", "lat", lat, "lng", lng)
		return nil
	}
	return &c
}

// extractAttacker finds the styled attacker name followed by an HH:MM
// timestamp.
func extractAttacker(body string) Attacker {
	if m := attackerRe.FindStringSubmatch(body); m != nil {
		return Attacker{Name: cleanText(m[1]), Time: m[2]}
	}
	return Attacker{Name: UnknownAttacker, Time: UnknownTime}
}

// extractLines splits the block following a section marker on <br>, cleaning
// each line and dropping empties. Returns the single placeholder line when
// the marker is absent or the block is empty.
func extractLines(body string, re *regexp.Regexp, placeholder string) []string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return []string{placeholder}
	}

	var lines []string
	for _, raw := range strings.Split(m[1], "<br>") {
		if line := cleanText(raw); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return []string{placeholder}
	}
	return lines
}

// cleanText normalizes HTML entities to plain text and collapses whitespace
// runs to a single space.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = html.UnescapeString(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
