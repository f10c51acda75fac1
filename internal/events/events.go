// Package events defines the event structures for the mail.inbound and
// records.matched topics.
package events

import (
	"time"

	"portal-sentinel/internal/database"
	"portal-sentinel/internal/extractor"
	"portal-sentinel/internal/rules"
)

// InboundMail represents a received email from the mail.inbound topic. The
// mail gateway decodes MIME upstream, so the bodies arrive as plain strings.
type InboundMail struct {
	To        string `json:"to"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	HTML      string `json:"html,omitempty"`
	Text      string `json:"text,omitempty"`
	EventTS   int64  `json:"event_ts"`
	MessageID string `json:"message_id,omitempty"`
}

// MatchedRuleSet identifies one rule-set a record matched.
type MatchedRuleSet struct {
	ID   string `json:"uuid"`
	Name string `json:"name"`
}

// RecordMatched represents a persisted attack record that matched at least
// one rule-set, published to the records.matched topic.
type RecordMatched struct {
	RecordID       int64            `json:"record_id"`
	PortalName     string           `json:"portal_name"`
	PortalAddress  string           `json:"portal_address"`
	PortalImageURL string           `json:"portal_image_url,omitempty"`
	Latitude       *float64         `json:"latitude,omitempty"`
	Longitude      *float64         `json:"longitude,omitempty"`
	AgentName      string           `json:"agent_name"`
	Damage         []string         `json:"damage,omitempty"`
	Status         []string         `json:"status,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	MatchedSets    []MatchedRuleSet `json:"matched_rule_sets"`
	ReceiveAddress string           `json:"receive_address"`
}

// NewRecordMatched builds a RecordMatched event from a stored record, the
// parsed report it came from, and the rule-sets that matched it.
func NewRecordMatched(rec *database.Record, event *extractor.Event, matched []*rules.RuleSet) *RecordMatched {
	sets := make([]MatchedRuleSet, 0, len(matched))
	for _, rs := range matched {
		sets = append(sets, MatchedRuleSet{ID: rs.ID, Name: rs.Name})
	}
	return &RecordMatched{
		RecordID:       rec.ID,
		PortalName:     rec.PortalName,
		PortalAddress:  rec.PortalAddress,
		PortalImageURL: rec.PortalImageURL,
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		AgentName:      rec.AgentName,
		Damage:         event.Damage,
		Status:         event.Status,
		Timestamp:      rec.Timestamp,
		MatchedSets:    sets,
		ReceiveAddress: rec.ReceiveAddress,
	}
}
