// Package ingest coordinates the ingestion of one inbound notification:
// parse, evaluate rule-sets, and persist the resulting record.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"portal-sentinel/internal/database"
	"portal-sentinel/internal/extractor"
	"portal-sentinel/internal/rules"
)

// Repository defines the persistence operations the coordinator needs.
type Repository interface {
	ListRuleSets(ctx context.Context) []*rules.RuleSet
	CreateRecord(ctx context.Context, rec database.NewRecord) (int64, error)
}

// Result holds the outcome of ingesting one recognized notification.
type Result struct {
	Record  *database.Record
	Event   *extractor.Event
	Matched []*rules.RuleSet
}

// Coordinator wires the extractor, the rule engine, and the repository into
// the ingestion flow.
type Coordinator struct {
	extractor *extractor.Extractor
	engine    *rules.Engine
	repo      Repository
	log       *slog.Logger
}

// NewCoordinator creates a Coordinator. A nil logger defaults to
// slog.Default().
func NewCoordinator(ext *extractor.Extractor, engine *rules.Engine, repo Repository, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		extractor: ext,
		engine:    engine,
		repo:      repo,
		log:       log,
	}
}

// Ingest parses one notification message, evaluates every stored rule-set
// against it, and persists a record of the attack. The record is created even
// when no rule-set matches. Unrecognized messages return
// extractor.ErrNotRecognized and leave no record. Persistence failures are
// hard errors; a failed rule-set load degrades to matching against none.
func (c *Coordinator) Ingest(ctx context.Context, msg extractor.Message, receiveAddr string) (*Result, error) {
	event, err := c.extractor.Parse(msg)
	if err != nil {
		return nil, err
	}

	ruleSets := c.repo.ListRuleSets(ctx)
	matched := c.engine.MatchAll(ruleSets, event)

	matchedIDs := make([]string, 0, len(matched))
	for _, rs := range matched {
		matchedIDs = append(matchedIDs, rs.ID)
	}

	timestamp := reportTimestamp(event.Attacker.Time)
	newRec := database.NewRecord{
		PortalName:        event.Portal.Name,
		PortalAddress:     event.Portal.Address,
		PortalImageURL:    event.Portal.ImageURL,
		Coordinates:       event.Portal.Coordinates,
		AgentName:         event.Attacker.Name,
		Timestamp:         timestamp,
		MatchedRuleSetIDs: matchedIDs,
		ReceiveAddress:    receiveAddr,
	}

	id, err := c.repo.CreateRecord(ctx, newRec)
	if err != nil {
		return nil, fmt.Errorf("failed to persist record: %w", err)
	}

	c.log.Info("Ingested notification",
		"record_id", id,
		"portal", event.Portal.Name,
		"agent", event.Attacker.Name,
		"matched_rule_sets", len(matched),
	)

	rec := &database.Record{
		ID:                id,
		PortalName:        newRec.PortalName,
		PortalAddress:     newRec.PortalAddress,
		PortalImageURL:    newRec.PortalImageURL,
		AgentName:         newRec.AgentName,
		Timestamp:         timestamp,
		MatchedRuleSetIDs: matchedIDs,
		ReceiveAddress:    receiveAddr,
	}
	if newRec.Coordinates != nil {
		lat, lng := newRec.Coordinates.Lat, newRec.Coordinates.Lng
		rec.Latitude = &lat
		rec.Longitude = &lng
	}

	return &Result{Record: rec, Event: event, Matched: matched}, nil
}

// reportTimestamp converts the HH:MM attack time into a timestamp on today's
// date, UTC. The report format carries no date, and the placeholder time
// falls back to the ingestion time.
func reportTimestamp(attackTime string) time.Time {
	now := time.Now().UTC()
	parsed, err := time.Parse("15:04", attackTime)
	if err != nil {
		return now
	}
	return time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}
