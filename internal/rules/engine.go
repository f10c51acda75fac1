package rules

import (
	"log/slog"
	"strings"

	"portal-sentinel/internal/extractor"
	"portal-sentinel/internal/geo"
)

// Engine evaluates events against rule-sets. It is stateless and safe for
// concurrent use.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates an engine. A nil logger falls back to slog.Default().
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// MatchAll returns the subset of rule-sets whose rules matched the event,
// preserving input order. Evaluation is independent and exhaustive across
// rule-sets: a malformed rule-set is logged and treated as non-matching, and
// never suppresses matching for the rest.
func (e *Engine) MatchAll(ruleSets []*RuleSet, event *extractor.Event) []*RuleSet {
	var matched []*RuleSet
	for _, rs := range ruleSets {
		if e.matchRuleSet(rs, event) {
			matched = append(matched, rs)
		}
	}
	return matched
}

// matchRuleSet reports whether any rule in the set matches the event (logical
// OR). Panics from malformed rule data are recovered and treated as
// non-matching so one bad rule-set cannot take down evaluation.
func (e *Engine) matchRuleSet(rs *RuleSet, event *extractor.Event) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Rule set evaluation failed",
				"rule_set_id", rs.ID,
				"rule_set_name", rs.Name,
				"panic", r,
			)
			matched = false
		}
	}()

	if rs == nil {
		e.log.Warn("Skipping nil rule set")
		return false
	}

	for _, rule := range rs.Rules {
		if e.matchRule(rule, event) {
			return true
		}
	}
	return false
}

// matchRule dispatches on the rule tag. Unknown tags are logged and never
// match.
func (e *Engine) matchRule(rule Rule, event *extractor.Event) bool {
	switch rule.Type {
	case TypeRadius:
		return matchRadius(rule, event.Portal.Coordinates)
	case TypePolygon:
		return matchPolygon(rule, event.Portal.Coordinates)
	case TypeAgent:
		return strings.EqualFold(rule.Value, event.Attacker.Name)
	case TypeName:
		return strings.Contains(
			strings.ToLower(event.Portal.Name),
			strings.ToLower(rule.Value),
		)
	default:
		e.log.Warn("Unknown rule type", "type", rule.Type)
		return false
	}
}

// matchRadius reports whether the event coordinates fall within the rule's
// great-circle radius, inclusive at the boundary. Events without coordinates
// never match.
func matchRadius(rule Rule, c *geo.Coordinate) bool {
	if c == nil || rule.Center == nil {
		return false
	}
	return geo.Distance(*c, *rule.Center) <= rule.Radius
}

// matchPolygon reports whether the event coordinates fall inside the rule's
// polygon. Events without coordinates never match; degenerate polygons follow
// the ray-casting result as-is.
func matchPolygon(rule Rule, c *geo.Coordinate) bool {
	if c == nil || len(rule.Points) < 3 {
		return false
	}
	return geo.PointInPolygon(*c, rule.Points)
}
