package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"portal-sentinel/internal/database"
	"portal-sentinel/internal/rules"
)

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	db Repository
}

// NewHandlers creates a new handlers instance.
func NewHandlers(db *database.DB) *Handlers {
	return &Handlers{db: db}
}

// NewHandlersWithDeps creates handlers with explicit interface dependencies.
// This constructor is primarily for testing.
func NewHandlersWithDeps(db Repository) *Handlers {
	return &Handlers{db: db}
}

// RuleSetRequest represents a request to create or update a rule-set.
type RuleSetRequest struct {
	UUID        string       `json:"uuid,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Rules       []rules.Rule `json:"rules"`
}

// CreateRuleSet creates a new rule-set.
func (h *Handlers) CreateRuleSet(w http.ResponseWriter, r *http.Request) {
	var req RuleSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := rules.ValidateRules(req.Rules); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	rs, err := h.db.CreateRuleSet(ctx, req.Name, req.Description, req.Rules)
	if handleDBError(w, err, "rule set", req.Name) {
		return
	}

	slog.Info("Created rule set", "uuid", rs.ID, "name", rs.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rs)
}

// GetRuleSet retrieves a rule-set by UUID.
func (h *Handlers) GetRuleSet(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uuid")
	if id == "" {
		http.Error(w, "uuid query parameter is required", http.StatusBadRequest)
		return
	}

	rs, err := h.db.GetRuleSet(r.Context(), id)
	if handleDBError(w, err, "rule set", id) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rs)
}

// ListRuleSets retrieves all rule-sets.
func (h *Handlers) ListRuleSets(w http.ResponseWriter, r *http.Request) {
	ruleSets := h.db.ListRuleSets(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ruleSets)
}

// UpdateRuleSet replaces the name, description, and rules of a rule-set.
func (h *Handlers) UpdateRuleSet(w http.ResponseWriter, r *http.Request) {
	var req RuleSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UUID == "" {
		http.Error(w, "uuid is required", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := rules.ValidateRules(req.Rules); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rs, err := h.db.UpdateRuleSet(r.Context(), req.UUID, req.Name, req.Description, req.Rules)
	if handleDBError(w, err, "rule set", req.UUID) {
		return
	}

	slog.Info("Updated rule set", "uuid", rs.ID, "name", rs.Name)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rs)
}

// DeleteRuleSet deletes a rule-set by UUID. Records that matched it are kept.
func (h *Handlers) DeleteRuleSet(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uuid")
	if id == "" {
		http.Error(w, "uuid query parameter is required", http.StatusBadRequest)
		return
	}

	if handleDBError(w, h.db.DeleteRuleSet(r.Context(), id), "rule set", id) {
		return
	}

	slog.Info("Deleted rule set", "uuid", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetRuleSetStats retrieves all rule-sets with their match counts and last
// match timestamps.
func (h *Handlers) GetRuleSetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.db.ListRuleSetsWithStats(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// ListRuleSetRecords retrieves the records that matched a rule-set.
func (h *Handlers) ListRuleSetRecords(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uuid")
	if id == "" {
		http.Error(w, "uuid query parameter is required", http.StatusBadRequest)
		return
	}

	filters, err := parseRecordFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records := h.db.ListRecordsForRuleSet(r.Context(), id, filters)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// GetRecord retrieves a record by ID.
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("record_id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid record_id", http.StatusBadRequest)
		return
	}

	rec, err := h.db.GetRecord(r.Context(), id)
	if handleDBError(w, err, "record", idStr) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// ListRecords retrieves records with optional filters and pagination.
func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	filters, err := parseRecordFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records := h.db.ListRecords(r.Context(), filters)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
