package api

import (
	"encoding/json"
	"net/http"

	"github.com/mailist/mailist/internal/audit"
	"github.com/mailist/mailist/internal/filter"
	"github.com/mailist/mailist/internal/names"
	"github.com/mailist/mailist/internal/targeting"
	"github.com/mailist/mailist/internal/telemetry"
	"github.com/mailist/mailist/internal/validation"
)

// --- Rule Endpoints ---

type filtersRequest struct {
	Filters json.RawMessage `json:"filters"`
}

type namesResponse struct {
	State   filter.RuleState `json:"state"`
	Entries []names.Entry    `json:"entries"`
}

type advancedNamesResponse struct {
	State filter.RuleState `json:"state"`
	Query any              `json:"query"`
}

type buildResponse struct {
	Query any `json:"query"`
}

type evaluateRequest struct {
	Query  json.RawMessage  `json:"query"`
	Member targeting.Member `json:"member"`
}

type evaluateResponse struct {
	Matched bool             `json:"matched"`
	State   filter.RuleState `json:"state"`
}

// loadRule reads the rule in the {slot} of list {id}.
func (s *Server) loadRule(w http.ResponseWriter, r *http.Request) (filter.Rule, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return filter.Rule{}, false
	}
	slot, ok := pathSlot(w, r)
	if !ok {
		return filter.Rule{}, false
	}
	l, err := s.store.GetDistributionList(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return filter.Rule{}, false
	}
	rule, err := filter.ParseRuleJSON(l.Query(slot))
	if err != nil {
		s.log.Errorw("stored query is not valid JSON", "id", id, "slot", slot, "error", err)
		InternalError(w, r, ErrCodeStoredQuery, "Stored query is not valid JSON")
		return filter.Rule{}, false
	}
	telemetry.RuleParses.WithLabelValues(rule.State().String()).Inc()
	return rule, true
}

// decodeFilters decodes and validates a filter list from a request field.
func decodeFilters(w http.ResponseWriter, r *http.Request, raw json.RawMessage) (filter.List, bool) {
	if len(raw) == 0 {
		ValidationError(w, r, "Validation failed for one or more fields", map[string]string{
			"filters": "Filters are required (use [] to clear the rule)",
		})
		return nil, false
	}
	var list filter.List
	if err := json.Unmarshal(raw, &list); err != nil {
		BadRequestError(w, r, ErrCodeInvalidFilter, "Invalid filters: "+err.Error())
		return nil, false
	}
	if result := validation.ValidateFilters(list); !result.Valid {
		ValidationError(w, r, "Validation failed for one or more filters", result.Errors)
		return nil, false
	}
	return list, true
}

// handleGetRule returns the state, query and filters of a stored rule
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadRule(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newRuleResponse(rule))
}

// handleGetRuleNames returns the filters of a stored rule with directory names.
// Advanced rules are returned as-is without consulting the directory.
func (s *Server) handleGetRuleNames(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadRule(w, r)
	if !ok {
		return
	}
	entries, recognized, err := names.WithNamesRule(r.Context(), s.directory, rule)
	if err != nil {
		s.log.Warnw("directory lookup failed", "error", err)
		BadGatewayError(w, r, "Directory is unavailable: "+err.Error())
		return
	}
	if !recognized {
		writeJSON(w, http.StatusOK, advancedNamesResponse{State: rule.State(), Query: rule.Query()})
		return
	}
	writeJSON(w, http.StatusOK, namesResponse{State: rule.State(), Entries: entries})
}

// handlePutFilters compiles filters into a query and stores it in the slot.
// An empty list clears the rule.
func (s *Server) handlePutFilters(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	slot, ok := pathSlot(w, r)
	if !ok {
		return
	}
	var req filtersRequest
	if !decodeJSON(w, r, &req, "expected field 'filters'") {
		return
	}
	list, ok := decodeFilters(w, r, req.Filters)
	if !ok {
		return
	}

	rule := filter.NewRule(list)
	raw, err := json.Marshal(rule.Query())
	if err != nil {
		InternalError(w, r, ErrCodeInternal, "Failed to encode query")
		return
	}
	before := s.auditBefore(r, id)
	after, err := s.store.SetQuery(r.Context(), id, slot, raw)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.log.Infow("rule filters saved", "id", id, "slot", slot, "filters", len(list))
	s.auditList(r, audit.ActionRuleSet, id, slot, before, after)
	writeJSON(w, http.StatusOK, newRuleResponse(rule))
}

// handlePutQuery stores a raw query tree in the slot. The tree must be
// applicable JSON Logic but need not follow the filter grammar. null clears
// the rule.
func (s *Server) handlePutQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	slot, ok := pathSlot(w, r)
	if !ok {
		return
	}
	var raw json.RawMessage
	if !decodeJSON(w, r, &raw, "expected a JSON Logic tree or null") {
		return
	}
	if result := validation.ValidateQuerySize("query", raw); !result.Valid {
		ValidationError(w, r, "Validation failed for one or more fields", result.Errors)
		return
	}

	if err := checkQuery(raw); err != nil {
		BadRequestError(w, r, ErrCodeInvalidExpression, err.Error())
		return
	}
	rule, err := filter.ParseRuleJSON(raw)
	if err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON: "+err.Error())
		return
	}

	before := s.auditBefore(r, id)
	after, err := s.store.SetQuery(r.Context(), id, slot, raw)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.log.Infow("rule query saved", "id", id, "slot", slot, "state", rule.State().String())
	s.auditList(r, audit.ActionRuleSet, id, slot, before, after)
	writeJSON(w, http.StatusOK, newRuleResponse(rule))
}

// handleParseRule reports how a query tree would be read
func (s *Server) handleParseRule(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decodeJSON(w, r, &raw, "expected a JSON Logic tree or null") {
		return
	}
	rule, err := filter.ParseRuleJSON(raw)
	if err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newRuleResponse(rule))
}

// handleBuildRule compiles filters into a query without storing it
func (s *Server) handleBuildRule(w http.ResponseWriter, r *http.Request) {
	var req filtersRequest
	if !decodeJSON(w, r, &req, "expected field 'filters'") {
		return
	}
	list, ok := decodeFilters(w, r, req.Filters)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buildResponse{Query: filter.Build(list)})
}

// handleEvaluateRule applies a query to one member record
func (s *Server) handleEvaluateRule(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req, "expected fields 'query' and 'member'") {
		return
	}
	rule, err := filter.ParseRuleJSON(req.Query)
	if err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON: "+err.Error())
		return
	}
	matched, err := targeting.Evaluate(rule.Query(), req.Member)
	if err != nil {
		BadRequestError(w, r, ErrCodeInvalidExpression, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Matched: matched, State: rule.State()})
}

// checkQuery verifies that a non-empty raw query is applicable JSON Logic.
func checkQuery(raw json.RawMessage) error {
	rule, err := filter.ParseRuleJSON(raw)
	if err != nil {
		return err
	}
	if rule.IsEmpty() {
		return nil
	}
	return targeting.ValidateQuery(rule.Query())
}
