package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mailist/mailist/internal/filter"
	"github.com/mailist/mailist/internal/store"
)

// maxBodyBytes limits request bodies to prevent memory exhaustion
const maxBodyBytes = 1 << 20 // 1 MB

// ===== HTTP Helpers =====

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into v. On failure it writes the error
// response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, hint string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RequestTooLargeError(w, r, "Request body too large")
			return false
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON: "+hint)
		return false
	}
	return true
}

// ===== Path Helpers =====

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequestError(w, r, ErrCodeInvalidID, "List id must be a positive integer")
		return 0, false
	}
	return id, true
}

// pathSlot parses the {slot} URL parameter.
func pathSlot(w http.ResponseWriter, r *http.Request) (store.Slot, bool) {
	slot, err := store.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		BadRequestError(w, r, ErrCodeInvalidSlot, "Slot must be 'senders' or 'recipients'")
		return "", false
	}
	return slot, true
}

// writeStoreError maps store errors to responses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFoundError(w, r, "Distribution list not found")
	case errors.Is(err, store.ErrAliasTaken):
		ConflictError(w, r, "Alias is already used by another list")
	case errors.Is(err, store.ErrInvalidQuery):
		BadRequestError(w, r, ErrCodeInvalidJSON, "Query must be valid JSON")
	case errors.Is(err, store.ErrInvalidSlot):
		BadRequestError(w, r, ErrCodeInvalidSlot, "Slot must be 'senders' or 'recipients'")
	default:
		InternalError(w, r, ErrCodeInternal, "Storage operation failed")
	}
}

// ===== Conversion Helpers =====

// ruleResponse describes a rule. Filters is null for advanced rules and an
// empty array for empty rules.
type ruleResponse struct {
	State   filter.RuleState `json:"state"`
	Query   any              `json:"query"`
	Filters *filter.List     `json:"filters"`
}

func newRuleResponse(rule filter.Rule) ruleResponse {
	resp := ruleResponse{State: rule.State(), Query: rule.Query()}
	switch {
	case rule.IsEmpty():
		resp.Filters = &filter.List{}
	case !rule.IsAdvanced():
		filters, _ := rule.Filters()
		list := filter.List(filters)
		resp.Filters = &list
	}
	return resp
}

// listResponse is a list with the state of both rules.
type listResponse struct {
	store.DistributionList
	SendersState    filter.RuleState `json:"sendersState"`
	RecipientsState filter.RuleState `json:"recipientsState"`
}

func newListResponse(l *store.DistributionList) listResponse {
	return listResponse{
		DistributionList: *l,
		SendersState:     stateOf(l.SendersQuery),
		RecipientsState:  stateOf(l.RecipientsQuery),
	}
}

// stateOf reports the state of a stored query. Stored queries are always
// valid JSON, so a decode failure is reported as advanced.
func stateOf(raw json.RawMessage) filter.RuleState {
	rule, err := filter.ParseRuleJSON(raw)
	if err != nil {
		return filter.RuleAdvanced
	}
	return rule.State()
}
