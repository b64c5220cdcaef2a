package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mailist/mailist/internal/audit"
	"github.com/mailist/mailist/internal/store"
	"github.com/mailist/mailist/internal/validation"
)

// --- Distribution List Endpoints ---

type createListRequest struct {
	Alias           string          `json:"alias"`
	Flags           store.Flags     `json:"flags"`
	SendersQuery    json.RawMessage `json:"sendersQuery,omitempty"`
	RecipientsQuery json.RawMessage `json:"recipientsQuery,omitempty"`
}

type updateListRequest struct {
	Alias string      `json:"alias"`
	Flags store.Flags `json:"flags"`
}

type listListsResponse struct {
	Lists []listResponse `json:"lists"`
}

// handleListLists returns all lists ordered by id
func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.ListDistributionLists(r.Context())
	if err != nil {
		s.log.Errorw("list distribution lists", "error", err)
		writeStoreError(w, r, err)
		return
	}
	resp := listListsResponse{Lists: make([]listResponse, 0, len(lists))}
	for i := range lists {
		resp.Lists = append(resp.Lists, newListResponse(&lists[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateList creates a list, optionally with both queries
func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if !decodeJSON(w, r, &req, "expected fields 'alias', 'flags', and optional 'sendersQuery', 'recipientsQuery'") {
		return
	}
	req.Alias = strings.TrimSpace(req.Alias)

	result := validation.ValidateList(validation.ListValidationParams{
		Alias:           req.Alias,
		SendersQuery:    req.SendersQuery,
		RecipientsQuery: req.RecipientsQuery,
	})
	if !result.Valid {
		ValidationError(w, r, "Validation failed for one or more fields", result.Errors)
		return
	}

	for field, raw := range map[string]json.RawMessage{"sendersQuery": req.SendersQuery, "recipientsQuery": req.RecipientsQuery} {
		if err := checkQuery(raw); err != nil {
			BadRequestError(w, r, ErrCodeInvalidExpression, field+": "+err.Error())
			return
		}
	}

	created, err := s.store.CreateDistributionList(r.Context(), store.CreateParams{
		Alias:           req.Alias,
		Flags:           req.Flags,
		SendersQuery:    req.SendersQuery,
		RecipientsQuery: req.RecipientsQuery,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.log.Infow("distribution list created", "id", created.ID, "alias", created.Alias)
	s.auditList(r, audit.ActionCreated, created.ID, "", nil, created)
	writeJSON(w, http.StatusCreated, newListResponse(created))
}

// handleGetList returns one list
func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	l, err := s.store.GetDistributionList(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(l))
}

// handleUpdateList changes a list's alias and flags; queries are untouched
func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateListRequest
	if !decodeJSON(w, r, &req, "expected fields 'alias' and 'flags'") {
		return
	}
	req.Alias = strings.TrimSpace(req.Alias)

	if result := validation.ValidateAlias(req.Alias); !result.Valid {
		ValidationError(w, r, "Validation failed for one or more fields", result.Errors)
		return
	}

	before := s.auditBefore(r, id)
	updated, err := s.store.UpdateDistributionList(r.Context(), id, store.UpdateParams{Alias: req.Alias, Flags: req.Flags})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.log.Infow("distribution list updated", "id", updated.ID, "alias", updated.Alias)
	s.auditList(r, audit.ActionUpdated, id, "", before, updated)
	writeJSON(w, http.StatusOK, newListResponse(updated))
}

// handleDeleteList removes a list. Deleting a missing list succeeds.
func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	before := s.auditBefore(r, id)
	if err := s.store.DeleteDistributionList(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.log.Infow("distribution list deleted", "id", id)
	if before != nil {
		s.auditList(r, audit.ActionDeleted, id, "", before, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}
