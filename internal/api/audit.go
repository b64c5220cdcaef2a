package api

import (
	"encoding/json"
	"net/http"

	"github.com/mailist/mailist/internal/audit"
	"github.com/mailist/mailist/internal/store"
)

// listState renders a list for the audit trail, queries as trees.
func listState(l *store.DistributionList) map[string]any {
	if l == nil {
		return nil
	}
	return map[string]any{
		"alias":           l.Alias,
		"flags":           l.Flags,
		"sendersQuery":    decodeTree(l.SendersQuery),
		"recipientsQuery": decodeTree(l.RecipientsQuery),
	}
}

func decodeTree(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return string(raw)
	}
	return tree
}

// auditBefore loads the list as it is before a change. It returns nil when
// auditing is off or the list cannot be read.
func (s *Server) auditBefore(r *http.Request, id int64) *store.DistributionList {
	if s.audit == nil {
		return nil
	}
	l, err := s.store.GetDistributionList(r.Context(), id)
	if err != nil {
		return nil
	}
	return l
}

func (s *Server) auditList(r *http.Request, action string, id int64, slot store.Slot, before, after *store.DistributionList) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.NewEventBuilder(r).
		ForList(id).
		WithAction(action).
		WithSlot(string(slot)).
		WithBeforeState(listState(before)).
		WithAfterState(listState(after)).
		Build())
}
