// Package filter translates mailing-list membership rules between a small typed
// vocabulary (person, group with roles, status) and the JSON Logic query tree the
// directory backend evaluates.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies which variant a Filter is.
type Kind string

const (
	KindPerson Kind = "person"
	KindGroup  Kind = "group"
	KindStatus Kind = "status"
)

// Filter is one membership condition. It is implemented only by PersonFilter,
// GroupFilter and StatusFilter.
type Filter interface {
	Kind() Kind
	clause() []any
}

// PersonFilter matches exactly one person.
type PersonFilter struct {
	PersonID int64
}

// GroupFilter matches active members of a group. When RoleIDs is non-empty the
// member must hold one of those roles. Order is kept for round-trip stability.
// A group without roles is decoded with nil RoleIDs; an empty slice builds the
// same tree.
type GroupFilter struct {
	GroupID int64
	RoleIDs []int64
}

// StatusFilter matches every person with the given status.
type StatusFilter struct {
	StatusID int64
}

func (PersonFilter) Kind() Kind { return KindPerson }
func (GroupFilter) Kind() Kind  { return KindGroup }
func (StatusFilter) Kind() Kind { return KindStatus }

// ErrUnknownKind is returned when decoding a filter whose kind is not recognised.
var ErrUnknownKind = errors.New("unknown filter kind")

// wireFilter is the JSON shape used by the API and CLI.
type wireFilter struct {
	Kind     Kind    `json:"kind"`
	PersonID *int64  `json:"personId,omitempty"`
	GroupID  *int64  `json:"groupId,omitempty"`
	RoleIDs  []int64 `json:"roleIds,omitempty"`
	StatusID *int64  `json:"statusId,omitempty"`
}

// List is an ordered filter sequence with a JSON encoding keyed by "kind".
type List []Filter

// MarshalJSON implements json.Marshaler.
func (l List) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for _, f := range l {
		b, err := MarshalFilter(f)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(List, 0, len(raw))
	for i, r := range raw {
		f, err := UnmarshalFilter(r)
		if err != nil {
			return fmt.Errorf("filter[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	*l = out
	return nil
}

// MarshalFilter encodes a single filter. Group filters always carry a roleIds
// array, empty when unrestricted.
func MarshalFilter(f Filter) ([]byte, error) {
	switch v := f.(type) {
	case PersonFilter:
		return json.Marshal(map[string]any{"kind": KindPerson, "personId": v.PersonID})
	case GroupFilter:
		roles := v.RoleIDs
		if roles == nil {
			roles = []int64{}
		}
		return json.Marshal(map[string]any{"kind": KindGroup, "groupId": v.GroupID, "roleIds": roles})
	case StatusFilter:
		return json.Marshal(map[string]any{"kind": KindStatus, "statusId": v.StatusID})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, f)
	}
}

// UnmarshalFilter decodes a single filter, requiring the id field its kind needs.
func UnmarshalFilter(data []byte) (Filter, error) {
	var w wireFilter
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	switch w.Kind {
	case KindPerson:
		if w.PersonID == nil {
			return nil, errors.New("person filter requires personId")
		}
		return PersonFilter{PersonID: *w.PersonID}, nil
	case KindGroup:
		if w.GroupID == nil {
			return nil, errors.New("group filter requires groupId")
		}
		var roles []int64
		if len(w.RoleIDs) > 0 {
			roles = w.RoleIDs
		}
		return GroupFilter{GroupID: *w.GroupID, RoleIDs: roles}, nil
	case KindStatus:
		if w.StatusID == nil {
			return nil, errors.New("status filter requires statusId")
		}
		return StatusFilter{StatusID: *w.StatusID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, w.Kind)
	}
}
