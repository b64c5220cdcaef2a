// Package names resolves the ids in parsed membership filters to display names
// from the directory cache.
package names

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/mailist/mailist/internal/directory"
	"github.com/mailist/mailist/internal/filter"
)

// Entry is a filter with its resolved names. Name is nil when the id is not in
// the directory. Roles is only set for group filters and has one element per
// role id, nil where the role is unknown.
type Entry struct {
	Filter filter.Filter
	Name   *string
	Roles  []*string
}

// MarshalJSON flattens the filter fields next to the names.
func (e Entry) MarshalJSON() ([]byte, error) {
	raw, err := filter.MarshalFilter(e.Filter)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber() // keep int64 ids exact
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	fields["name"] = e.Name
	if _, ok := e.Filter.(filter.GroupFilter); ok {
		roles := e.Roles
		if roles == nil {
			roles = []*string{}
		}
		fields["roles"] = roles
	}
	return json.Marshal(fields)
}

// Snapshotter is satisfied by *directory.Cache.
type Snapshotter interface {
	Get(ctx context.Context) (*directory.Snapshot, error)
}

// WithNames parses query and resolves names for each filter. When the query is
// not recognized, ok is false and the directory is not consulted. A failed
// directory refresh is returned as err.
func WithNames(ctx context.Context, dir Snapshotter, query any) (entries []Entry, ok bool, err error) {
	filters, ok := filter.Parse(query)
	if !ok {
		return nil, false, nil
	}
	entries, err = Resolve(ctx, dir, filters)
	if err != nil {
		return nil, true, err
	}
	return entries, true, nil
}

// WithNamesRule is WithNames for an already parsed rule. An empty rule
// resolves to an empty list.
func WithNamesRule(ctx context.Context, dir Snapshotter, rule filter.Rule) ([]Entry, bool, error) {
	if rule.IsEmpty() {
		return []Entry{}, true, nil
	}
	filters, ok := rule.Filters()
	if !ok {
		return nil, false, nil
	}
	entries, err := Resolve(ctx, dir, filters)
	if err != nil {
		return nil, true, err
	}
	return entries, true, nil
}

// Resolve refreshes the directory if needed and names every filter.
func Resolve(ctx context.Context, dir Snapshotter, filters []filter.Filter) ([]Entry, error) {
	snap, err := dir.Get(ctx)
	if err != nil {
		return nil, err
	}
	return Lookup(snap, filters), nil
}

// Lookup names filters against a snapshot. It never fails.
func Lookup(snap *directory.Snapshot, filters []filter.Filter) []Entry {
	entries := make([]Entry, 0, len(filters))
	for _, f := range filters {
		switch v := f.(type) {
		case filter.GroupFilter:
			roles := make([]*string, 0, len(v.RoleIDs))
			for _, roleID := range v.RoleIDs {
				roles = append(roles, found(snap.RoleName(v.GroupID, roleID)))
			}
			entries = append(entries, Entry{Filter: v, Name: found(snap.GroupName(v.GroupID)), Roles: roles})
		case filter.PersonFilter:
			entries = append(entries, Entry{Filter: v, Name: found(snap.PersonName(v.PersonID))})
		case filter.StatusFilter:
			entries = append(entries, Entry{Filter: v, Name: found(snap.StatusName(v.StatusID))})
		}
	}
	return entries
}

func found(name string, ok bool) *string {
	if !ok {
		return nil
	}
	return &name
}
