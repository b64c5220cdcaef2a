package filter

import (
	"bytes"
	"encoding/json"
)

// RuleState distinguishes the three things a stored query can mean.
type RuleState int

const (
	// RuleEmpty has no query at all.
	RuleEmpty RuleState = iota
	// RuleAdvanced has a query outside the fixed grammar.
	RuleAdvanced
	// RuleRecognized has a query whose filters are known.
	RuleRecognized
)

func (s RuleState) String() string {
	switch s {
	case RuleEmpty:
		return "empty"
	case RuleAdvanced:
		return "advanced"
	case RuleRecognized:
		return "recognized"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s RuleState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Rule is an immutable pairing of a query tree and, when the tree is
// recognized, its filters. Filters are non-nil exactly when the state is
// RuleRecognized, or when an empty list was passed to NewRule.
type Rule struct {
	query   any
	filters []Filter
}

// ParseRule wraps an externally supplied tree.
func ParseRule(query any) Rule {
	if query == nil {
		return Rule{}
	}
	filters, ok := Parse(query)
	if !ok {
		return Rule{query: query}
	}
	return Rule{query: query, filters: filters}
}

// ParseRuleJSON wraps a stored JSON tree. An empty or null value is an empty
// rule; invalid JSON is an error.
func ParseRuleJSON(raw json.RawMessage) (Rule, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Rule{}, nil
	}
	var query any
	if err := json.Unmarshal(trimmed, &query); err != nil {
		return Rule{}, err
	}
	return ParseRule(query), nil
}

// NewRule builds the query for filters. The filters are stored as given and
// not re-parsed.
func NewRule(filters []Filter) Rule {
	stored := make([]Filter, len(filters))
	copy(stored, filters)
	return Rule{query: Build(filters), filters: stored}
}

// Query returns the raw tree, nil for an empty rule.
func (r Rule) Query() any { return r.query }

// Filters returns the parsed filters. ok is false for advanced rules.
func (r Rule) Filters() (filters []Filter, ok bool) {
	if r.filters == nil {
		return nil, false
	}
	out := make([]Filter, len(r.filters))
	copy(out, r.filters)
	return out, true
}

// IsEmpty reports whether the rule has no query.
func (r Rule) IsEmpty() bool { return r.query == nil }

// IsAdvanced reports whether the rule has a query the grammar does not cover.
func (r Rule) IsAdvanced() bool { return r.query != nil && r.filters == nil }

// State reports the rule's state.
func (r Rule) State() RuleState {
	switch {
	case r.IsEmpty():
		return RuleEmpty
	case r.IsAdvanced():
		return RuleAdvanced
	default:
		return RuleRecognized
	}
}

// MarshalJSON encodes the query tree, null for an empty rule.
func (r Rule) MarshalJSON() ([]byte, error) { return json.Marshal(r.query) }

// UnmarshalJSON parses a stored query tree.
func (r *Rule) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRuleJSON(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
