package filter

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseRule_States(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		state    RuleState
		empty    bool
		advanced bool
	}{
		{"null", `null`, RuleEmpty, true, false},
		{"blank", ``, RuleEmpty, true, false},
		{"recognized", `{"and": [` + base + `, {"==": [{"var": "person.id"}, "7"]}]}`, RuleRecognized, false, false},
		{"advanced", `{"==": [{"var": "person.email"}, "a@example.org"]}`, RuleAdvanced, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRuleJSON(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rule.State() != tt.state {
				t.Errorf("State() = %v, want %v", rule.State(), tt.state)
			}
			if rule.IsEmpty() != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", rule.IsEmpty(), tt.empty)
			}
			if rule.IsAdvanced() != tt.advanced {
				t.Errorf("IsAdvanced() = %v, want %v", rule.IsAdvanced(), tt.advanced)
			}
			_, ok := rule.Filters()
			if ok != (tt.state == RuleRecognized) {
				t.Errorf("Filters() ok = %v for state %v", ok, tt.state)
			}
		})
	}
}

func TestParseRuleJSON_InvalidJSON(t *testing.T) {
	if _, err := ParseRuleJSON(json.RawMessage(`{"and": [`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNewRule(t *testing.T) {
	filters := []Filter{PersonFilter{PersonID: 1}, GroupFilter{GroupID: 2, RoleIDs: []int64{3}}}
	rule := NewRule(filters)

	if rule.State() != RuleRecognized {
		t.Fatalf("State() = %v, want recognized", rule.State())
	}
	if !reflect.DeepEqual(rule.Query(), Build(filters)) {
		t.Error("query does not match Build output")
	}
	got, ok := rule.Filters()
	if !ok || !reflect.DeepEqual(got, filters) {
		t.Errorf("Filters() = %#v, %v", got, ok)
	}

	// Mutating the caller's slice must not leak into the rule.
	filters[0] = StatusFilter{StatusID: 99}
	got, _ = rule.Filters()
	if got[0] != (PersonFilter{PersonID: 1}) {
		t.Errorf("rule shares storage with caller: %#v", got[0])
	}
}

func TestNewRule_EmptyListHasNoQuery(t *testing.T) {
	rule := NewRule(nil)
	if !rule.IsEmpty() || rule.IsAdvanced() {
		t.Errorf("expected empty rule, got state %v", rule.State())
	}
	if rule.Query() != nil {
		t.Errorf("Query() = %#v, want nil", rule.Query())
	}
	b, err := json.Marshal(rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("marshal = %s, want null", b)
	}
}

func TestRule_JSONRoundTrip(t *testing.T) {
	original := NewRule([]Filter{StatusFilter{StatusID: 4}, PersonFilter{PersonID: 8}})
	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Rule
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := decoded.Filters()
	want, _ := original.Filters()
	if !ok || !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestList_JSON(t *testing.T) {
	in := `[{"kind":"person","personId":7},{"kind":"group","groupId":12},{"kind":"status","statusId":5}]`
	var list List
	if err := json.Unmarshal([]byte(in), &list); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := List{PersonFilter{PersonID: 7}, GroupFilter{GroupID: 12}, StatusFilter{StatusID: 5}}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("got %#v, want %#v", list, want)
	}

	out, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantOut := `[{"kind":"person","personId":7},{"groupId":12,"kind":"group","roleIds":[]},{"kind":"status","statusId":5}]`
	if string(out) != wantOut {
		t.Errorf("got  %s\nwant %s", out, wantOut)
	}
}

func TestList_UnknownKind(t *testing.T) {
	var list List
	err := json.Unmarshal([]byte(`[{"kind":"team","teamId":1}]`), &list)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	err = json.Unmarshal([]byte(`[{"kind":"person"}]`), &list)
	if err == nil {
		t.Error("expected error for missing personId")
	}
}
