package filter

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("invalid test JSON: %v", err)
	}
	return v
}

const base = `{"==": [{"var": "person.isArchived"}, 0]}, {"isnull": [{"var": "person.dateOfDeath"}]}`

func TestParse_GroupWithRoles(t *testing.T) {
	tree := decode(t, `{"and": [`+base+`,
		{"==": [{"var": "ctgroup.id"}, "12"]},
		{"==": [{"var": "groupmember.groupMemberStatus"}, "active"]},
		{"oneof": [{"var": "role.id"}, ["3", "4"]]}
	]}`)

	filters, ok := Parse(tree)
	if !ok {
		t.Fatal("expected tree to be recognized")
	}
	want := []Filter{GroupFilter{GroupID: 12, RoleIDs: []int64{3, 4}}}
	if !reflect.DeepEqual(filters, want) {
		t.Errorf("got %#v, want %#v", filters, want)
	}
}

func TestParse_SingleClauses(t *testing.T) {
	tests := []struct {
		name string
		tail string
		want Filter
	}{
		{"person", `{"==": [{"var": "person.id"}, "7"]}`, PersonFilter{PersonID: 7}},
		{"status", `{"==": [{"var": "person.statusId"}, "5"]}`, StatusFilter{StatusID: 5}},
		{
			"group without roles",
			`{"==": [{"var": "ctgroup.id"}, "9"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}`,
			GroupFilter{GroupID: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, ok := Parse(decode(t, `{"and": [`+base+`, `+tt.tail+`]}`))
			if !ok {
				t.Fatal("expected tree to be recognized")
			}
			if !reflect.DeepEqual(filters, []Filter{tt.want}) {
				t.Errorf("got %#v, want %#v", filters, tt.want)
			}
		})
	}
}

func TestParse_OrOfAlternatives(t *testing.T) {
	tree := decode(t, `{"and": [`+base+`, {"or": [
		{"and": [{"==": [{"var": "person.statusId"}, "5"]}]},
		{"and": [{"==": [{"var": "person.id"}, "9"]}]},
		{"and": [{"==": [{"var": "ctgroup.id"}, "1"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}]}
	]}]}`)

	filters, ok := Parse(tree)
	if !ok {
		t.Fatal("expected tree to be recognized")
	}
	want := []Filter{
		StatusFilter{StatusID: 5},
		PersonFilter{PersonID: 9},
		GroupFilter{GroupID: 1},
	}
	if !reflect.DeepEqual(filters, want) {
		t.Errorf("got %#v, want %#v", filters, want)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		tree string
	}{
		{"null", `null`},
		{"not an object", `[1, 2]`},
		{"missing base conditions", `{"and": [{"==": [{"var": "person.id"}, "7"]}]}`},
		{"archived not zero", `{"and": [{"==": [{"var": "person.isArchived"}, 1]}, {"isnull": [{"var": "person.dateOfDeath"}]}, {"==": [{"var": "person.id"}, "7"]}]}`},
		{"base conditions swapped", `{"and": [{"isnull": [{"var": "person.dateOfDeath"}]}, {"==": [{"var": "person.isArchived"}, 0]}, {"==": [{"var": "person.id"}, "7"]}]}`},
		{"no tail", `{"and": [` + base + `]}`},
		{"trailing element after group", `{"and": [` + base + `, {"==": [{"var": "ctgroup.id"}, "1"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}, {"oneof": [{"var": "role.id"}, ["3"]]}, {"==": [{"var": "person.id"}, "7"]}]}`},
		{"group member inactive", `{"and": [` + base + `, {"==": [{"var": "ctgroup.id"}, "1"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "waiting"]}]}`},
		{"group followed by non-oneof", `{"and": [` + base + `, {"==": [{"var": "ctgroup.id"}, "1"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}, {"==": [{"var": "person.id"}, "7"]}]}`},
		{"two persons without or", `{"and": [` + base + `, {"==": [{"var": "person.id"}, "7"]}, {"==": [{"var": "person.id"}, "8"]}]}`},
		{"numeric id instead of string", `{"and": [` + base + `, {"==": [{"var": "person.id"}, 7]}]}`},
		{"non-integer id", `{"and": [` + base + `, {"==": [{"var": "person.id"}, "7abc"]}]}`},
		{"negative id", `{"and": [` + base + `, {"==": [{"var": "person.id"}, "-5"]}]}`},
		{"zero id", `{"and": [` + base + `, {"==": [{"var": "person.statusId"}, "0"]}]}`},
		{"signed id", `{"and": [` + base + `, {"==": [{"var": "person.id"}, "+5"]}]}`},
		{"negative group id", `{"and": [` + base + `, {"==": [{"var": "ctgroup.id"}, "-1"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}]}`},
		{"zero role id", `{"and": [` + base + `, {"==": [{"var": "ctgroup.id"}, "1"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}, {"oneof": [{"var": "role.id"}, ["0"]]}]}`},
		{"non-integer role id", `{"and": [` + base + `, {"==": [{"var": "ctgroup.id"}, "1"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}, {"oneof": [{"var": "role.id"}, ["x"]]}]}`},
		{"unknown variable", `{"and": [` + base + `, {"==": [{"var": "person.email"}, "a@b.c"]}]}`},
		{"unsupported operator", `{"and": [` + base + `, {"!=": [{"var": "person.id"}, "7"]}]}`},
		{"extra key on node", `{"and": [` + base + `, {"==": [{"var": "person.id"}, "7"], "x": 1}]}`},
		{"or with bad alternative", `{"and": [` + base + `, {"or": [{"and": [{"==": [{"var": "person.id"}, "7"]}]}, {"==": [{"var": "person.id"}, "8"]}]}]}`},
		{"or with unknown clause", `{"and": [` + base + `, {"or": [{"and": [{"==": [{"var": "person.id"}, "7"]}]}, {"and": [{"in": ["a", "b"]}]}]}]}`},
		{"empty or", `{"and": [` + base + `, {"or": []}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if filters, ok := Parse(decode(t, tt.tree)); ok {
				t.Errorf("expected unrecognized, got %#v", filters)
			}
		})
	}
}

func TestBuild_Empty(t *testing.T) {
	if got := Build(nil); got != nil {
		t.Errorf("Build(nil) = %#v, want nil", got)
	}
	if got := Build([]Filter{}); got != nil {
		t.Errorf("Build([]) = %#v, want nil", got)
	}

	raw, err := BuildJSON(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != "null" {
		t.Errorf("BuildJSON(nil) = %s, want null", raw)
	}
}

func TestBuild_SingleFilterIsFlattened(t *testing.T) {
	got := Build([]Filter{PersonFilter{PersonID: 7}})
	want := decode(t, `{"and": [`+base+`, {"==": [{"var": "person.id"}, "7"]}]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestBuild_GroupOmitsRolesWhenEmpty(t *testing.T) {
	got := Build([]Filter{GroupFilter{GroupID: 4}})
	want := decode(t, `{"and": [`+base+`, {"==": [{"var": "ctgroup.id"}, "4"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}

	got = Build([]Filter{GroupFilter{GroupID: 4, RoleIDs: []int64{8, 2}}})
	want = decode(t, `{"and": [`+base+`, {"==": [{"var": "ctgroup.id"}, "4"]}, {"==": [{"var": "groupmember.groupMemberStatus"}, "active"]}, {"oneof": [{"var": "role.id"}, ["8", "2"]]}]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestBuild_MultipleFiltersAreOred(t *testing.T) {
	got := Build([]Filter{StatusFilter{StatusID: 5}, PersonFilter{PersonID: 9}})
	want := decode(t, `{"and": [`+base+`, {"or": [
		{"and": [{"==": [{"var": "person.statusId"}, "5"]}]},
		{"and": [{"==": [{"var": "person.id"}, "9"]}]}
	]}]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestBuild_WireKeywords(t *testing.T) {
	raw, err := BuildJSON([]Filter{GroupFilter{GroupID: 12, RoleIDs: []int64{3}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"and":[{"==":[{"var":"person.isArchived"},0]},{"isnull":[{"var":"person.dateOfDeath"}]},` +
		`{"==":[{"var":"ctgroup.id"},"12"]},{"==":[{"var":"groupmember.groupMemberStatus"},"active"]},` +
		`{"oneof":[{"var":"role.id"},["3"]]}]}`
	if string(raw) != want {
		t.Errorf("got  %s\nwant %s", raw, want)
	}
}

func TestRoundTrip_FiltersSurviveBuildAndParse(t *testing.T) {
	cases := [][]Filter{
		{PersonFilter{PersonID: 1}},
		{StatusFilter{StatusID: 2}},
		{GroupFilter{GroupID: 3}},
		{GroupFilter{GroupID: 3, RoleIDs: []int64{10, 4, 7}}},
		{PersonFilter{PersonID: 1}, StatusFilter{StatusID: 2}},
		{
			GroupFilter{GroupID: 30, RoleIDs: []int64{1}},
			PersonFilter{PersonID: 9000000000},
			GroupFilter{GroupID: 31},
			StatusFilter{StatusID: 6},
		},
	}

	for _, filters := range cases {
		got, ok := Parse(Build(filters))
		if !ok {
			t.Errorf("Parse(Build(%v)) was not recognized", filters)
			continue
		}
		if !reflect.DeepEqual(got, filters) {
			t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, filters)
		}

		// The same must hold after going through the wire.
		raw, err := BuildJSON(filters)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, ok = ParseJSON(raw)
		if !ok || !reflect.DeepEqual(got, filters) {
			t.Errorf("JSON round trip mismatch for %s", raw)
		}
	}
}

func TestRoundTrip_GroupWithoutRoles(t *testing.T) {
	unset := Build([]Filter{GroupFilter{GroupID: 3}})
	empty := Build([]Filter{GroupFilter{GroupID: 3, RoleIDs: []int64{}}})
	if !reflect.DeepEqual(unset, empty) {
		t.Fatalf("nil and empty roles built different trees:\n%#v\n%#v", unset, empty)
	}

	got, ok := Parse(unset)
	if !ok {
		t.Fatal("expected tree to be recognized")
	}
	want := []Filter{GroupFilter{GroupID: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestRoundTrip_CanonicalTree(t *testing.T) {
	// Non-canonical but equivalent: single alternative wrapped in or, leading zero on an id.
	tree := decode(t, `{"and": [`+base+`, {"or": [{"and": [{"==": [{"var": "person.id"}, "007"]}]}]}]}`)
	filters, ok := Parse(tree)
	if !ok {
		t.Fatal("expected tree to be recognized")
	}
	want := decode(t, `{"and": [`+base+`, {"==": [{"var": "person.id"}, "7"]}]}`)
	if got := Build(filters); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}

	canonical := Build([]Filter{StatusFilter{StatusID: 3}, GroupFilter{GroupID: 2, RoleIDs: []int64{5}}})
	filters, ok = Parse(canonical)
	if !ok {
		t.Fatal("expected canonical tree to be recognized")
	}
	if got := Build(filters); !reflect.DeepEqual(got, canonical) {
		t.Errorf("canonical tree changed: %#v", got)
	}
}

func TestParse_AcceptsIntegerZeroLiteral(t *testing.T) {
	tree := map[string]any{"and": []any{
		map[string]any{"==": []any{map[string]any{"var": "person.isArchived"}, 0}},
		map[string]any{"isnull": []any{map[string]any{"var": "person.dateOfDeath"}}},
		map[string]any{"==": []any{map[string]any{"var": "person.id"}, "3"}},
	}}
	filters, ok := Parse(tree)
	if !ok || !reflect.DeepEqual(filters, []Filter{PersonFilter{PersonID: 3}}) {
		t.Errorf("got %#v, %v", filters, ok)
	}
}
