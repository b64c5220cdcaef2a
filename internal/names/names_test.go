package names

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mailist/mailist/internal/directory"
	"github.com/mailist/mailist/internal/filter"
)

type stubDirectory struct {
	snap  *directory.Snapshot
	err   error
	calls int
}

func (s *stubDirectory) Get(ctx context.Context) (*directory.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func testSnapshot() *directory.Snapshot {
	return &directory.Snapshot{
		Groups: map[int64]directory.GroupEntry{
			12: {Name: "Choir", Roles: map[int64]string{3: "Leader", 4: "Member"}},
		},
		Persons:  map[int64]string{7: "Ada Lovelace"},
		Statuses: map[int64]string{5: "Member"},
	}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestWithNames_ResolvesEveryKind(t *testing.T) {
	dir := &stubDirectory{snap: testSnapshot()}
	query := filter.Build([]filter.Filter{
		filter.GroupFilter{GroupID: 12, RoleIDs: []int64{4, 9}},
		filter.PersonFilter{PersonID: 7},
		filter.StatusFilter{StatusID: 5},
	})

	entries, ok, err := WithNames(context.Background(), dir, query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected query to be recognized")
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	group := entries[0]
	if deref(group.Name) != "Choir" {
		t.Errorf("group name = %s", deref(group.Name))
	}
	if len(group.Roles) != 2 || deref(group.Roles[0]) != "Member" || group.Roles[1] != nil {
		t.Errorf("unexpected roles: %s, %s", deref(group.Roles[0]), deref(group.Roles[1]))
	}
	if deref(entries[1].Name) != "Ada Lovelace" {
		t.Errorf("person name = %s", deref(entries[1].Name))
	}
	if deref(entries[2].Name) != "Member" {
		t.Errorf("status name = %s", deref(entries[2].Name))
	}
}

func TestWithNames_MissingIDsAreNil(t *testing.T) {
	dir := &stubDirectory{snap: testSnapshot()}
	query := filter.Build([]filter.Filter{
		filter.GroupFilter{GroupID: 99, RoleIDs: []int64{3, 4}},
		filter.PersonFilter{PersonID: 1},
		filter.StatusFilter{StatusID: 2},
	})

	entries, ok, err := WithNames(context.Background(), dir, query)
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if entries[0].Name != nil {
		t.Errorf("expected nil group name, got %s", deref(entries[0].Name))
	}
	if len(entries[0].Roles) != 2 || entries[0].Roles[0] != nil || entries[0].Roles[1] != nil {
		t.Error("expected nil role names for an unknown group")
	}
	if entries[1].Name != nil || entries[2].Name != nil {
		t.Error("expected nil names for unknown person and status")
	}
}

func TestWithNames_AdvancedSkipsDirectory(t *testing.T) {
	dir := &stubDirectory{err: errors.New("should not be called")}
	query := map[string]any{"==": []any{map[string]any{"var": "person.email"}, "a@example.org"}}

	entries, ok, err := WithNames(context.Background(), dir, query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || entries != nil {
		t.Errorf("expected unrecognized result, got %v %v", entries, ok)
	}
	if dir.calls != 0 {
		t.Errorf("directory consulted %d times", dir.calls)
	}
}

func TestWithNames_DirectoryFailure(t *testing.T) {
	boom := errors.New("directory down")
	dir := &stubDirectory{err: boom}
	query := filter.Build([]filter.Filter{filter.PersonFilter{PersonID: 7}})

	_, ok, err := WithNames(context.Background(), dir, query)
	if !errors.Is(err, boom) {
		t.Errorf("expected directory error, got %v", err)
	}
	if !ok {
		t.Error("query itself is recognized")
	}
}

func TestWithNamesRule(t *testing.T) {
	dir := &stubDirectory{snap: testSnapshot()}

	entries, ok, err := WithNamesRule(context.Background(), dir, filter.NewRule(nil))
	if err != nil || !ok || len(entries) != 0 {
		t.Errorf("empty rule: entries=%v ok=%v err=%v", entries, ok, err)
	}
	if dir.calls != 0 {
		t.Error("empty rule should not consult the directory")
	}

	entries, ok, err = WithNamesRule(context.Background(), dir, filter.NewRule([]filter.Filter{filter.PersonFilter{PersonID: 7}}))
	if err != nil || !ok || len(entries) != 1 || deref(entries[0].Name) != "Ada Lovelace" {
		t.Errorf("recognized rule: entries=%v ok=%v err=%v", entries, ok, err)
	}

	_, ok, _ = WithNamesRule(context.Background(), dir, filter.ParseRule(map[string]any{"or": []any{}}))
	if ok {
		t.Error("advanced rule should not be resolved")
	}
}

func TestEntry_MarshalJSON(t *testing.T) {
	entries := Lookup(testSnapshot(), []filter.Filter{
		filter.GroupFilter{GroupID: 12, RoleIDs: []int64{3, 8}},
		filter.PersonFilter{PersonID: 404},
	})
	b, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `[{"groupId":12,"kind":"group","name":"Choir","roleIds":[3,8],"roles":["Leader",null]},` +
		`{"kind":"person","name":null,"personId":404}]`
	if string(b) != want {
		t.Errorf("got  %s\nwant %s", b, want)
	}
}
