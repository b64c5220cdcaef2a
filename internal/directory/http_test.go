package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func newDirectoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/groups", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("include[]"); got != "roles" {
			t.Errorf("include[] = %q, want roles", got)
		}
		if got := r.Header.Get("Authorization"); got != "Login secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"data":[{"id":1,"name":"Choir","roles":[{"id":10,"groupTypeRoleId":3,"name":"leader","nameTranslated":"Leader"}]}],
				"meta":{"pagination":{"total":2,"limit":1,"current":1,"lastPage":2}}}`)
		case "2":
			fmt.Fprint(w, `{"data":[{"id":2,"name":"Youth","roles":[]}],
				"meta":{"pagination":{"total":2,"limit":1,"current":2,"lastPage":2}}}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/api/persons", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":7,"firstName":"Ada","lastName":"Lovelace","nickname":""}],
			"meta":{"pagination":{"total":1,"limit":200,"current":1,"lastPage":1}}}`)
	})
	mux.HandleFunc("/api/statuses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":5,"name":"member","nameTranslated":"Member"}]}`)
	})
	return httptest.NewServer(mux)
}

func TestHTTPSource_FollowsPagination(t *testing.T) {
	srv := newDirectoryServer(t)
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", "secret")
	src.PageSize = 1

	groups, err := src.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "Choir" || len(groups[0].Roles) != 1 {
		t.Errorf("unexpected first group: %+v", groups[0])
	}
	if r := groups[0].Roles[0]; r.GroupTypeRoleID != 3 || r.Name != "Leader" {
		t.Errorf("unexpected role: %+v", r)
	}
}

func TestHTTPSource_PersonsAndStatuses(t *testing.T) {
	srv := newDirectoryServer(t)
	defer srv.Close()
	src := NewHTTPSource(srv.URL, "secret")

	persons, err := src.ListPersons(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(persons) != 1 || persons[0].DisplayName() != "Ada Lovelace" {
		t.Errorf("unexpected persons: %+v", persons)
	}

	statuses, err := src.ListStatuses(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Name != "Member" {
		t.Errorf("unexpected statuses: %+v", statuses)
	}
}

func TestHTTPSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, "").ListStatuses(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}

func TestHTTPSource_WithCache(t *testing.T) {
	srv := newDirectoryServer(t)
	defer srv.Close()

	cache := NewCache(NewHTTPSource(srv.URL, "secret"))
	snap, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, _ := snap.RoleName(1, 3); name != "Leader" {
		t.Errorf("RoleName(1, 3) = %q", name)
	}
	if name, _ := snap.StatusName(5); name != "Member" {
		t.Errorf("StatusName(5) = %q", name)
	}
}

type failingSource struct {
	fakeSource
	err error
}

func (f *failingSource) ListStatuses(ctx context.Context) ([]Status, error) {
	f.calls.Add(1)
	return nil, f.err
}

func TestBreakerSource_OpensAfterFailures(t *testing.T) {
	boom := errors.New("boom")
	src := &failingSource{err: boom}
	cfg := DefaultBreakerConfig("directory-test")
	cfg.Timeout = time.Hour
	b := NewBreakerSource(src, cfg)

	for i := 0; i < 3; i++ {
		if _, err := b.ListStatuses(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected wrapped error, got %v", i, err)
		}
	}
	if b.State() != gobreaker.StateOpen.String() {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	_, err := b.ListStatuses(context.Background())
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
	if got := src.calls.Load(); got != 3 {
		t.Errorf("open breaker must not call the source, got %d calls", got)
	}
}

func TestBreakerSource_PassesThrough(t *testing.T) {
	b := NewBreakerSource(newFakeSource(), DefaultBreakerConfig("directory-ok"))
	persons, err := b.ListPersons(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(persons) != 2 {
		t.Errorf("expected 2 persons, got %d", len(persons))
	}
}

// flakySource fails ListGroups once. While the failure is pending the other
// fetches block until their context ends, as slow HTTP calls would.
type flakySource struct {
	fakeSource
	failed atomic.Bool
}

func (f *flakySource) ListGroups(ctx context.Context) ([]Group, error) {
	f.calls.Add(1)
	if f.failed.CompareAndSwap(false, true) {
		return nil, errors.New("groups: 500")
	}
	return f.groups, nil
}

func (f *flakySource) ListPersons(ctx context.Context) ([]Person, error) {
	if !f.failed.Load() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.persons, nil
}

func (f *flakySource) ListStatuses(ctx context.Context) ([]Status, error) {
	if !f.failed.Load() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.statuses, nil
}

func TestBreakerSource_CancelledSiblingsDoNotTrip(t *testing.T) {
	sample := newFakeSource()
	src := &flakySource{}
	src.groups, src.persons, src.statuses = sample.groups, sample.persons, sample.statuses
	cfg := DefaultBreakerConfig("directory-flaky")
	cfg.Timeout = time.Hour
	b := NewBreakerSource(src, cfg)
	cache := NewCache(b)

	if err := cache.RefreshIfInvalid(context.Background()); err == nil {
		t.Fatal("expected the first refresh to fail")
	}
	if b.State() != gobreaker.StateClosed.String() {
		t.Fatalf("one failed refresh must not open the breaker, got %s", b.State())
	}

	if err := cache.RefreshIfInvalid(context.Background()); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("expected groups to be fetched twice, got %d", got)
	}
	if name, _ := cache.Snapshot().GroupName(12); name != "Choir" {
		t.Errorf("GroupName(12) = %q", name)
	}
}

func TestCountsAsSuccess(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, true},
		{context.Canceled, true},
		{fmt.Errorf("list persons: %w", context.Canceled), true},
		{context.DeadlineExceeded, false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := countsAsSuccess(tt.err); got != tt.want {
			t.Errorf("countsAsSuccess(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
