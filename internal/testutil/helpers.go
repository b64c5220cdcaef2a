package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mailist/mailist/internal/api"
	"github.com/mailist/mailist/internal/directory"
	"github.com/mailist/mailist/internal/logger"
	"github.com/mailist/mailist/internal/store"
)

// Directory is a fixed directory.Source for tests.
type Directory struct {
	Groups   []directory.Group
	Persons  []directory.Person
	Statuses []directory.Status
}

func (d *Directory) ListGroups(ctx context.Context) ([]directory.Group, error) { return d.Groups, nil }

func (d *Directory) ListPersons(ctx context.Context) ([]directory.Person, error) {
	return d.Persons, nil
}

func (d *Directory) ListStatuses(ctx context.Context) ([]directory.Status, error) {
	return d.Statuses, nil
}

// SampleDirectory returns a small directory: group 12 "Choir" with role 3
// "Leader", person 7 "Robert (Bob) Smith" and status 1 "Member".
func SampleDirectory() *Directory {
	return &Directory{
		Groups: []directory.Group{{
			ID:    12,
			Name:  "Choir",
			Roles: []directory.Role{{ID: 1, GroupTypeRoleID: 3, Name: "Leader"}},
		}},
		Persons:  []directory.Person{{ID: 7, FirstName: "Robert", LastName: "Smith", Nickname: "Bob"}},
		Statuses: []directory.Status{{ID: 1, Name: "Member"}},
	}
}

// NewTestServer creates a test server with in-memory store for testing.
// A nil src serves SampleDirectory.
func NewTestServer(t *testing.T, src directory.Source, adminKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	if src == nil {
		src = SampleDirectory()
	}
	memStore := store.NewMemoryStore()
	server := api.NewServer(memStore, directory.NewCache(src), adminKey, logger.Nop())
	return server, memStore
}

// NewHTTPServer starts NewTestServer on a real listener, closed with the test.
func NewHTTPServer(t *testing.T, src directory.Source, adminKey string) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	server, memStore := NewTestServer(t, src, adminKey)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, memStore
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedLists populates the store with test lists.
func SeedLists(ctx context.Context, st store.Store, lists []store.CreateParams) ([]*store.DistributionList, error) {
	out := make([]*store.DistributionList, 0, len(lists))
	for _, l := range lists {
		created, err := st.CreateDistributionList(ctx, l)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}
