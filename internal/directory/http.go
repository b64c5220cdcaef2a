package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultPageSize = 200

// HTTPSource reads the directory from its REST API.
type HTTPSource struct {
	BaseURL    string
	Token      string
	PageSize   int
	HTTPClient *http.Client
}

// NewHTTPSource creates a source for the directory API at baseURL. An empty
// token sends unauthenticated requests.
func NewHTTPSource(baseURL, token string) *HTTPSource {
	return &HTTPSource{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		PageSize: defaultPageSize,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type pagination struct {
	Current  int `json:"current"`
	LastPage int `json:"lastPage"`
}

type page[T any] struct {
	Data []T `json:"data"`
	Meta struct {
		Pagination *pagination `json:"pagination"`
	} `json:"meta"`
}

type apiRole struct {
	ID              int64  `json:"id"`
	GroupTypeRoleID int64  `json:"groupTypeRoleId"`
	Name            string `json:"name"`
	NameTranslated  string `json:"nameTranslated"`
}

type apiGroup struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Roles []apiRole `json:"roles"`
}

type apiPerson struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Nickname  string `json:"nickname"`
}

type apiStatus struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	NameTranslated string `json:"nameTranslated"`
}

func translated(name, nameTranslated string) string {
	if nameTranslated != "" {
		return nameTranslated
	}
	return name
}

// ListGroups fetches every group including its roles.
func (s *HTTPSource) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := getAllPages[apiGroup](ctx, s, "/api/groups", url.Values{"include[]": {"roles"}})
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(rows))
	for _, g := range rows {
		roles := make([]Role, 0, len(g.Roles))
		for _, r := range g.Roles {
			roles = append(roles, Role{
				ID:              r.ID,
				GroupTypeRoleID: r.GroupTypeRoleID,
				Name:            translated(r.Name, r.NameTranslated),
			})
		}
		groups = append(groups, Group{ID: g.ID, Name: g.Name, Roles: roles})
	}
	return groups, nil
}

// ListPersons fetches every person.
func (s *HTTPSource) ListPersons(ctx context.Context) ([]Person, error) {
	rows, err := getAllPages[apiPerson](ctx, s, "/api/persons", nil)
	if err != nil {
		return nil, err
	}
	persons := make([]Person, 0, len(rows))
	for _, p := range rows {
		persons = append(persons, Person{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, Nickname: p.Nickname})
	}
	return persons, nil
}

// ListStatuses fetches the status list. It is not paginated.
func (s *HTTPSource) ListStatuses(ctx context.Context) ([]Status, error) {
	var resp page[apiStatus]
	if err := s.get(ctx, "/api/statuses", nil, &resp); err != nil {
		return nil, err
	}
	statuses := make([]Status, 0, len(resp.Data))
	for _, st := range resp.Data {
		statuses = append(statuses, Status{ID: st.ID, Name: translated(st.Name, st.NameTranslated)})
	}
	return statuses, nil
}

// getAllPages follows pagination metadata until the last page. A response
// without pagination metadata is treated as the only page.
func getAllPages[T any](ctx context.Context, s *HTTPSource, path string, query url.Values) ([]T, error) {
	var all []T
	for pageNo := 1; ; pageNo++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(pageNo))
		q.Set("limit", strconv.Itoa(s.PageSize))

		var resp page[T]
		if err := s.get(ctx, path, q, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)

		p := resp.Meta.Pagination
		if p == nil || p.Current >= p.LastPage || len(resp.Data) == 0 {
			return all, nil
		}
	}
}

func (s *HTTPSource) get(ctx context.Context, path string, query url.Values, out any) error {
	u, err := url.Parse(s.BaseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Login "+s.Token)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Path: path, StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// APIError is returned for non-200 responses from the directory API.
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory API error on %s (status %d): %s", e.Path, e.StatusCode, e.Body)
}
