package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mailist/mailist/internal/filter"
	"github.com/mailist/mailist/internal/targeting"
)

// Client is an HTTP client for the mailist admin API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// List is a distribution list as returned by the API.
type List struct {
	ID              int64           `json:"id"`
	Alias           string          `json:"alias"`
	Flags           uint32          `json:"flags"`
	SendersQuery    json.RawMessage `json:"sendersQuery"`
	RecipientsQuery json.RawMessage `json:"recipientsQuery"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	SendersState    string          `json:"sendersState"`
	RecipientsState string          `json:"recipientsState"`
}

// CreateListParams contains the fields for a new list.
type CreateListParams struct {
	Alias           string          `json:"alias"`
	Flags           uint32          `json:"flags"`
	SendersQuery    json.RawMessage `json:"sendersQuery,omitempty"`
	RecipientsQuery json.RawMessage `json:"recipientsQuery,omitempty"`
}

// Rule is a rule as returned by the API. Filters is nil for advanced rules.
type Rule struct {
	State   string          `json:"state"`
	Query   json.RawMessage `json:"query"`
	Filters *filter.List    `json:"filters"`
}

// NamedFilter is a filter with the names the directory resolved for it.
type NamedFilter struct {
	Kind     string    `json:"kind"`
	PersonID *int64    `json:"personId,omitempty"`
	GroupID  *int64    `json:"groupId,omitempty"`
	RoleIDs  []int64   `json:"roleIds,omitempty"`
	StatusID *int64    `json:"statusId,omitempty"`
	Name     *string   `json:"name"`
	Roles    []*string `json:"roles,omitempty"`
}

// Names is a rule with resolved names, or the raw query for advanced rules.
type Names struct {
	State   string          `json:"state"`
	Query   json.RawMessage `json:"query,omitempty"`
	Entries []NamedFilter   `json:"entries,omitempty"`
}

// APIError is a non-2xx response with the server's structured error body.
type APIError struct {
	StatusCode int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (status %d", e.StatusCode)
	if e.Code != "" {
		msg += ", " + e.Code
	}
	msg += "): " + e.Message
	for field, problem := range e.Fields {
		msg += fmt.Sprintf("; %s: %s", field, problem)
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// ListLists retrieves all lists
func (c *Client) ListLists(ctx context.Context) ([]List, error) {
	var result struct {
		Lists []List `json:"lists"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/lists", nil, &result); err != nil {
		return nil, err
	}
	return result.Lists, nil
}

// GetList retrieves a single list by id
func (c *Client) GetList(ctx context.Context, id int64) (*List, error) {
	var l List
	if err := c.do(ctx, http.MethodGet, listPath(id), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// FindList resolves a list by numeric id or alias.
func (c *Client) FindList(ctx context.Context, ref string) (*List, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.GetList(ctx, id)
	}
	lists, err := c.ListLists(ctx)
	if err != nil {
		return nil, err
	}
	for i := range lists {
		if lists[i].Alias == ref {
			return &lists[i], nil
		}
	}
	return nil, fmt.Errorf("list not found: %s", ref)
}

// CreateList creates a list
func (c *Client) CreateList(ctx context.Context, params CreateListParams) (*List, error) {
	var l List
	if err := c.do(ctx, http.MethodPost, "/v1/lists", params, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateList changes a list's alias and flags
func (c *Client) UpdateList(ctx context.Context, id int64, alias string, flags uint32) (*List, error) {
	body := map[string]any{"alias": alias, "flags": flags}
	var l List
	if err := c.do(ctx, http.MethodPut, listPath(id), body, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteList deletes a list
func (c *Client) DeleteList(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, listPath(id), nil, nil)
}

// GetRule retrieves the rule in a slot ("senders" or "recipients")
func (c *Client) GetRule(ctx context.Context, id int64, slot string) (*Rule, error) {
	var r Rule
	if err := c.do(ctx, http.MethodGet, rulePath(id, slot), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetNames retrieves the rule in a slot with directory names
func (c *Client) GetNames(ctx context.Context, id int64, slot string) (*Names, error) {
	var n Names
	if err := c.do(ctx, http.MethodGet, rulePath(id, slot)+"/names", nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// SetFilters replaces the rule in a slot with the query built from filters
func (c *Client) SetFilters(ctx context.Context, id int64, slot string, filters []filter.Filter) (*Rule, error) {
	body := map[string]any{"filters": filter.List(filters)}
	var r Rule
	if err := c.do(ctx, http.MethodPut, rulePath(id, slot)+"/filters", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetQuery stores a raw query in a slot. A nil query clears the rule.
func (c *Client) SetQuery(ctx context.Context, id int64, slot string, query json.RawMessage) (*Rule, error) {
	if len(query) == 0 {
		query = json.RawMessage("null")
	}
	var r Rule
	if err := c.do(ctx, http.MethodPut, rulePath(id, slot)+"/query", query, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Evaluate applies query to a member record on the server
func (c *Client) Evaluate(ctx context.Context, query json.RawMessage, m targeting.Member) (bool, error) {
	body := map[string]any{"query": query, "member": m}
	var result struct {
		Matched bool `json:"matched"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/rules/evaluate", body, &result); err != nil {
		return false, err
	}
	return result.Matched, nil
}

func listPath(id int64) string { return "/v1/lists/" + strconv.FormatInt(id, 10) }

func rulePath(id int64, slot string) string { return listPath(id) + "/rules/" + slot }

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(bodyBytes, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(bodyBytes)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
