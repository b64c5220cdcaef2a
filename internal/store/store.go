package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by Store implementations.
var (
	ErrNotFound     = errors.New("distribution list not found")
	ErrAliasTaken   = errors.New("alias already in use")
	ErrInvalidQuery = errors.New("query is not valid JSON")
	ErrInvalidSlot  = errors.New("invalid rule slot")
)

// Store defines the interface for distribution list persistence.
// Implementations must be thread-safe and support concurrent access.
// Rule queries are stored opaquely; a nil query is stored as SQL/JSON null.
type Store interface {
	// ListDistributionLists returns all lists ordered by id.
	ListDistributionLists(ctx context.Context) ([]DistributionList, error)

	// GetDistributionList returns ErrNotFound for an unknown id.
	GetDistributionList(ctx context.Context, id int64) (*DistributionList, error)

	// GetDistributionListByAlias returns ErrNotFound for an unknown alias.
	GetDistributionListByAlias(ctx context.Context, alias string) (*DistributionList, error)

	// CreateDistributionList returns ErrAliasTaken if the alias exists.
	CreateDistributionList(ctx context.Context, params CreateParams) (*DistributionList, error)

	// UpdateDistributionList changes alias and flags, leaving both queries alone.
	UpdateDistributionList(ctx context.Context, id int64, params UpdateParams) (*DistributionList, error)

	// SetQuery replaces one rule slot. A nil or "null" query clears it.
	SetQuery(ctx context.Context, id int64, slot Slot, query json.RawMessage) (*DistributionList, error)

	// DeleteDistributionList is idempotent.
	DeleteDistributionList(ctx context.Context, id int64) error

	// Close releases any resources held by the store.
	Close() error
}

// Slot names one of the two rule positions on a list.
type Slot string

const (
	// SlotSenders controls who may send to the list. An empty rule lets
	// everybody send.
	SlotSenders Slot = "senders"
	// SlotRecipients controls who receives mail sent to the list. An empty
	// rule means nobody does.
	SlotRecipients Slot = "recipients"
)

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotSenders, SlotRecipients:
		return Slot(s), nil
	default:
		return "", fmt.Errorf("%w: %q (want senders or recipients)", ErrInvalidSlot, s)
	}
}

// Flags is the list's permission bit set. It is stored and returned unchanged.
type Flags uint32

// DistributionList is a mailing list with its two membership rules.
type DistributionList struct {
	ID              int64           `json:"id"`
	Alias           string          `json:"alias"`
	Flags           Flags           `json:"flags"`
	SendersQuery    json.RawMessage `json:"sendersQuery"`
	RecipientsQuery json.RawMessage `json:"recipientsQuery"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Query returns the raw query stored in slot.
func (d *DistributionList) Query(slot Slot) json.RawMessage {
	if slot == SlotSenders {
		return d.SendersQuery
	}
	return d.RecipientsQuery
}

// CreateParams contains the parameters for creating a list.
type CreateParams struct {
	Alias           string          `json:"alias"`
	Flags           Flags           `json:"flags"`
	SendersQuery    json.RawMessage `json:"sendersQuery,omitempty"`
	RecipientsQuery json.RawMessage `json:"recipientsQuery,omitempty"`
}

// UpdateParams contains the parameters for updating a list's metadata.
type UpdateParams struct {
	Alias string `json:"alias"`
	Flags Flags  `json:"flags"`
}

// normalizeQuery maps empty input and JSON null to nil and compacts everything
// else, rejecting invalid JSON.
func normalizeQuery(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
