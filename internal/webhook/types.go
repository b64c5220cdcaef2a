package webhook

import (
	"time"

	"github.com/mailist/mailist/internal/audit"
)

// Request headers sent with every delivery
const (
	SignatureHeader = "X-Mailist-Signature"
	EventHeader     = "X-Mailist-Event"
	DeliveryHeader  = "X-Mailist-Delivery"
)

// Payload is the JSON body POSTed for one change.
type Payload struct {
	Type      string    `json:"event"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Resource  Resource  `json:"resource"`
	Data      Data      `json:"data"`
	Metadata  Metadata  `json:"metadata"`
}

// Resource identifies the changed list
type Resource struct {
	Type string  `json:"type"`
	ID   string  `json:"id"`
	Slot *string `json:"slot,omitempty"`
}

// Data contains the before/after state and changes
type Data struct {
	Before  map[string]any `json:"before,omitempty"`
	After   map[string]any `json:"after,omitempty"`
	Changes map[string]any `json:"changes,omitempty"`
}

// Metadata describes the request that made the change
type Metadata struct {
	Actor     string `json:"actor"`
	IPAddress string `json:"ipAddress,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// EventType names an audit action on the wire, e.g. "list.rule_set".
func EventType(action string) string { return "list." + action }

// NewPayload converts an audit event
func NewPayload(e audit.Event) Payload {
	return Payload{
		Type:      EventType(e.Action),
		ID:        e.ID,
		Timestamp: e.OccurredAt,
		Resource:  Resource{Type: e.ResourceType, ID: e.ResourceID, Slot: e.Slot},
		Data:      Data{Before: e.BeforeState, After: e.AfterState, Changes: e.Changes},
		Metadata: Metadata{
			Actor:     e.Actor.Display,
			IPAddress: e.Source.IPAddress,
			RequestID: e.RequestID,
		},
	}
}
