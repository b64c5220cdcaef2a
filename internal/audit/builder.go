package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mailist/mailist/internal/auth"
)

// EventBuilder provides a fluent API for constructing audit events.
//
//	event := audit.NewEventBuilder(r).
//		ForList(id).
//		WithAction(audit.ActionUpdated).
//		WithBeforeState(before).
//		WithAfterState(after).
//		Build()
type EventBuilder struct {
	event Event
}

// NewEventBuilder creates a builder carrying the request id, the caller and
// the client address of r.
func NewEventBuilder(r *http.Request) *EventBuilder {
	actor := Actor{Kind: ActorKindSystem, Display: "system"}
	if a, ok := auth.GetActorFromContext(r.Context()); ok {
		actor = Actor{Kind: ActorKindAdmin, Display: a}
	}

	return &EventBuilder{
		event: Event{
			RequestID: middleware.GetReqID(r.Context()),
			Actor:     actor,
			Source: Source{
				IPAddress: auth.GetIPAddress(r),
				UserAgent: r.UserAgent(),
			},
			ResourceType: ResourceTypeList,
			Status:       StatusSuccess,
		},
	}
}

// ForList sets the audited list id
func (b *EventBuilder) ForList(id int64) *EventBuilder {
	b.event.ResourceID = strconv.FormatInt(id, 10)
	return b
}

// WithAction sets the action for the event
func (b *EventBuilder) WithAction(action string) *EventBuilder {
	b.event.Action = action
	return b
}

// WithSlot records which rule slot changed
func (b *EventBuilder) WithSlot(slot string) *EventBuilder {
	if slot != "" {
		b.event.Slot = &slot
	}
	return b
}

// WithBeforeState sets the before state for the event.
func (b *EventBuilder) WithBeforeState(state map[string]any) *EventBuilder {
	b.event.BeforeState = state
	return b
}

// WithAfterState sets the after state for the event.
func (b *EventBuilder) WithAfterState(state map[string]any) *EventBuilder {
	b.event.AfterState = state
	return b
}

// WithChanges sets the changes; by default Build derives them from the states.
func (b *EventBuilder) WithChanges(changes map[string]any) *EventBuilder {
	b.event.Changes = changes
	return b
}

// Failure marks the event as failed and sets an error message.
func (b *EventBuilder) Failure(errorMsg string) *EventBuilder {
	b.event.Status = StatusFailure
	if errorMsg != "" {
		b.event.ErrorMessage = &errorMsg
	}
	return b
}

// Build returns the event, computing Changes when none were set.
func (b *EventBuilder) Build() Event {
	e := b.event
	if e.Changes == nil && (e.BeforeState != nil || e.AfterState != nil) {
		e.Changes = ComputeChanges(e.BeforeState, e.AfterState)
	}
	return e
}
