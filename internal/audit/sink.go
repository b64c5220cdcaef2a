package audit

import (
	"context"
	"sync"

	"github.com/mailist/mailist/internal/logger"
)

// LoggerSink writes events as structured log lines.
type LoggerSink struct {
	log logger.Logger
}

// NewLoggerSink creates a sink that logs through l
func NewLoggerSink(l logger.Logger) *LoggerSink {
	return &LoggerSink{log: l}
}

// Write logs the event at info level
func (s *LoggerSink) Write(ctx context.Context, e Event) error {
	fields := []interface{}{
		"audit_id", e.ID,
		"occurred_at", e.OccurredAt,
		"request_id", e.RequestID,
		"actor", e.Actor.Display,
		"ip_address", e.Source.IPAddress,
		"action", e.Action,
		"resource_type", e.ResourceType,
		"resource_id", e.ResourceID,
		"status", e.Status,
	}
	if e.Slot != nil {
		fields = append(fields, "slot", *e.Slot)
	}
	if e.Changes != nil {
		fields = append(fields, "changes", e.Changes)
	}
	if e.ErrorMessage != nil {
		fields = append(fields, "error", *e.ErrorMessage)
	}
	s.log.Infow("audit", fields...)
	return nil
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemorySink) Write(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of the recorded events in write order.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// MultiSink writes every event to each sink in order. All sinks are tried;
// the first error is returned.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
