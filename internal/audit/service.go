package audit

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mailist/mailist/internal/logger"
)

// Action constants for audit logging
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionRuleSet = "rule_set"
)

// ResourceTypeList is the only audited resource.
const ResourceTypeList = "distribution_list"

// Status constants for audit logging
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// ActorKind constants for audit logging
const (
	ActorKindAdmin  = "admin"
	ActorKindSystem = "system"
)

// Clock interface for testable time operations
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator interface for testable ID generation
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator implements IDGenerator using UUID v4
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string { return uuid.NewString() }

// Actor represents who performed the action
type Actor struct {
	Kind    string `json:"kind"`
	Display string `json:"display"`
}

// Source represents request metadata
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// Event is one audited change to a distribution list.
type Event struct {
	ID           string         `json:"id"`
	OccurredAt   time.Time      `json:"occurred_at"`
	RequestID    string         `json:"request_id"`
	Actor        Actor          `json:"actor"`
	Source       Source         `json:"source"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Slot         *string        `json:"slot,omitempty"`
	BeforeState  map[string]any `json:"before_state,omitempty"`
	AfterState   map[string]any `json:"after_state,omitempty"`
	Changes      map[string]any `json:"changes,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// writeTimeout bounds a single sink write.
const writeTimeout = 5 * time.Second

// Service queues events and writes them to a sink from one background
// worker, so request handlers never wait on the sink.
type Service struct {
	sink   Sink
	clock  Clock
	idgen  IDGenerator
	log    logger.Logger
	queue  chan Event
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once

	dropped atomic.Int64
}

// NewService creates a new audit service
func NewService(sink Sink, clock Clock, idgen IDGenerator, log logger.Logger, queueSize int) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if queueSize < 1 {
		queueSize = 1
	}

	s := &Service{
		sink:   sink,
		clock:  clock,
		idgen:  idgen,
		log:    log,
		queue:  make(chan Event, queueSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *Service) worker() {
	defer close(s.done)
	for {
		select {
		case event := <-s.queue:
			s.write(event)
		case <-s.stopCh:
			// Drain remaining events before stopping
			for {
				select {
				case event := <-s.queue:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.sink.Write(ctx, event); err != nil {
		s.log.Errorw("audit: failed to write event", "id", event.ID, "action", event.Action, "error", err)
	}
}

// Close stops the worker after the queue is drained and waits for it.
// It is safe to call more than once; events logged afterwards are dropped.
func (s *Service) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	<-s.done
	return nil
}

// Log queues an event. A nil Service discards it, as does a full queue.
func (s *Service) Log(event Event) {
	if s == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now()
	}
	if event.ID == "" {
		event.ID = s.idgen.Generate()
	}
	if event.ResourceType == "" {
		event.ResourceType = ResourceTypeList
	}

	select {
	case <-s.stopCh:
		s.dropped.Add(1)
		return
	default:
	}

	select {
	case s.queue <- event:
	default:
		s.dropped.Add(1)
		s.log.Warnw("audit: queue full, dropping event", "resource", event.ResourceID, "action", event.Action)
	}
}

// Dropped returns the number of events discarded so far.
func (s *Service) Dropped() int64 { return s.dropped.Load() }

// ComputeChanges computes the difference between before and after states
func ComputeChanges(before, after map[string]any) map[string]any {
	if before == nil && after == nil {
		return nil
	}
	if before == nil {
		before = make(map[string]any)
	}
	if after == nil {
		after = make(map[string]any)
	}

	changes := make(map[string]any)

	for key, afterVal := range after {
		beforeVal, existedBefore := before[key]

		beforeJSON, _ := json.Marshal(beforeVal)
		afterJSON, _ := json.Marshal(afterVal)

		if !existedBefore || string(beforeJSON) != string(afterJSON) {
			changes[key] = map[string]any{
				"before": beforeVal,
				"after":  afterVal,
			}
		}
	}

	for key, beforeVal := range before {
		if _, existsAfter := after[key]; !existsAfter {
			changes[key] = map[string]any{
				"before": beforeVal,
				"after":  nil,
			}
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}
