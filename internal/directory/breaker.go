package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker in front of a Source.
type BreakerConfig struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig trips after three requests with at least half failing
// and probes again after a minute.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.5
		},
	}
}

// ErrBreakerOpen is returned without calling the wrapped source while the
// breaker is open.
var ErrBreakerOpen = errors.New("directory circuit breaker is open")

// BreakerSource guards a Source with a circuit breaker so a failing directory
// is not hammered on every refresh attempt.
type BreakerSource struct {
	source Source
	cb     *gobreaker.CircuitBreaker
}

func NewBreakerSource(src Source, cfg BreakerConfig) *BreakerSource {
	settings := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		OnStateChange: cfg.OnStateChange,
		IsSuccessful:  countsAsSuccess,
	}
	return &BreakerSource{source: src, cb: gobreaker.NewCircuitBreaker(settings)}
}

// countsAsSuccess keeps cancellations out of the failure counts. A refresh
// cancels its sibling fetches when one of them fails, and those must not
// add to the failure that caused it. Deadlines still count.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// State reports the breaker state ("closed", "half-open" or "open").
func (b *BreakerSource) State() string { return b.cb.State().String() }

func (b *BreakerSource) ListGroups(ctx context.Context) ([]Group, error) {
	return execute(ctx, b, func() ([]Group, error) { return b.source.ListGroups(ctx) })
}

func (b *BreakerSource) ListPersons(ctx context.Context) ([]Person, error) {
	return execute(ctx, b, func() ([]Person, error) { return b.source.ListPersons(ctx) })
}

func (b *BreakerSource) ListStatuses(ctx context.Context) ([]Status, error) {
	return execute(ctx, b, func() ([]Status, error) { return b.source.ListStatuses(ctx) })
}

func execute[T any](ctx context.Context, b *BreakerSource, fn func() ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrBreakerOpen, b.cb.Name())
		}
		return nil, err
	}
	rows, _ := result.([]T)
	return rows, nil
}
