package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mailist/mailist/internal/audit"
	"github.com/mailist/mailist/internal/logger"
)

// maxResponseBodySize limits how much of a failed response is logged
const maxResponseBodySize = 1024

// Sink delivers audit events to one URL. It implements audit.Sink and runs
// on the audit worker, so deliveries are sequential.
type Sink struct {
	URL        string
	Secret     string
	MaxRetries int
	// Backoff is the wait before the first retry; it doubles per attempt.
	Backoff    time.Duration
	HTTPClient *http.Client

	log logger.Logger
}

// NewSink creates a sink posting to url, signing with secret.
func NewSink(url, secret string, maxRetries int, log logger.Logger) *Sink {
	if log == nil {
		log = logger.Nop()
	}
	return &Sink{
		URL:        url,
		Secret:     secret,
		MaxRetries: maxRetries,
		Backoff:    time.Second,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Write delivers e, retrying failures with exponential backoff until
// MaxRetries is exhausted or ctx ends.
func (s *Sink) Write(ctx context.Context, e audit.Event) error {
	payload, err := json.Marshal(NewPayload(e))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	signature := ComputeHMAC(payload, s.Secret)
	deliveryID := uuid.NewString()
	eventType := EventType(e.Action)

	backoff := s.Backoff
	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook delivery %s abandoned: %w (last error: %v)", deliveryID, ctx.Err(), lastErr)
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		start := time.Now()
		lastErr = s.deliver(ctx, payload, signature, eventType, deliveryID)
		if lastErr == nil {
			s.log.Debugw("webhook delivered", "delivery", deliveryID, "event", eventType,
				"attempt", attempt+1, "duration_ms", time.Since(start).Milliseconds())
			return nil
		}
		s.log.Warnw("webhook delivery failed", "delivery", deliveryID, "event", eventType,
			"attempt", attempt+1, "max_attempts", s.MaxRetries+1, "error", lastErr)
	}
	return fmt.Errorf("webhook delivery %s failed after %d attempt(s): %w", deliveryID, s.MaxRetries+1, lastErr)
}

func (s *Sink) deliver(ctx context.Context, payload []byte, signature, eventType, deliveryID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)
	req.Header.Set(EventHeader, eventType)
	req.Header.Set(DeliveryHeader, deliveryID)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
