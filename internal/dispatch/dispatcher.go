package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/contwre/leadflow/internal/domain"
	"github.com/contwre/leadflow/internal/pkg/logger"
)

// maxLoggedBody caps how much of the webhook response is kept for
// diagnostics. The receiving service is outside our control and may
// return arbitrary bodies.
const maxLoggedBody = 512

// Doer executes HTTP requests. *http.Client satisfies it; tests inject
// their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeliveryError describes a failed webhook delivery. It is diagnostic
// only: no caller retries on it, and it never surfaces to the visitor.
type DeliveryError struct {
	StatusCode int    // zero when the request never completed
	Body       string // response excerpt, when any was read
	Err        error  // underlying transport/encoding error, when any
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("webhook delivery failed: status %d", e.StatusCode)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Dispatcher POSTs lead events to a single fixed webhook endpoint.
type Dispatcher struct {
	client Doer
	url    string
}

// New creates a dispatcher for the given webhook URL with a default
// HTTP client bounded by timeout.
func New(url string, timeout time.Duration) *Dispatcher {
	return NewWithClient(url, &http.Client{Timeout: timeout})
}

// NewWithClient creates a dispatcher with an injected HTTP client.
func NewWithClient(url string, client Doer) *Dispatcher {
	return &Dispatcher{client: client, url: url}
}

// Dispatch serializes the event and performs exactly one POST. It returns
// nil on 2xx and a *DeliveryError otherwise. There is no retry and no
// backoff; the caller decides whether the outcome is worth logging.
func (d *Dispatcher) Dispatch(ctx context.Context, evt domain.LeadEvent) *DeliveryError {
	body, err := json.Marshal(NewPayload(evt))
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	excerpt := readExcerpt(resp.Body)
	logger.Debug("dispatch: webhook responded",
		"event_type", string(evt.Type),
		"event_id", evt.ID,
		"status", resp.StatusCode,
		"body", excerpt)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{StatusCode: resp.StatusCode, Body: excerpt}
	}
	return nil
}

func readExcerpt(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxLoggedBody))
	if err != nil {
		return ""
	}
	return string(data)
}
