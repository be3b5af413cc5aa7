// Package delivery performs outbound webhook POSTs and keeps the append-only
// delivery log.
package delivery

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/internal/entity"
)

// Sentinel errors for dispatch operations.
var (
	// ErrNotConfigured is returned when the target endpoint is missing,
	// disabled, or has no destination. No delivery attempt is made and no
	// record is written.
	ErrNotConfigured = errors.New("delivery: endpoint not configured")

	// ErrRecordNotFound is returned when a delivery record cannot be found.
	ErrRecordNotFound = errors.New("delivery: record not found")
)

// Status is the outcome of one delivery attempt.
type Status string

const (
	// StatusSuccess indicates the endpoint answered with a 2xx.
	StatusSuccess Status = "success"

	// StatusFailed indicates a non-2xx answer, a timeout, or a transport error.
	StatusFailed Status = "failed"
)

// maxErrorLen caps the error text stored on a record.
const maxErrorLen = 500

// Record is the durable audit entry for one outbound POST attempt.
// Records are created once and never mutated.
type Record struct {
	entity.Entity

	// ID is the unique TypeID for this record.
	ID string `json:"id"`

	// ProjectID identifies the project that owns the endpoint.
	ProjectID string `json:"project_id"`

	// EndpointID identifies the target endpoint within the project config.
	EndpointID string `json:"endpoint_id"`

	// Kind is the endpoint kind the payload was built for.
	Kind endpoint.Kind `json:"kind"`

	// URL is the destination the POST went to.
	URL string `json:"url"`

	// Event is the event name that triggered the delivery.
	Event string `json:"event"`

	// Status is success or failed.
	Status Status `json:"status"`

	// StatusCode is the HTTP status, 0 when the request never completed.
	StatusCode int `json:"status_code,omitempty"`

	// Error is the truncated response body or transport error (≤500 chars).
	Error string `json:"error,omitempty"`

	// ResponseTimeMs is the elapsed time of the attempt.
	ResponseTimeMs int `json:"response_time_ms"`

	// Payload is the sent body. Retained only for generic-signed and digest
	// deliveries; chat payloads are re-synthesized on resend instead.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RetainPayload reports whether the payload should be stored on a record for
// the given kind and event.
func RetainPayload(kind endpoint.Kind, event string) bool {
	return kind == endpoint.KindGeneric || event == endpoint.EventDigest
}

// Truncate caps s at maxErrorLen characters for record storage.
func Truncate(s string) string {
	if len(s) > maxErrorLen {
		return s[:maxErrorLen]
	}
	return s
}

// ListOpts configures filtering and pagination for the delivery log view.
type ListOpts struct {
	Offset     int
	Limit      int
	EndpointID string
	Event      string
	From       *time.Time
	To         *time.Time
}
