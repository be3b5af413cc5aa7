package delivery

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the hard per-attempt timeout for outbound POSTs.
const DefaultTimeout = 4000 * time.Millisecond

// maxResponseBody caps how much of the response body is read and stored.
const maxResponseBody = 500

// userAgent identifies the engine on outbound requests.
const userAgent = "feedbacks.dev-fanout/1.0"

// Result holds the outcome of a single POST attempt. On timeout the status
// code is 0 and the body is empty.
type Result struct {
	StatusCode int
	Body       string
	Error      string
	LatencyMs  int
}

// OK reports whether the attempt completed with a 2xx status.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Sender is the outbound HTTP primitive: a single-attempt JSON POST with a
// bounded timeout. It has no retry logic; replays happen only through the
// manual resend operation.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout. A non-positive
// timeout falls back to DefaultTimeout.
func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// Post delivers a JSON body to url with optional extra headers.
func (s *Sender) Post(ctx context.Context, url string, body []byte, headers map[string]string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Error: "create request: " + err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // G704: url is the user-configured webhook destination
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	// Best-effort body read; a read failure still counts as a completed
	// attempt with the status code we got.
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      "read response: " + readErr.Error(),
			LatencyMs:  int(latency),
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		LatencyMs:  int(latency),
	}
}
