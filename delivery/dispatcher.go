package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/id"
	"github.com/feedbacksdev/fanout/internal/entity"
	"github.com/feedbacksdev/fanout/observability"
	"github.com/feedbacksdev/fanout/payload"
	"github.com/feedbacksdev/fanout/project"
	"github.com/feedbacksdev/fanout/ratelimit"
	"github.com/feedbacksdev/fanout/signature"
)

// Outcome reports one completed dispatch operation.
//
// A failed delivery and a failed log write are different things: the POST
// either happened or it did not, independently of whether the record append
// succeeded. LogErr surfaces the latter without ever failing the operation.
type Outcome struct {
	// Delivered is true when the endpoint answered with a 2xx.
	Delivered bool

	// Record is the log entry describing the attempt. Populated even when
	// the append failed.
	Record *Record

	// LogErr is non-nil when the delivery attempt completed but the record
	// could not be appended to the log.
	LogErr error
}

// Config holds dispatcher configuration.
type Config struct {
	RequestTimeout time.Duration
	Limiter        *ratelimit.Limiter
	Metrics        *observability.Metrics
	Tracer         *observability.Tracer
}

// Dispatcher resolves a project's endpoints for an event, builds the
// kind-specific payloads, signs where applicable, posts, and logs.
type Dispatcher struct {
	records  Store
	projects project.Store
	sender   *Sender
	limiter  *ratelimit.Limiter
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(records Store, projects project.Store, cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		records:  records,
		projects: projects,
		sender:   NewSender(cfg.RequestTimeout),
		limiter:  cfg.Limiter,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		logger:   logger,
	}
}

// Sender returns the underlying HTTP primitive. The digest aggregator shares
// it so every outbound POST goes through the same timeout and truncation
// rules.
func (d *Dispatcher) Sender() *Sender { return d.sender }

// Dispatch fans out one feedback event to every endpoint of the project that
// is eligible for immediate delivery of "feedback.created". Each attempt is
// independently logged; one endpoint failing never affects the others.
func (d *Dispatcher) Dispatch(ctx context.Context, projectID string, evt *feedback.Event) ([]*Outcome, error) {
	p, err := d.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	targets := p.Registry().Immediate(payload.EventFeedbackCreated)
	if len(targets) == 0 {
		return nil, nil
	}

	outcomes := make([]*Outcome, 0, len(targets))
	for i := range targets {
		ep := &targets[i]

		url, body, headers, buildErr := d.buildImmediate(p, ep, evt)
		if buildErr != nil {
			d.logger.WarnContext(ctx, "payload build failed",
				"project_id", projectID, "endpoint_id", ep.ID, "error", buildErr)
			continue
		}

		if d.limiter != nil {
			if waitErr := d.limiter.Wait(ctx, ep.ID, ep.Kind, ep.RateLimit); waitErr != nil {
				d.logger.WarnContext(ctx, "rate limit wait aborted",
					"project_id", projectID, "endpoint_id", ep.ID, "error", waitErr)
				continue
			}
		}

		outcomes = append(outcomes, d.deliver(ctx, p, ep, payload.EventFeedbackCreated, url, body, headers))
	}
	return outcomes, nil
}

// TestDeliver sends a minimal connectivity-probe payload to one endpoint:
// the one with the given id, or the first enabled endpoint of the kind when
// the id is empty. Test deliveries never append to the delivery log.
func (d *Dispatcher) TestDeliver(ctx context.Context, projectID string, kind endpoint.Kind, endpointID string) (Result, error) {
	p, err := d.projects.GetProject(ctx, projectID)
	if err != nil {
		return Result{}, err
	}

	ep := p.Registry().Find(kind, endpointID)
	if ep == nil || !ep.Enabled || !ep.HasDestination() {
		return Result{}, fmt.Errorf("%w: project %s kind %s", ErrNotConfigured, projectID, kind)
	}

	url, body, headers, buildErr := d.buildTest(p, ep)
	if buildErr != nil {
		return Result{}, buildErr
	}

	res := d.sender.Post(ctx, url, body, headers)
	d.logger.DebugContext(ctx, "test delivery",
		"project_id", projectID, "endpoint_id", ep.ID, "kind", kind,
		"status", res.StatusCode, "latency_ms", res.LatencyMs)
	return res, nil
}

// Resend replays a previously logged delivery's payload to its original
// destination. Generic payloads are re-signed with the *current* project
// secret and a fresh timestamp, so a resend after a secret rotation carries a
// different signature than the original. Exactly one new record is appended,
// with the event name preserved from the original.
func (d *Dispatcher) Resend(ctx context.Context, projectID, recordID string) (*Outcome, error) {
	rec, err := d.records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.ProjectID != projectID {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}

	p, err := d.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// The current endpoint config supplies the current secret and token.
	// The destination itself comes from the logged record.
	current := p.Registry().Find(rec.Kind, rec.EndpointID)

	body := resendBody(rec)
	headers := map[string]string{}
	switch rec.Kind {
	case endpoint.KindGeneric:
		if current != nil && current.Secret != "" {
			ts := time.Now().Unix()
			headers[signature.SignatureHeader] = signature.Sign(body, current.Secret, ts)
			headers[signature.TimestampHeader] = strconv.FormatInt(ts, 10)
		}
	case endpoint.KindGitHub:
		if current != nil && current.Token != "" {
			headers["Authorization"] = "Bearer " + current.Token
			headers["Accept"] = "application/vnd.github+json"
		}
	}

	ep := &endpoint.Endpoint{ID: rec.EndpointID, Kind: rec.Kind, URL: rec.URL}
	return d.deliver(ctx, p, ep, rec.Event, rec.URL, body, headers), nil
}

// resendBody picks the replayed payload: the retained original where the log
// has one, or a synthesized minimal default for chat kinds whose payloads are
// not retained (or lack the expected text field).
func resendBody(rec *Record) []byte {
	switch rec.Kind {
	case endpoint.KindSlack, endpoint.KindDiscord:
		field := "text"
		if rec.Kind == endpoint.KindDiscord {
			field = "content"
		}
		if len(rec.Payload) > 0 {
			var m map[string]any
			if err := json.Unmarshal(rec.Payload, &m); err == nil {
				if _, ok := m[field]; ok {
					return rec.Payload
				}
			}
		}
		b, _ := json.Marshal(map[string]any{field: payload.DefaultText}) //nolint:errcheck // static shape
		return b

	case endpoint.KindGitHub:
		if len(rec.Payload) > 0 {
			return rec.Payload
		}
		b, _ := json.Marshal(payload.Issue{ //nolint:errcheck // static shape
			Title:  "[Feedback] Resent notification",
			Body:   payload.DefaultText,
			Labels: []string{"feedback"},
		})
		return b

	default:
		if len(rec.Payload) > 0 {
			return rec.Payload
		}
		return []byte("{}")
	}
}

// Deliver posts a prepared payload to an endpoint on behalf of the given
// event and appends one record. The digest aggregator calls this directly.
func (d *Dispatcher) Deliver(ctx context.Context, p *project.Project, ep *endpoint.Endpoint, event, url string, body []byte, headers map[string]string) *Outcome {
	return d.deliver(ctx, p, ep, event, url, body, headers)
}

func (d *Dispatcher) deliver(ctx context.Context, p *project.Project, ep *endpoint.Endpoint, event, url string, body []byte, headers map[string]string) *Outcome {
	var span trace.Span
	if d.tracer != nil {
		ctx, span = d.tracer.StartDeliverySpan(ctx, p.ID, ep.ID, string(ep.Kind), event)
	}

	res := d.sender.Post(ctx, url, body, headers)

	rec := &Record{
		Entity:         entity.New(),
		ID:             id.NewDeliveryID(),
		ProjectID:      p.ID,
		EndpointID:     ep.ID,
		Kind:           ep.Kind,
		URL:            url,
		Event:          event,
		StatusCode:     res.StatusCode,
		ResponseTimeMs: res.LatencyMs,
	}
	if res.OK() {
		rec.Status = StatusSuccess
	} else {
		rec.Status = StatusFailed
		if res.Error != "" {
			rec.Error = Truncate(res.Error)
		} else {
			rec.Error = Truncate(res.Body)
		}
	}
	if RetainPayload(ep.Kind, event) {
		rec.Payload = json.RawMessage(body)
	}

	out := &Outcome{Delivered: res.OK(), Record: rec}

	// Logging is best-effort: the delivery already happened (or failed)
	// independently of whether this insert works.
	if appendErr := d.records.AppendRecord(ctx, rec); appendErr != nil {
		out.LogErr = appendErr
		d.logger.WarnContext(ctx, "delivery log append failed",
			"project_id", p.ID, "endpoint_id", ep.ID, "error", appendErr)
	}

	if d.metrics != nil {
		d.metrics.RecordDelivery(string(rec.Status), string(ep.Kind), float64(res.LatencyMs)/1000.0)
	}
	if span != nil {
		d.tracer.EndDeliverySpan(span, res.StatusCode, res.LatencyMs, res.Error)
	}

	if out.Delivered {
		d.logger.DebugContext(ctx, "delivered",
			"record_id", rec.ID, "endpoint_id", ep.ID, "kind", ep.Kind,
			"event", event, "status", res.StatusCode, "latency_ms", res.LatencyMs)
	} else {
		d.logger.WarnContext(ctx, "delivery failed",
			"record_id", rec.ID, "endpoint_id", ep.ID, "kind", ep.Kind,
			"event", event, "status", res.StatusCode, "error", rec.Error)
	}

	return out
}

// buildImmediate constructs the destination, body, and headers for one
// immediate delivery.
func (d *Dispatcher) buildImmediate(p *project.Project, ep *endpoint.Endpoint, evt *feedback.Event) (string, []byte, map[string]string, error) {
	headers := map[string]string{}

	switch ep.Kind {
	case endpoint.KindSlack:
		body, err := json.Marshal(payload.Slack(evt, p.Name))
		return ep.URL, body, headers, err

	case endpoint.KindDiscord:
		body, err := json.Marshal(payload.Discord(evt, p.Name, ep.Format == endpoint.FormatCompact))
		return ep.URL, body, headers, err

	case endpoint.KindGeneric:
		body, err := payload.Generic(evt, p.Name)
		if err != nil {
			return "", nil, nil, err
		}
		signBody(headers, body, ep.Secret)
		return ep.URL, body, headers, nil

	case endpoint.KindGitHub:
		body, err := json.Marshal(payload.GitHub(evt, p.Name))
		headers["Authorization"] = "Bearer " + ep.Token
		headers["Accept"] = "application/vnd.github+json"
		return issuesURL(ep.Repo), body, headers, err

	default:
		return "", nil, nil, fmt.Errorf("delivery: unsupported kind %q", ep.Kind)
	}
}

// buildTest constructs the connectivity-probe request for one endpoint.
func (d *Dispatcher) buildTest(p *project.Project, ep *endpoint.Endpoint) (string, []byte, map[string]string, error) {
	headers := map[string]string{}

	switch ep.Kind {
	case endpoint.KindSlack:
		body, err := json.Marshal(payload.TestChat(p.Name, false))
		return ep.URL, body, headers, err

	case endpoint.KindDiscord:
		body, err := json.Marshal(payload.TestChat(p.Name, true))
		return ep.URL, body, headers, err

	case endpoint.KindGeneric:
		body, err := payload.TestGeneric(p.Name)
		if err != nil {
			return "", nil, nil, err
		}
		signBody(headers, body, ep.Secret)
		return ep.URL, body, headers, nil

	case endpoint.KindGitHub:
		body, err := json.Marshal(payload.TestIssue(p.Name))
		headers["Authorization"] = "Bearer " + ep.Token
		headers["Accept"] = "application/vnd.github+json"
		return issuesURL(ep.Repo), body, headers, err

	default:
		return "", nil, nil, fmt.Errorf("delivery: unsupported kind %q", ep.Kind)
	}
}

// signBody adds the signature headers when a secret is configured. The
// timestamp is generated fresh per attempt.
func signBody(headers map[string]string, body []byte, secret string) {
	if secret == "" {
		return
	}
	ts := time.Now().Unix()
	headers[signature.SignatureHeader] = signature.Sign(body, secret, ts)
	headers[signature.TimestampHeader] = strconv.FormatInt(ts, 10)
}

// issuesURL is the create-issue REST endpoint for a repository.
func issuesURL(repo string) string {
	return "https://api.github.com/repos/" + repo + "/issues"
}
