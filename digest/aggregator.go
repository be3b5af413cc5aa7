// Package digest implements the hourly digest sweep.
//
// A sweep is externally triggered (a scheduled invocation) and carries no
// state between runs: each invocation recomputes the trailing window,
// re-reads every project's configuration, and delivers one digest per
// qualifying endpoint. Invoking it twice within the same hour sends
// overlapping digests; there is deliberately no idempotency key per run.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/observability"
	"github.com/feedbacksdev/fanout/payload"
	"github.com/feedbacksdev/fanout/project"
	"github.com/feedbacksdev/fanout/signature"
)

// DefaultWindow is the trailing time span one sweep covers.
const DefaultWindow = time.Hour

// Store is the persistence the aggregator needs.
type Store interface {
	ListProjects(ctx context.Context) ([]*project.Project, error)
	ListFeedback(ctx context.Context, projectID string, from, to time.Time) ([]*feedback.Event, error)
}

// Config holds aggregator configuration.
type Config struct {
	Window  time.Duration
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Aggregator runs one digest sweep per invocation.
type Aggregator struct {
	store      Store
	dispatcher *delivery.Dispatcher
	window     time.Duration
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	logger     *slog.Logger
}

// NewAggregator creates a digest aggregator. Deliveries go through the given
// dispatcher so digests share the dispatcher's POST-and-log primitive.
func NewAggregator(store Store, dispatcher *delivery.Dispatcher, cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Aggregator{
		store:      store,
		dispatcher: dispatcher,
		window:     window,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		logger:     logger,
	}
}

// RunSummary reports what one sweep did.
type RunSummary struct {
	Window    payload.Window `json:"window"`
	Projects  int            `json:"projects"`
	Endpoints int            `json:"endpoints"`
	Delivered int            `json:"delivered"`
	Failed    int            `json:"failed"`
}

// Run executes one digest sweep over the trailing window ending now.
//
// A failure while processing one endpoint or one project never aborts the
// sweep for the others; it only produces one failed delivery record (or a
// warning log when the project could not be processed at all).
func (a *Aggregator) Run(ctx context.Context) (*RunSummary, error) {
	var span trace.Span
	if a.tracer != nil {
		ctx, span = a.tracer.StartDigestSpan(ctx)
	}

	now := time.Now().UTC()
	w := payload.Window{From: now.Add(-a.window), To: now}
	summary := &RunSummary{Window: w}

	projects, err := a.store.ListProjects(ctx)
	if err != nil {
		if span != nil {
			a.tracer.EndDigestSpan(span, 0, 0, 0)
		}
		return nil, fmt.Errorf("digest: list projects: %w", err)
	}

	for _, p := range projects {
		a.runProject(ctx, p, w, summary)
	}

	if a.metrics != nil {
		a.metrics.DigestRunsTotal.Inc()
		a.metrics.DigestEndpoints.Set(float64(summary.Endpoints))
	}
	if span != nil {
		a.tracer.EndDigestSpan(span, summary.Projects, summary.Delivered, summary.Failed)
	}

	a.logger.InfoContext(ctx, "digest sweep complete",
		"projects", summary.Projects, "endpoints", summary.Endpoints,
		"delivered", summary.Delivered, "failed", summary.Failed)
	return summary, nil
}

func (a *Aggregator) runProject(ctx context.Context, p *project.Project, w payload.Window, summary *RunSummary) {
	targets := p.Registry().Digest()
	if len(targets) == 0 {
		// No digest endpoints: skip the project without querying events.
		return
	}
	summary.Projects++

	events, err := a.store.ListFeedback(ctx, p.ID, w.From, w.To)
	if err != nil {
		a.logger.WarnContext(ctx, "digest feedback query failed",
			"project_id", p.ID, "error", err)
		return
	}

	for i := range targets {
		ep := &targets[i]
		filtered := filterEvents(ep, events)
		if len(filtered) == 0 {
			// Nothing qualifying for this endpoint: no delivery, no record.
			continue
		}
		summary.Endpoints++

		stats := payload.Summarize(filtered)
		url, body, headers, buildErr := buildDigest(p, ep, w, stats, filtered)
		if buildErr != nil {
			a.logger.WarnContext(ctx, "digest payload build failed",
				"project_id", p.ID, "endpoint_id", ep.ID, "error", buildErr)
			continue
		}

		out := a.dispatcher.Deliver(ctx, p, ep, endpoint.EventDigest, url, body, headers)
		if out.Delivered {
			summary.Delivered++
		} else {
			summary.Failed++
		}
	}
}

// filterEvents applies an endpoint's rules to the window's events, keeping
// order (oldest-first).
func filterEvents(ep *endpoint.Endpoint, events []*feedback.Event) []*feedback.Event {
	var out []*feedback.Event
	for _, evt := range events {
		if ep.Rules.Match(evt) {
			out = append(out, evt)
		}
	}
	return out
}

// buildDigest constructs the destination, body, and headers for one digest
// delivery.
func buildDigest(p *project.Project, ep *endpoint.Endpoint, w payload.Window, stats payload.Stats, events []*feedback.Event) (string, []byte, map[string]string, error) {
	headers := map[string]string{}

	switch ep.Kind {
	case endpoint.KindSlack:
		body, err := json.Marshal(payload.DigestChat(p.Name, w, stats))
		return ep.URL, body, headers, err

	case endpoint.KindDiscord:
		body, err := json.Marshal(payload.DigestDiscord(p.Name, w, stats, ep.Format == endpoint.FormatCompact))
		return ep.URL, body, headers, err

	case endpoint.KindGeneric:
		body, err := payload.DigestGeneric(p.Name, w, stats, events)
		if err != nil {
			return "", nil, nil, err
		}
		if ep.Secret != "" {
			ts := time.Now().Unix()
			headers[signature.SignatureHeader] = signature.Sign(body, ep.Secret, ts)
			headers[signature.TimestampHeader] = strconv.FormatInt(ts, 10)
		}
		return ep.URL, body, headers, nil

	case endpoint.KindGitHub:
		body, err := json.Marshal(payload.DigestIssue(p.Name, w, stats))
		headers["Authorization"] = "Bearer " + ep.Token
		headers["Accept"] = "application/vnd.github+json"
		return "https://api.github.com/repos/" + ep.Repo + "/issues", body, headers, err

	default:
		return "", nil, nil, fmt.Errorf("digest: unsupported kind %q", ep.Kind)
	}
}
