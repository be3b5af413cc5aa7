package fanout

import (
	"context"
	"encoding/json"

	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/digest"
	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/project"
	"github.com/feedbacksdev/fanout/store"
)

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.store == nil {
		return nil, ErrNoStore
	}
	e.wireServices()
	return e, nil
}

// wireServices initializes the internal services after options have been
// applied.
func (e *Engine) wireServices() {
	if e.logger == nil {
		e.logger = defaultLogger()
	}

	e.projectSvc = project.NewService(e.store, e.logger)

	e.dispatcher = delivery.NewDispatcher(e.store, e.store, delivery.Config{
		RequestTimeout: e.config.RequestTimeout,
		Limiter:        e.limiter,
		Metrics:        e.metrics,
		Tracer:         e.tracer,
	}, e.logger)

	e.aggregator = digest.NewAggregator(e.store, e.dispatcher, digest.Config{
		Window:  e.config.DigestWindow,
		Metrics: e.metrics,
		Tracer:  e.tracer,
	}, e.logger)
}

// Dispatch fans out one feedback event to every immediate-eligible endpoint
// of the project. One delivery record is appended per attempt. The returned
// outcomes carry both the delivery result and any (swallowed) log-write
// failure per endpoint.
func (e *Engine) Dispatch(ctx context.Context, projectID string, evt *feedback.Event) ([]*delivery.Outcome, error) {
	return e.dispatcher.Dispatch(ctx, projectID, evt)
}

// TestDeliver sends a connectivity probe to one endpoint of the project.
// It appends no delivery record; the direct result is the only output.
func (e *Engine) TestDeliver(ctx context.Context, projectID string, kind endpoint.Kind, endpointID string) (delivery.Result, error) {
	return e.dispatcher.TestDeliver(ctx, projectID, kind, endpointID)
}

// Resend replays a logged delivery to its original destination and appends
// exactly one new record.
func (e *Engine) Resend(ctx context.Context, projectID, recordID string) (*delivery.Outcome, error) {
	return e.dispatcher.Resend(ctx, projectID, recordID)
}

// RunDigest executes one digest sweep over the trailing window ending now.
// Repeated invocation within the same window resends overlapping digests;
// deduplication is deliberately not performed.
func (e *Engine) RunDigest(ctx context.Context) (*digest.RunSummary, error) {
	return e.aggregator.Run(ctx)
}

// UpdateWebhooks validates and persists a project's webhooks configuration.
func (e *Engine) UpdateWebhooks(ctx context.Context, projectID string, webhooks json.RawMessage) error {
	return e.projectSvc.UpdateWebhooks(ctx, projectID, webhooks)
}

// ProjectStats summarizes a project's endpoint configuration and delivery log.
type ProjectStats struct {
	Endpoints       int   `json:"endpoints"`
	DigestEndpoints int   `json:"digest_endpoints"`
	Deliveries      int64 `json:"deliveries"`
	Delivered       int64 `json:"delivered"`
	Failed          int64 `json:"failed"`
}

// Stats reports endpoint and delivery-log counts for one project.
func (e *Engine) Stats(ctx context.Context, projectID string) (*ProjectStats, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	reg := endpoint.Normalize(p.Webhooks)

	delivered, err := e.store.CountRecords(ctx, projectID, delivery.StatusSuccess)
	if err != nil {
		return nil, err
	}
	failed, err := e.store.CountRecords(ctx, projectID, delivery.StatusFailed)
	if err != nil {
		return nil, err
	}

	return &ProjectStats{
		Endpoints:       len(reg.All()),
		DigestEndpoints: len(reg.Digest()),
		Deliveries:      delivered + failed,
		Delivered:       delivered,
		Failed:          failed,
	}, nil
}

// Projects returns the project configuration service.
func (e *Engine) Projects() *project.Service {
	return e.projectSvc
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store {
	return e.store
}
