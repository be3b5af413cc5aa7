package fanout

import (
	"log/slog"
	"time"

	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/digest"
	"github.com/feedbacksdev/fanout/observability"
	"github.com/feedbacksdev/fanout/project"
	"github.com/feedbacksdev/fanout/ratelimit"
	"github.com/feedbacksdev/fanout/store"
)

// Engine is the root webhook fan-out and digest engine.
type Engine struct {
	config     Config
	store      store.Store
	projectSvc *project.Service
	dispatcher *delivery.Dispatcher
	aggregator *digest.Aggregator
	limiter    *ratelimit.Limiter
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	logger     *slog.Logger
}

// Option configures an Engine instance.
type Option func(*Engine) error

func defaultLogger() *slog.Logger {
	return slog.Default()
}

// WithStore sets the persistence backend for the Engine instance.
func WithStore(s store.Store) Option {
	return func(e *Engine) error {
		e.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Engine instance.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithRequestTimeout sets the hard HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.RequestTimeout = d
		return nil
	}
}

// WithDigestWindow sets the trailing time span one digest sweep covers.
func WithDigestWindow(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.DigestWindow = d
		return nil
	}
}

// WithRateLimiter sets the per-endpoint rate limiter consulted before each
// immediate delivery.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(e *Engine) error {
		e.limiter = l
		return nil
	}
}

// WithMetrics sets the metric instruments recorded by the engine.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer used for delivery spans.
func WithTracer(t *observability.Tracer) Option {
	return func(e *Engine) error {
		e.tracer = t
		return nil
	}
}
