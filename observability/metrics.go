// Package observability provides metrics and tracing instruments for the
// fan-out engine.
package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for the engine, backed by any go-utils
// MetricFactory.
type Metrics struct {
	DeliveriesTotal  gu.Counter
	DeliveryLatency  gu.Histogram
	DigestRunsTotal  gu.Counter
	DigestEndpoints  gu.Gauge
	ConfigRejections gu.Counter
}

// NewMetrics creates engine metric instruments using the supplied factory.
// Pass metrics.NewMetricsCollector() for standalone usage.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		DeliveriesTotal:  factory.Counter("fanout_deliveries_total"),
		DeliveryLatency:  factory.Histogram("fanout_delivery_latency_seconds"),
		DigestRunsTotal:  factory.Counter("fanout_digest_runs_total"),
		DigestEndpoints:  factory.Gauge("fanout_digest_endpoints"),
		ConfigRejections: factory.Counter("fanout_config_rejections_total"),
	}
}

// RecordDelivery records a delivery attempt with the given status and kind.
func (m *Metrics) RecordDelivery(status, kind string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabels(map[string]string{"status": status, "kind": kind}).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}
