package observability

import (
	"testing"

	"github.com/xraph/go-utils/metrics"
)

func TestNewMetricsCreatesInstruments(t *testing.T) {
	m := NewMetrics(metrics.NewMetricsCollector("fanout-test"))

	if m.DeliveriesTotal == nil {
		t.Fatal("DeliveriesTotal should not be nil")
	}
	if m.DeliveryLatency == nil {
		t.Fatal("DeliveryLatency should not be nil")
	}
	if m.DigestRunsTotal == nil {
		t.Fatal("DigestRunsTotal should not be nil")
	}
	if m.DigestEndpoints == nil {
		t.Fatal("DigestEndpoints should not be nil")
	}
	if m.ConfigRejections == nil {
		t.Fatal("ConfigRejections should not be nil")
	}
}

func TestRecordDelivery(t *testing.T) {
	m := NewMetrics(metrics.NewMetricsCollector("fanout-test"))

	m.RecordDelivery("delivered", "slack", 0.5)
	m.RecordDelivery("delivered", "generic", 1.2)
	m.RecordDelivery("failed", "discord", 0.3)
}

func TestDigestInstruments(t *testing.T) {
	m := NewMetrics(metrics.NewMetricsCollector("fanout-test"))

	m.DigestRunsTotal.Inc()
	m.DigestRunsTotal.Inc()
	m.DigestEndpoints.Set(7)
	m.ConfigRejections.Inc()
}
