package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveSubmission(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveSubmission("created")
	m.ObserveSubmission("created")
	m.ObservePayment("succeeded")
	m.ObserveSlotResolution("no_availability")
	m.ObserveResolutionLatency("availability", 0.1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := map[string]float64{}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			if fam.GetType() == dto.MetricType_COUNTER {
				found[fam.GetName()+labelString(metric)] = metric.GetCounter().GetValue()
			}
		}
	}
	if found["portal_booking_submissions_total{outcome=created}"] != 2 {
		t.Fatalf("unexpected submission count: %v", found)
	}
	if found["portal_booking_payment_outcomes_total{outcome=succeeded}"] != 1 {
		t.Fatalf("unexpected payment count: %v", found)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveSubmission("created")
	m.ObservePayment("failed")
	m.ObserveSlotResolution("resolved")
	m.ObserveResolutionLatency("schedule", 0.2)
}

func labelString(m *dto.Metric) string {
	parts := make([]string, 0, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
