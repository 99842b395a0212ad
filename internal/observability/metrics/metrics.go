package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	submissions       *prometheus.CounterVec
	paymentOutcomes   *prometheus.CounterVec
	slotResolutions   *prometheus.CounterVec
	resolutionLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		paymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "payment_outcomes_total",
			Help:      "Payment confirmations by outcome",
		}, []string{"outcome"}),
		slotResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "availability",
			Name:      "slot_resolutions_total",
			Help:      "Slot resolutions by result",
		}, []string{"result"}),
		resolutionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "availability",
			Name:      "slot_resolution_seconds",
			Help:      "Latency of slot resolution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.paymentOutcomes, m.slotResolutions, m.resolutionLatency)
	return m
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObservePayment(outcome string) {
	if m == nil {
		return
	}
	m.paymentOutcomes.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveSlotResolution(result string) {
	if m == nil {
		return
	}
	m.slotResolutions.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveResolutionLatency(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.resolutionLatency.WithLabelValues(phase).Observe(seconds)
}
