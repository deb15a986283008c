package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the triage-to-booking flow.
type SchedulingMetrics struct {
	classificationsTotal *prometheus.CounterVec
	slotQueriesTotal     *prometheus.CounterVec
	bookingsTotal        *prometheus.CounterVec
	providerLatency      *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		classificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "triage",
			Name:      "classifications_total",
			Help:      "Total symptom classification attempts",
		}, []string{"outcome"}),
		slotQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "scheduling",
			Name:      "slot_queries_total",
			Help:      "Total availability queries against the calendar provider",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts",
		}, []string{"outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicflow",
			Subsystem: "scheduling",
			Name:      "provider_latency_seconds",
			Help:      "Latency of outbound calendar provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.classificationsTotal, m.slotQueriesTotal, m.bookingsTotal, m.providerLatency)
	return m
}

func (m *SchedulingMetrics) ObserveClassification(outcome string) {
	if m == nil {
		return
	}
	m.classificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotQuery(outcome string) {
	if m == nil {
		return
	}
	m.slotQueriesTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveProviderLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(operation).Observe(seconds)
}
