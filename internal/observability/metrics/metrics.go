package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for availability and booking flows.
type BookingMetrics struct {
	slotsGenerated   *prometheus.CounterVec
	capacityChecks   *prometheus.CounterVec
	submissions      *prometheus.CounterVec
	staleDiscards    prometheus.Counter
	clinicAPILatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		slotsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalbook",
			Subsystem: "availability",
			Name:      "slots_generated_total",
			Help:      "Slots produced by the generator, by classification",
		}, []string{"kind"}),
		capacityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalbook",
			Subsystem: "availability",
			Name:      "capacity_checks_total",
			Help:      "Daily capacity lookups, by result",
		}, []string{"result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalbook",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Appointment submissions, by outcome",
		}, []string{"outcome"}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dentalbook",
			Subsystem: "booking",
			Name:      "stale_responses_discarded_total",
			Help:      "Date refreshes dropped because a newer date was selected",
		}),
		clinicAPILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dentalbook",
			Subsystem: "clinicapi",
			Name:      "request_latency_seconds",
			Help:      "Latency of clinic backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotsGenerated, m.capacityChecks, m.submissions, m.staleDiscards, m.clinicAPILatency)
	return m
}

func (m *BookingMetrics) ObserveSlots(counts map[string]int) {
	if m == nil {
		return
	}
	for kind, n := range counts {
		m.slotsGenerated.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *BookingMetrics) ObserveCapacityCheck(full bool, err error) {
	if m == nil {
		return
	}
	result := "available"
	switch {
	case err != nil:
		result = "error"
	case full:
		result = "full"
	}
	m.capacityChecks.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveStaleDiscard() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
}

func (m *BookingMetrics) ObserveClinicAPI(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.clinicAPILatency.WithLabelValues(operation, status).Observe(seconds)
}
