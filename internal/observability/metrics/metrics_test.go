package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveSlots(map[string]int{"open": 14, "lunch": 2})
	m.ObserveCapacityCheck(true, nil)
	m.ObserveCapacityCheck(false, nil)
	m.ObserveCapacityCheck(false, errors.New("boom"))
	m.ObserveSubmission("confirmed")
	m.ObserveSubmission("confirmed")
	m.ObserveStaleDiscard()
	m.ObserveClinicAPI("list_dentists", "200", 0.05)

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, float64(14), counterValue(t, families, "dentalbook_availability_slots_generated_total", "kind", "open"))
	assert.Equal(t, float64(2), counterValue(t, families, "dentalbook_availability_slots_generated_total", "kind", "lunch"))
	assert.Equal(t, float64(1), counterValue(t, families, "dentalbook_availability_capacity_checks_total", "result", "full"))
	assert.Equal(t, float64(1), counterValue(t, families, "dentalbook_availability_capacity_checks_total", "result", "error"))
	assert.Equal(t, float64(2), counterValue(t, families, "dentalbook_booking_submissions_total", "outcome", "confirmed"))
	assert.Equal(t, float64(1), counterValue(t, families, "dentalbook_booking_stale_responses_discarded_total", "", ""))

	latency := findFamily(families, "dentalbook_clinicapi_request_latency_seconds")
	require.NotNil(t, latency)
	require.Len(t, latency.GetMetric(), 1)
	assert.Equal(t, uint64(1), latency.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveSlots(map[string]int{"open": 1})
	m.ObserveCapacityCheck(false, nil)
	m.ObserveSubmission("failed")
	m.ObserveStaleDiscard()
	m.ObserveClinicAPI("op", "200", 0.1)
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name, label, value string) float64 {
	t.Helper()
	family := findFamily(families, name)
	require.NotNil(t, family, "metric %s not registered", name)
	for _, metric := range family.GetMetric() {
		if label == "" || hasLabel(metric, label, value) {
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("no %s{%s=%q} sample", name, label, value)
	return 0
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name && pair.GetValue() == value {
			return true
		}
	}
	return false
}
