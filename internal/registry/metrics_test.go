package registry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ConnectionsAcceptedCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ConnectionsAccepted.Inc()
	m.ConnectionsAccepted.Inc()

	got := testutil.ToFloat64(m.ConnectionsAccepted)
	if got != 2 {
		t.Errorf("expected ConnectionsAccepted 2, got %v", got)
	}
}

func TestMetrics_ResponseStatusVecByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ResponseStatus.WithLabelValues("200").Inc()
	m.ResponseStatus.WithLabelValues("200").Inc()
	m.ResponseStatus.WithLabelValues("404").Inc()

	if got := testutil.ToFloat64(m.ResponseStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("expected 2 responses labeled 200, got %v", got)
	}
	if got := testutil.ToFloat64(m.ResponseStatus.WithLabelValues("404")); got != 1 {
		t.Errorf("expected 1 response labeled 404, got %v", got)
	}
}
