package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/artpar/simpleschema/adapters/metrics"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.CompilesTotal == nil {
		t.Error("CompilesTotal is nil")
	}
	if m.UnresolvedJoins == nil {
		t.Error("UnresolvedJoins is nil")
	}
	if m.SchemaReloads == nil {
		t.Error("SchemaReloads is nil")
	}
}

func TestNewWithRegistry_Twice(t *testing.T) {
	// Separate registries must not collide.
	metrics.NewWithRegistry(prometheus.NewRegistry())
	metrics.NewWithRegistry(prometheus.NewRegistry())
}

func TestObserveCompile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveCompile(metrics.CompileStats{Collections: 3, Fields: 12, Resolved: 2, Duration: time.Millisecond})
	m.ObserveCompile(metrics.CompileStats{Collections: 4, Fields: 14, Resolved: 2, Unresolved: 1, Duration: time.Millisecond})
	m.ObserveCompileError()

	if got := value(t, m.CompilesTotal.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Errorf("ok compiles = %v, want 1", got)
	}
	if got := value(t, m.CompilesTotal.WithLabelValues(metrics.ResultUnresolved)); got != 1 {
		t.Errorf("unresolved compiles = %v, want 1", got)
	}
	if got := value(t, m.CompilesTotal.WithLabelValues(metrics.ResultError)); got != 1 {
		t.Errorf("error compiles = %v, want 1", got)
	}
	if got := value(t, m.Collections); got != 4 {
		t.Errorf("collections = %v, want 4", got)
	}
	if got := value(t, m.Fields); got != 14 {
		t.Errorf("fields = %v, want 14", got)
	}
	if got := value(t, m.UnresolvedJoins); got != 1 {
		t.Errorf("unresolved joins = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "simpleschema_compile_duration_seconds" {
			found = true
			if n := f.GetMetric()[0].GetHistogram().GetSampleCount(); n != 2 {
				t.Errorf("compile duration samples = %d, want 2", n)
			}
		}
	}
	if !found {
		t.Error("simpleschema_compile_duration_seconds metric not found")
	}
}

func TestObserveReload(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	at := time.Unix(1700000000, 0)

	m.ObserveReload(nil, at)
	m.ObserveReload(errors.New("boom"), at.Add(time.Minute))

	if got := value(t, m.SchemaReloads); got != 1 {
		t.Errorf("reloads = %v, want 1", got)
	}
	if got := value(t, m.SchemaReloadErrors); got != 1 {
		t.Errorf("reload errors = %v, want 1", got)
	}
	if got := value(t, m.SchemaLastReload); got != 1700000000 {
		t.Errorf("last reload = %v, want 1700000000", got)
	}
}

func TestObserveRequest(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.ObserveRequest("GET", "/collections", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", "/collections", 204, 10*time.Millisecond)
	m.ObserveRequest("GET", "/collections/{slug}", 404, time.Millisecond)

	if got := value(t, m.RequestsTotal.WithLabelValues("GET", "/collections", "2xx")); got != 2 {
		t.Errorf("2xx requests = %v, want 2", got)
	}
	if got := value(t, m.RequestsTotal.WithLabelValues("GET", "/collections/{slug}", "4xx")); got != 1 {
		t.Errorf("4xx requests = %v, want 1", got)
	}
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
		{0, "0"},
		{999, "999"},
	}

	for _, tt := range tests {
		if got := metrics.StatusClass(tt.status); got != tt.want {
			t.Errorf("StatusClass(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

// value reads the current value of a single counter or gauge.
func value(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()

	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	m, ok := <-ch
	if !ok {
		t.Fatal("collector produced no metric")
	}

	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case pb.Counter != nil:
		return pb.GetCounter().GetValue()
	case pb.Gauge != nil:
		return pb.GetGauge().GetValue()
	}
	t.Fatal("metric is neither counter nor gauge")
	return 0
}
