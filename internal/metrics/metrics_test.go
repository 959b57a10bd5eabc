package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveJob("verify-one", "success", 0.2)
	m.ObserveJob("verify-one", "success", 0.3)
	m.OracleCall("verdict", "fallback")
	m.Verdict("FALSE", "no_credible")

	if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues("verify-one", "success")); got != 2 {
		t.Fatalf("expected 2 jobs, got %v", got)
	}
	if got := testutil.ToFloat64(m.OracleCalls.WithLabelValues("verdict", "fallback")); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
	if got := testutil.ToFloat64(m.Verdicts.WithLabelValues("FALSE", "no_credible")); got != 1 {
		t.Fatalf("expected 1 verdict, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveJob("x", "y", 1)
	m.Publication("ok")
	m.SetQueueDepth("ready", 3)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Publication("posted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "brandwatch_publications_total") {
		t.Fatalf("expected publications metric in output")
	}
}
