package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MrEthical07/contentauth"
)

type fakeSource struct {
	snapshot contentauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() contentauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func newSource() fakeSource {
	return fakeSource{
		snapshot: contentauth.MetricsSnapshot{
			Counters: map[contentauth.MetricID]uint64{
				contentauth.MetricLoginSuccess:            7,
				contentauth.MetricSessionStoreUnavailable: 2,
			},
			Histograms: map[contentauth.MetricID][]uint64{
				contentauth.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 3,
	}
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector(newSource())

	expected := `
# HELP contentauth_login_success_total Successful logins.
# TYPE contentauth_login_success_total counter
contentauth_login_success_total 7
# HELP contentauth_audit_dropped_total Audit events dropped under dispatcher backpressure.
# TYPE contentauth_audit_dropped_total counter
contentauth_audit_dropped_total 3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"contentauth_login_success_total", "contentauth_audit_dropped_total")
	if err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	c := NewCollector(newSource())

	expected := `
# HELP contentauth_authenticate_latency_seconds Authenticate latency.
# TYPE contentauth_authenticate_latency_seconds histogram
contentauth_authenticate_latency_seconds_bucket{le="0.005"} 1
contentauth_authenticate_latency_seconds_bucket{le="0.01"} 3
contentauth_authenticate_latency_seconds_bucket{le="0.025"} 6
contentauth_authenticate_latency_seconds_bucket{le="0.05"} 10
contentauth_authenticate_latency_seconds_bucket{le="0.1"} 15
contentauth_authenticate_latency_seconds_bucket{le="0.25"} 21
contentauth_authenticate_latency_seconds_bucket{le="0.5"} 28
contentauth_authenticate_latency_seconds_bucket{le="+Inf"} 36
contentauth_authenticate_latency_seconds_sum 0
contentauth_authenticate_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "contentauth_authenticate_latency_seconds")
	if err != nil {
		t.Fatalf("unexpected histogram: %v", err)
	}
}

func TestCollectorEmitsEveryDefinition(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: contentauth.MetricsSnapshot{}})
	// 12 counters, 1 histogram, audit dropped.
	if got := testutil.CollectAndCount(c); got != 14 {
		t.Fatalf("expected 14 metrics, got %d", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	h, err := Handler(newSource())
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"contentauth_login_success_total 7",
		"contentauth_session_store_unavailable_total 2",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("missing %q in output", want)
		}
	}
}
