package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.CacheResult("oddsapi", true)
	m.CacheResult("oddsapi", false)
	m.CacheResult("oddsapi", false)
	m.Upstream("oddsapi", "ok", 120*time.Millisecond)
	m.Skipped("malformed", 2)
	m.Skipped("malformed", 0)
	m.HTTPRequest("/api/health", 200)

	if got := testutil.ToFloat64(m.CacheRequests.WithLabelValues("oddsapi", "miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("oddsapi", "ok")); got != 1 {
		t.Errorf("upstream ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RecordsSkipped.WithLabelValues("malformed")); got != 2 {
		t.Errorf("skipped = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/health", "200")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.CacheResult("oddsapi", true)
	m.Upstream("oddsapi", "error", time.Second)
	m.Skipped("malformed", 1)
	m.HTTPRequest("/", 200)
	m.WSConnected(1)
	m.Reconciled(1, 1)
}

func TestReconciled(t *testing.T) {
	m := New()
	m.Reconciled(3, 1)
	m.Reconciled(2, 0)

	if got := testutil.ToFloat64(m.ReconciledGames.WithLabelValues("matched")); got != 5 {
		t.Errorf("matched = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.ReconciledGames.WithLabelValues("conflict")); got != 1 {
		t.Errorf("conflicts = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.HTTPRequest("/api/odds/nfl", 502)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `gridiron_http_requests_total{route="/api/odds/nfl",status="502"} 1`) {
		t.Errorf("exposition missing counter:\n%s", body)
	}
}

func TestInstancesAreIsolated(t *testing.T) {
	a, b := New(), New()
	a.CacheResult("oddsapi", true)
	if got := testutil.ToFloat64(b.CacheRequests.WithLabelValues("oddsapi", "hit")); got != 0 {
		t.Errorf("second instance saw %v hits", got)
	}
}
