package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"review_tracker/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record a few samples so the families show up
	observability.ObserveHTTP("/api/reviews", "GET", 200, 12*time.Millisecond)
	observability.ObserveFetch("apple", nil)
	observability.ObserveStore("redis", "new")
	observability.ObserveDelivery("ok")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, family := range []string{
		"reviewtracker_http_requests_total",
		"reviewtracker_upstream_fetches_total",
		"reviewtracker_store_events_total",
		"reviewtracker_webhook_deliveries_total",
	} {
		if !strings.Contains(out, family) {
			t.Fatalf("expected %s in output", family)
		}
	}
}
