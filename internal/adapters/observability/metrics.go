package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewtracker", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviewtracker", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	UpstreamFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewtracker", Name: "upstream_fetches_total", Help: "Review feed fetches."},
		[]string{"platform", "outcome"}, // outcome: ok|error
	)
	StoreEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewtracker", Name: "store_events_total", Help: "Dedup store events."},
		[]string{"backend", "event"}, // event: seen|new|put|error
	)
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewtracker", Name: "webhook_deliveries_total", Help: "Webhook message deliveries."},
		[]string{"outcome"}, // outcome: ok|error|skipped
	)
)

// Serve starts the standalone metrics listener when addr is non-empty.
func Serve(addr string) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, UpstreamFetches, StoreEvents, WebhookDeliveries)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveFetch(platform string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamFetches.WithLabelValues(platform, outcome).Inc()
}

func ObserveStore(backend, event string) { // event: seen|new|put|error
	StoreEvents.WithLabelValues(backend, event).Inc()
}

func ObserveDelivery(outcome string) { // outcome: ok|error|skipped
	WebhookDeliveries.WithLabelValues(outcome).Inc()
}
