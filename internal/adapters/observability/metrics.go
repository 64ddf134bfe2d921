package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rsvp", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "external_requests_total", Help: "Outbound provider requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rsvp", Name: "external_request_duration_seconds",
			Help:    "Outbound provider request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "session_events_total", Help: "Session store puts/hits/misses/deletes."},
		[]string{"backend", "event"}, // event: put|hit|miss|del
	)
	ActivityEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "activity_events_total", Help: "Recorded guest activity events."},
		[]string{"kind"},
	)
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "messages_total", Help: "Outbound guest messages by channel and outcome."},
		[]string{"channel", "outcome"}, // outcome: sent|skipped|failed
	)
	LiveFeedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "rsvp", Name: "livefeed_clients", Help: "Connected admin activity stream clients."},
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		ExternalRequests, ExternalLatency,
		SessionEvents, ActivityEvents, MessagesSent, LiveFeedClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveSession(backend, event string) {
	SessionEvents.WithLabelValues(backend, event).Inc()
}

func ObserveActivity(kind string) {
	ActivityEvents.WithLabelValues(kind).Inc()
}

func ObserveMessage(channel, outcome string) {
	MessagesSent.WithLabelValues(channel, outcome).Inc()
}
