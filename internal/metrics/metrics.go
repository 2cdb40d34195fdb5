package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transitions counted by RecordChoreTransition.
const (
	TransitionCreated   = "created"
	TransitionApplied   = "applied"
	TransitionAccepted  = "accepted"
	TransitionStarted   = "started"
	TransitionCompleted = "completed"
	TransitionPaid      = "paid"
	TransitionDeleted   = "deleted"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "choreista",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choreista",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "choreista",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	choreTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choreista",
			Subsystem: "chores",
			Name:      "transitions_total",
			Help:      "Chore lifecycle transitions.",
		},
		[]string{"transition"},
	)

	sessionsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "choreista",
			Subsystem: "sessions",
			Name:      "purged_total",
			Help:      "Expired sessions removed by the purge job.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		choreTransitions,
		sessionsPurged,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RequestStarted() { httpInFlight.Inc() }

// RecordRequest closes a request opened with RequestStarted. route is the
// matched route template, not the raw path.
func RecordRequest(method, route string, status int, duration time.Duration) {
	httpInFlight.Dec()
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordChoreTransition(transition string) {
	choreTransitions.WithLabelValues(transition).Inc()
}

func RecordSessionsPurged(n int64) {
	if n > 0 {
		sessionsPurged.Add(float64(n))
	}
}
