package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Domain metrics
	IssuesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cityfix_issues_total",
			Help: "Total number of issues by status",
		},
		[]string{"status"},
	)

	BoostedIssuesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cityfix_issues_boosted_total",
			Help: "Total number of boosted issues",
		},
	)

	UsersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cityfix_users_total",
			Help: "Total number of accounts by role",
		},
		[]string{"role"},
	)

	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityfix_payments_total",
			Help: "Total number of payments by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityfix_notifications_created_total",
			Help: "Total number of notifications created by kind",
		},
		[]string{"kind"},
	)

	EventsDropped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cityfix_events_dropped_total",
			Help: "Events not delivered because a subscriber was full",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityfix_api_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cityfix_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cityfix_api_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(IssuesTotal)
	prometheus.MustRegister(BoostedIssuesTotal)
	prometheus.MustRegister(UsersTotal)
	prometheus.MustRegister(PaymentsTotal)
	prometheus.MustRegister(NotificationsCreated)
	prometheus.MustRegister(EventsDropped)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(RateLimited)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed seconds on h
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed seconds on the labelled histogram
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
