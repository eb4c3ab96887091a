package metrics

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed by Handler.
var Registry = prometheus.NewRegistry()

var (
	generationsStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_started_total",
			Help: "Total generations started",
		},
		[]string{"flow"},
	)

	generationsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_completed_total",
			Help: "Total generations completed",
		},
		[]string{"flow"},
	)

	generationsFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_failed_total",
			Help: "Total generations failed",
		},
		[]string{"flow"},
	)

	generationsDiscarded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_discarded_total",
			Help: "Generations whose result arrived after the flow was torn down",
		},
		[]string{"flow"},
	)

	generationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Generation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 2.5, 5, 10, 30, 60},
		},
		[]string{"flow"},
	)

	validationRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_rejected_total",
			Help: "Submissions rejected before generation started",
		},
		[]string{"flow", "reason"},
	)

	rateLimited = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests refused by the rate limiter",
		},
		[]string{"group"},
	)

	sessionsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Sessions currently mounted in this process",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncGenerationStarted increments the started counter.
func IncGenerationStarted(flow string) {
	generationsStarted.WithLabelValues(flow).Inc()
}

// IncGenerationCompleted increments the completed counter.
func IncGenerationCompleted(flow string) {
	generationsCompleted.WithLabelValues(flow).Inc()
}

// IncGenerationFailed increments the failed counter.
func IncGenerationFailed(flow string) {
	generationsFailed.WithLabelValues(flow).Inc()
}

// IncGenerationDiscarded counts results dropped because their flow was closed.
func IncGenerationDiscarded(flow string) {
	generationsDiscarded.WithLabelValues(flow).Inc()
}

// IncRejected counts a submission refused before the async stage.
func IncRejected(flow, reason string) {
	validationRejected.WithLabelValues(flow, reason).Inc()
}

// ObserveGenerationDuration records how long a generation took.
func ObserveGenerationDuration(flow string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	generationDuration.WithLabelValues(flow).Observe(d.Seconds())
}

// IncRateLimited counts a request refused for group.
func IncRateLimited(group string) {
	rateLimited.WithLabelValues(group).Inc()
}

// RateLimitedCounter exposes the refused-request counter for group.
func RateLimitedCounter(group string) prometheus.Counter {
	return rateLimited.WithLabelValues(group)
}

// SetSessionsActive sets the mounted session gauge.
func SetSessionsActive(n int) {
	sessionsActive.Set(float64(n))
}

// RegisterDBStats exposes pool statistics for db under the given name.
// Registering the same name twice is not an error.
func RegisterDBStats(db *sql.DB, name string) error {
	err := Registry.Register(collectors.NewDBStatsCollector(db, name))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
