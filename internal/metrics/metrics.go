package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interview"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	})

	upstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_calls_total",
		Help:      "Calls to AI and vector index collaborators by outcome",
	}, []string{"operation", "outcome"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_call_duration_seconds",
		Help:      "Duration of calls to AI and vector index collaborators",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40},
	}, []string{"operation"})

	feedbackCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feedback_commits_total",
		Help:      "Feedback commit attempts by outcome",
	}, []string{"outcome"})

	interviewStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "starts_total",
		Help:      "Start-or-resume calls by outcome",
	}, []string{"outcome"})
)

// Commit outcomes.
const (
	CommitApplied  = "applied"
	CommitReplayed = "replayed"
	CommitConflict = "conflict"
	CommitFailed   = "failed"
)

// Start outcomes.
const (
	StartCreated  = "created"
	StartResumed  = "resumed"
	StartRejected = "rejected"
)

func ObserveUpstream(operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamCalls.WithLabelValues(operation, outcome).Inc()
	upstreamLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func ObserveCommit(outcome string) {
	feedbackCommits.WithLabelValues(outcome).Inc()
}

func ObserveStart(outcome string) {
	interviewStarts.WithLabelValues(outcome).Inc()
}

// Middleware records request metrics labelled by the matched route pattern,
// so ids in the path do not explode cardinality. statusOf resolves the status
// the error handler will later write for a returned error.
func Middleware(statusOf func(error) int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  c.Route().Path,
			"status": strconv.Itoa(status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler exposes the default Prometheus registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
