package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tnega_attempts_total",
		Help: "Total collection attempts",
	})
	AttemptErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tnega_attempt_errors_total",
		Help: "Total attempt-level failures",
	})
	AttemptDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tnega_attempt_duration_seconds",
		Help:    "Collection attempt duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	TweetsCollected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tnega_tweets_collected_total",
		Help: "Total unique tweets merged into collector state",
	})
	PagesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tnega_pages_fetched_total",
		Help: "Total pages fetched per endpoint",
	}, []string{"endpoint"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tnega_api_retries_total",
		Help: "Total API retry attempts per endpoint",
	}, []string{"endpoint"})
	RateLimitWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tnega_rate_limit_waits_total",
		Help: "Total backoff waits caused by rate limiting",
	}, []string{"endpoint"})
	ExpansionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tnega_expansion_failures_total",
		Help: "Total seed tweets whose discussion expansion failed",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tnega_command_runs_total",
		Help: "Total CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tnega_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		AttemptsTotal, AttemptErrors, AttemptDuration, TweetsCollected,
		PagesFetched, APIRetries, RateLimitWaits, ExpansionFailures,
		CommandRuns, CommandErrors,
	)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveAttemptDuration records one attempt's duration.
func ObserveAttemptDuration(start time.Time) {
	AttemptDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// IncRateLimitWait increments the rate-limit wait counter for an endpoint.
func IncRateLimitWait(endpoint string) { RateLimitWaits.WithLabelValues(endpoint).Inc() }

// IncCommandRun counts a CLI command invocation.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError counts a CLI command failure.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
