// Package metrics holds the prometheus collectors for deployments, fleet
// upgrades and external platform calls.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry holds every squadfleet collector. It is served at /metrics.
	Registry = prometheus.NewRegistry()

	deployTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadfleet",
			Name:      "deploy_total",
			Help:      "Total number of tenant deployments by result",
		},
		[]string{"result"},
	)

	deployStepFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadfleet",
			Name:      "deploy_step_failures_total",
			Help:      "Deployment step failures by step and class (fatal or advisory)",
		},
		[]string{"step", "class"},
	)

	platformAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadfleet",
			Subsystem: "platform",
			Name:      "api_calls_total",
			Help:      "Total number of external platform API calls by platform, operation and result",
		},
		[]string{"platform", "operation", "result"},
	)

	platformAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "squadfleet",
			Subsystem: "platform",
			Name:      "api_latency_seconds",
			Help:      "Latency of external platform API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 9), // 50ms to ~13s
		},
		[]string{"platform", "operation"},
	)

	upgradeEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadfleet",
			Name:      "upgrade_entries_total",
			Help:      "Fleet upgrade plan entries by final status",
		},
		[]string{"status"},
	)

	phoneNumbersPurchased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadfleet",
			Name:      "phone_numbers_purchased_total",
			Help:      "Phone numbers purchased from the telephony platform by country",
		},
		[]string{"country"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "squadfleet",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests by method, route and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "squadfleet",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		deployTotal,
		deployStepFailures,
		platformAPICallsTotal,
		platformAPILatency,
		upgradeEntriesTotal,
		phoneNumbersPurchased,
		httpRequestsTotal,
		httpRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordDeploy records the outcome of one tenant deployment.
func RecordDeploy(err error) {
	deployTotal.WithLabelValues(result(err)).Inc()
}

// RecordStepFailure records a failed deployment step.
func RecordStepFailure(step string, advisory bool) {
	class := "fatal"
	if advisory {
		class = "advisory"
	}
	deployStepFailures.WithLabelValues(step, class).Inc()
}

// RecordPlatformCall records one external API call.
func RecordPlatformCall(platform, operation string, err error, latency time.Duration) {
	platformAPICallsTotal.WithLabelValues(platform, operation, result(err)).Inc()
	platformAPILatency.WithLabelValues(platform, operation).Observe(latency.Seconds())
}

// RecordUpgradeEntry records the final status of a fleet upgrade entry.
func RecordUpgradeEntry(status string) {
	upgradeEntriesTotal.WithLabelValues(status).Inc()
}

// RecordPhonePurchase records a purchased number.
func RecordPhonePurchase(country string) {
	phoneNumbersPurchased.WithLabelValues(country).Inc()
}

// RecordHTTPRequest records one served API request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
