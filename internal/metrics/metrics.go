// Package metrics provides Prometheus metrics for the schedule API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "mortgage_forecast"
	subsystem = "schedule"
)

// Recorder holds the collectors for one registry. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	schedulesComputed prometheus.Counter
	scheduleFailures  *prometheus.CounterVec
	computeDuration   prometheus.Histogram
	scheduleYears     prometheus.Histogram
	httpRequests      *prometheus.CounterVec
}

// NewRecorder registers the schedule collectors on a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Recorder{
		registry: registry,
		schedulesComputed: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "computed_total",
			Help:      "Total number of schedules computed successfully",
		}),
		scheduleFailures: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "failures_total",
				Help:      "Total number of schedule requests rejected, by reason",
			},
			[]string{"reason"},
		),
		computeDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing a schedule",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		scheduleYears: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "term_years",
			Help:      "Loan term of computed schedules in years",
			Buckets:   []float64{5, 10, 15, 20, 25, 30, 40},
		}),
		httpRequests: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status_code"},
		),
	}
}

// ObserveSchedule records a successful computation.
func (r *Recorder) ObserveSchedule(termYears int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.schedulesComputed.Inc()
	r.computeDuration.Observe(elapsed.Seconds())
	r.scheduleYears.Observe(float64(termYears))
}

// ObserveFailure records a rejected schedule request.
func (r *Recorder) ObserveFailure(reason string) {
	if r == nil {
		return
	}
	r.scheduleFailures.WithLabelValues(reason).Inc()
}

// ObserveRequest records one HTTP request.
func (r *Recorder) ObserveRequest(route, method string, status int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
