// Package metrics exposes Prometheus instrumentation for the attendance service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendance_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Matching Metrics
	IdentifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_identify_total",
			Help: "Total number of identification attempts by result",
		},
		[]string{"result"}, // "matched", "rejected"
	)

	MatchDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendance_match_distance",
			Help:    "Distance of the best candidate for each identification attempt",
			Buckets: []float64{0.1, 0.2, 0.3, 0.35, 0.38, 0.42, 0.5, 0.6, 0.8, 1.0},
		},
	)

	ConflictChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_conflict_checks_total",
			Help: "Total number of enrollment conflict checks by verdict",
		},
		[]string{"verdict"}, // "conflict", "clear"
	)

	// Attendance Metrics
	AttendanceOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_outcomes_total",
			Help: "Total number of attendance decisions by outcome",
		},
		[]string{"outcome"},
	)

	// Descriptor Service Metrics
	DescriptorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendance_descriptor_request_duration_seconds",
			Help:    "Duration of requests to the face descriptor service in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	DescriptorRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_descriptor_request_errors_total",
			Help: "Total number of failed requests to the face descriptor service",
		},
		[]string{"endpoint"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordIdentify records the outcome of a single identification attempt.
// distance is only observed when a candidate was evaluated.
func RecordIdentify(matched, found bool, distance float64) {
	result := "rejected"
	if matched {
		result = "matched"
	}
	IdentifyTotal.WithLabelValues(result).Inc()
	if found {
		MatchDistance.Observe(distance)
	}
}

// RecordConflictCheck records the verdict of an enrollment conflict check
func RecordConflictCheck(conflict bool) {
	verdict := "clear"
	if conflict {
		verdict = "conflict"
	}
	ConflictChecksTotal.WithLabelValues(verdict).Inc()
}

// RecordAttendanceOutcome records an attendance decision
func RecordAttendanceOutcome(outcome string) {
	AttendanceOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordDescriptorRequest records a descriptor service call
func RecordDescriptorRequest(endpoint string, duration time.Duration, err error) {
	DescriptorRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if err != nil {
		DescriptorRequestErrors.WithLabelValues(endpoint).Inc()
	}
}
