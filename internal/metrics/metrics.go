// Package metrics holds the Prometheus instruments exported on /metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"eventticketing/internal/domain"
)

var (
	// Participation engine metrics
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "participation_operations_total",
			Help: "Total number of participation engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "participation_operation_duration_seconds",
			Help:    "Duration of participation engine operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ProvisionedUsersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "participation_provisioned_users_total",
			Help: "Total number of users auto-provisioned by bulk enrollment",
		},
	)

	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_total",
			Help: "Total number of notification emails by template and outcome",
		},
		[]string{"template", "outcome"}, // outcome: "sent", "failed"
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Outcome maps an operation error to a low-cardinality label.
func Outcome(err error) string {
	switch kind := domain.KindOf(err); {
	case err == nil:
		return "ok"
	case errors.Is(kind, domain.ErrNotFound):
		return "not_found"
	case errors.Is(kind, domain.ErrConflict):
		return "conflict"
	case errors.Is(kind, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(kind, domain.ErrValidationFailed):
		return "validation_failed"
	case errors.Is(kind, domain.ErrStorageFailure):
		return "storage_failure"
	default:
		return "error"
	}
}

// RecordOperation records one engine operation.
func RecordOperation(operation string, err error, duration time.Duration) {
	OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEmail records a notification email attempt.
func RecordEmail(template string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	EmailsTotal.WithLabelValues(template, outcome).Inc()
}

// RecordHTTPRequest records a served request. route is the matched route pattern.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
