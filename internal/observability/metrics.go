// Package observability holds the prometheus collectors shared by the booking service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	enrollmentAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "ledger",
		Name:      "enrollment_attempts_total",
		Help:      "Enrollment attempts grouped by outcome.",
	}, []string{"outcome"})

	enrollmentDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "booking_service",
		Subsystem: "ledger",
		Name:      "enrollment_duration_seconds",
		Help:      "Time spent inside the enrollment unit of work, including row lock waits.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	cancellations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "ledger",
		Name:      "cancellations_total",
		Help:      "Enrollment cancellations grouped by outcome.",
	}, []string{"outcome"})

	lastEnrollmentGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "booking_service",
		Subsystem: "ledger",
		Name:      "last_enrollment_timestamp_seconds",
		Help:      "Unix timestamp of the most recent accepted enrollment.",
	})
)

func init() {
	prometheus.MustRegister(enrollmentAttempts, enrollmentDuration, cancellations, lastEnrollmentGauge)
}

// ObserveEnrollment records one enrollment attempt.
func ObserveEnrollment(outcome string, elapsed time.Duration) {
	enrollmentAttempts.WithLabelValues(outcome).Inc()
	enrollmentDuration.Observe(elapsed.Seconds())
	if outcome == "accepted" {
		lastEnrollmentGauge.Set(float64(time.Now().Unix()))
	}
}

// ObserveCancellation records one cancellation attempt.
func ObserveCancellation(outcome string) {
	cancellations.WithLabelValues(outcome).Inc()
}

// EnrollmentAttempts exposes the attempts counter for a given outcome, for tests.
func EnrollmentAttempts(outcome string) prometheus.Counter {
	return enrollmentAttempts.WithLabelValues(outcome)
}
