package outbox

import "github.com/prometheus/client_golang/prometheus"

// Every outbox counter is split by topic and event type so booking traffic
// (enrollment.created, enrollment.cancelled) reads apart from catalog traffic.
var (
	deliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Booking events published to Kafka.",
	}, []string{"topic", "event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Booking events whose batch failed to publish.",
	}, []string{"topic", "event_type"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "booking_service",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of one claim, deliver and mark cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "outbox",
		Name:      "events_dlq_total",
		Help:      "Booking events parked in outbox_dlq.",
	}, []string{"topic", "event_type"})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration, dlqCounter)
}

func recordBatch(counter *prometheus.CounterVec, messages []Message) {
	for _, msg := range messages {
		counter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	}
}
