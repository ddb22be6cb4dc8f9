package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Booking events handled and committed.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Booking events the handler failed on; their offsets stay uncommitted.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Records skipped because their frame or event_type header was unreadable.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "booking_service",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the latest processed message per topic.",
	}, []string{"topic"})

	// outcome is "stored" for a new log row and "redelivered" when the
	// topic/partition/offset was already logged.
	auditWriteCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "consumer",
		Name:      "audit_writes_total",
		Help:      "Enrollment event log writes by event type and outcome.",
	}, []string{"event_type", "outcome"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge, auditWriteCounter)
}

func recordAuditWrite(msg Message, stored bool) {
	outcome := "redelivered"
	if stored {
		outcome = "stored"
	}
	auditWriteCounter.WithLabelValues(msg.EventType, outcome).Inc()
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
