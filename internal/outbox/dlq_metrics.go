package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"example.com/booking/internal/events"
)

var (
	dlqRequeuedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "dlq",
		Name:      "messages_requeued_total",
		Help:      "Parked booking events sent back to the outbox.",
	}, []string{"topic", "event_type"})

	dlqQuarantinedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "dlq",
		Name:      "messages_quarantined_total",
		Help:      "Parked booking events given up on after the retry limit.",
	}, []string{"topic", "event_type"})

	dlqRetryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking_service",
		Subsystem: "dlq",
		Name:      "retry_scheduled_total",
		Help:      "Requeue attempts that failed and were pushed back by the backoff.",
	}, []string{"topic", "event_type"})

	dlqBacklogGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "booking_service",
		Subsystem: "dlq",
		Name:      "queued_messages",
		Help:      "Parked booking events still eligible for retry.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(dlqRequeuedCounter, dlqQuarantinedCounter, dlqRetryCounter, dlqBacklogGauge)
}

func recordDLQRequeued(entry dlqEntry) {
	dlqRequeuedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
}

func recordDLQQuarantined(entry dlqEntry) {
	dlqQuarantinedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
}

func recordDLQRetry(entry dlqEntry) {
	dlqRetryCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
}

// updateBacklogGauge reports the retryable backlog per event type. Known
// event types with nothing parked report zero.
func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx,
		`SELECT event_type, COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL GROUP BY event_type`)
	if err != nil {
		return err
	}
	defer rows.Close()

	backlog := make(map[string]int, len(events.Routes))
	for eventType := range events.Routes {
		backlog[eventType] = 0
	}
	for rows.Next() {
		var (
			eventType string
			count     int
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return err
		}
		backlog[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return err
	}

	dlqBacklogGauge.Reset()
	for eventType, count := range backlog {
		dlqBacklogGauge.WithLabelValues(eventType).Set(float64(count))
	}
	return nil
}
