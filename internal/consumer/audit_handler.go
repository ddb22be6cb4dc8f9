package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditHandler appends every consumed event to enrollment_event_log.
// Redelivered records are ignored, keyed on topic, partition and offset.
type AuditHandler struct {
	pool *pgxpool.Pool
}

// NewAuditHandler constructs a handler backed by pool.
func NewAuditHandler(pool *pgxpool.Pool) *AuditHandler {
	return &AuditHandler{pool: pool}
}

// Handle stores msg.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	received := msg.Timestamp
	if received.IsZero() {
		received = time.Now().UTC()
	}

	tag, err := h.pool.Exec(ctx,
		`INSERT INTO enrollment_event_log (topic, partition, "offset", event_type, schema_id, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (topic, partition, "offset") DO NOTHING`,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.EventType,
		msg.SchemaID,
		msg.Payload,
		received,
	)
	if err != nil {
		return err
	}
	recordAuditWrite(msg, tag.RowsAffected() > 0)
	return nil
}
