// Package postgres provides Postgres-backed persistence for the booking service.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/booking/internal/events"
)

// Repository provides Postgres-backed persistence for users, activities,
// enrollments and their outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// insertOutbox records an event in the same transaction as the change that
// produced it. Events are keyed by activity so that every event about one
// activity lands on the same partition.
func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType string, aggregateID, activityID int64, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	route, ok := events.Routes[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		aggregateType,
		strconv.FormatInt(aggregateID, 10),
		eventType,
		route.Topic,
		route.SchemaSubject,
		strconv.FormatInt(activityID, 10),
		body,
	)
	return err
}
