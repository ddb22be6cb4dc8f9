package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/booking/internal/domain"
	"example.com/booking/internal/events"
)

// Enroll runs the enrollment checks and insert in one transaction holding a
// row lock on the activity. Concurrent enrollments into the same activity
// queue on that lock and re-read the seat count once it is released.
func (r *Repository) Enroll(ctx context.Context, enrollment domain.Enrollment) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var isConsumer bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM consumers WHERE user_id = $1)`, enrollment.ConsumerID).Scan(&isConsumer); err != nil {
		return 0, err
	}
	if !isConsumer {
		return 0, domain.ErrInvalidConsumer
	}

	var availability *string
	var capacity *int
	err = tx.QueryRow(ctx,
		`SELECT availability, capacity FROM activities WHERE activity_id = $1 FOR UPDATE`,
		enrollment.ActivityID,
	).Scan(&availability, &capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrActivityNotFound
		}
		return 0, err
	}
	if availability != nil && domain.Availability(*availability).IsClosed() {
		return 0, domain.ErrActivityClosed
	}

	var duplicate bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE consumer_id = $1 AND activity_id = $2)`,
		enrollment.ConsumerID, enrollment.ActivityID,
	).Scan(&duplicate); err != nil {
		return 0, err
	}
	if duplicate {
		return 0, domain.ErrDuplicateEnrollment
	}

	if capacity != nil {
		var taken int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments WHERE activity_id = $1`, enrollment.ActivityID).Scan(&taken); err != nil {
			return 0, err
		}
		if taken >= *capacity {
			return 0, domain.ErrCapacityExceeded
		}
	}

	id, err := insertEnrollment(ctx, tx, enrollment)
	if err != nil {
		return 0, err
	}

	if err := r.insertOutbox(ctx, tx, "enrollment", id, enrollment.ActivityID, events.TypeEnrollmentCreated, events.EnrollmentCreated{
		EnrollmentID: id,
		ConsumerID:   enrollment.ConsumerID,
		ActivityID:   enrollment.ActivityID,
		EnrolledAt:   enrollment.EnrolledAt,
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// enrollmentPairKey backs the duplicate check when two transactions race
// past it.
const enrollmentPairKey = "enrollments_consumer_activity_key"

func insertEnrollment(ctx context.Context, tx pgx.Tx, enrollment domain.Enrollment) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO enrollments (consumer_id, activity_id, enrolled_at) VALUES ($1,$2,$3) RETURNING enrollment_id`,
		enrollment.ConsumerID, enrollment.ActivityID, enrollment.EnrolledAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, enrollmentPairKey) {
			return 0, domain.ErrDuplicateEnrollment
		}
		if isForeignKeyViolation(err) {
			return 0, domain.ErrInvalidConsumer
		}
		return 0, err
	}
	return id, nil
}

// Cancel deletes an enrollment owned by requesterID.
func (r *Repository) Cancel(ctx context.Context, enrollmentID, requesterID int64, cancelledAt time.Time) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var consumerID, activityID int64
	err = tx.QueryRow(ctx,
		`SELECT consumer_id, activity_id FROM enrollments WHERE enrollment_id = $1 FOR UPDATE`,
		enrollmentID,
	).Scan(&consumerID, &activityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrEnrollmentNotFound
		}
		return err
	}
	if consumerID != requesterID {
		return domain.ErrForbidden
	}

	if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE enrollment_id = $1`, enrollmentID); err != nil {
		return err
	}

	if err := r.insertOutbox(ctx, tx, "enrollment", enrollmentID, activityID, events.TypeEnrollmentCancelled, events.EnrollmentCancelled{
		EnrollmentID: enrollmentID,
		ConsumerID:   consumerID,
		ActivityID:   activityID,
		CancelledAt:  cancelledAt,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListByConsumer returns the enrollments held by consumerID joined with
// their activity.
func (r *Repository) ListByConsumer(ctx context.Context, consumerID int64) ([]domain.EnrollmentView, error) {
	const query = `SELECT e.enrollment_id, e.enrolled_at, a.activity_id, a.title, a.activity_date, a.price::float8
        FROM enrollments e
        JOIN activities a ON a.activity_id = e.activity_id
        WHERE e.consumer_id = $1
        ORDER BY e.enrollment_id`

	rows, err := r.pool.Query(ctx, query, consumerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.EnrollmentView, 0)
	for rows.Next() {
		var v domain.EnrollmentView
		if err := rows.Scan(&v.EnrollmentID, &v.EnrolledAt, &v.ActivityID, &v.ActivityTitle, &v.ActivityDate, &v.ActivityPrice); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return views, nil
}
