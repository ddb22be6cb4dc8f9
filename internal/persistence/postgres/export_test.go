package postgres

import (
	"context"

	"example.com/booking/internal/domain"
)

// InsertEnrollment runs only the insert step of Enroll, skipping the checks
// made under the activity lock.
func InsertEnrollment(ctx context.Context, r *Repository, enrollment domain.Enrollment) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	id, err := insertEnrollment(ctx, tx, enrollment)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}
