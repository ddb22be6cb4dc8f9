package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/booking/internal/domain"
	"example.com/booking/internal/events"
)

const activityColumns = `a.activity_id, a.provider_id, a.title, a.description, a.kind, a.activity_date,
        to_char(a.start_time, 'HH24:MI:SS'), to_char(a.end_time, 'HH24:MI:SS'),
        a.availability, a.price::float8, a.capacity, a.created_at, a.updated_at`

func scanActivity(row pgx.Row, extra ...any) (domain.Activity, error) {
	var a domain.Activity
	var availability *string
	dest := []any{&a.ID, &a.ProviderID, &a.Title, &a.Description, &a.Kind, &a.Date,
		&a.StartTime, &a.EndTime, &availability, &a.Price, &a.Capacity, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Activity{}, err
	}
	if availability != nil {
		a.Availability = domain.Availability(*availability)
	}
	return a, nil
}

// ListActivities returns every activity with its provider's name and email.
func (r *Repository) ListActivities(ctx context.Context) ([]domain.CatalogEntry, error) {
	query := `SELECT ` + activityColumns + `, u.name, u.email
        FROM activities a
        JOIN users u ON u.user_id = a.provider_id
        ORDER BY a.activity_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CatalogEntry, 0)
	for rows.Next() {
		var entry domain.CatalogEntry
		activity, err := scanActivity(rows, &entry.ProviderName, &entry.ProviderEmail)
		if err != nil {
			return nil, err
		}
		entry.Activity = activity
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ProviderExists reports whether providerID is registered in the provider role table.
func (r *Repository) ProviderExists(ctx context.Context, providerID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM providers WHERE user_id = $1)`, providerID).Scan(&exists)
	return exists, err
}

// TitleTaken reports whether another activity already uses title, ignoring case.
func (r *Repository) TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM activities WHERE lower(title) = lower($1) AND activity_id <> $2)`,
		title, excludeID,
	).Scan(&taken)
	return taken, err
}

// CreateActivity inserts a new activity and returns its id.
func (r *Repository) CreateActivity(ctx context.Context, activity domain.Activity) (int64, error) {
	const stmt = `INSERT INTO activities (provider_id, title, description, kind, activity_date, start_time, end_time, availability, price, capacity, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6::text::time,$7::text::time,$8,$9,$10,$11,$12)
        RETURNING activity_id`

	var id int64
	err := r.pool.QueryRow(ctx, stmt,
		activity.ProviderID,
		activity.Title,
		activity.Description,
		activity.Kind,
		activity.Date,
		activity.StartTime,
		activity.EndTime,
		nullIfEmpty(string(activity.Availability)),
		activity.Price,
		activity.Capacity,
		activity.CreatedAt,
		activity.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "activities_title_lower_idx") {
			return 0, domain.ErrDuplicateTitle
		}
		if isForeignKeyViolation(err) {
			return 0, domain.ErrInvalidProvider
		}
		return 0, err
	}
	return id, nil
}

// GetActivity retrieves an activity by id. It returns nil, nil when absent.
func (r *Repository) GetActivity(ctx context.Context, activityID int64) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities a WHERE a.activity_id = $1`
	activity, err := scanActivity(r.pool.QueryRow(ctx, query, activityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

// UpdateActivity overwrites the mutable fields of an activity.
func (r *Repository) UpdateActivity(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	const stmt = `UPDATE activities a SET
            title = $2, description = $3, kind = $4, activity_date = $5,
            start_time = $6::text::time, end_time = $7::text::time,
            availability = $8, price = $9, capacity = $10, updated_at = $11
        WHERE a.activity_id = $1
        RETURNING ` + activityColumns

	updated, err := scanActivity(r.pool.QueryRow(ctx, stmt,
		activity.ID,
		activity.Title,
		activity.Description,
		activity.Kind,
		activity.Date,
		activity.StartTime,
		activity.EndTime,
		nullIfEmpty(string(activity.Availability)),
		activity.Price,
		activity.Capacity,
		activity.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrActivityNotFound
		}
		if isUniqueViolation(err, "activities_title_lower_idx") {
			return nil, domain.ErrDuplicateTitle
		}
		return nil, err
	}
	return &updated, nil
}

// DeleteActivity removes an activity, cascading to its enrollments, and
// records an activity.deleted event in the same transaction.
func (r *Repository) DeleteActivity(ctx context.Context, activityID int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var providerID int64
	err = tx.QueryRow(ctx, `SELECT provider_id FROM activities WHERE activity_id = $1 FOR UPDATE`, activityID).Scan(&providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrActivityNotFound
		}
		return err
	}

	var dropped int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments WHERE activity_id = $1`, activityID).Scan(&dropped); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM activities WHERE activity_id = $1`, activityID); err != nil {
		return err
	}

	if err := r.insertOutbox(ctx, tx, "activity", activityID, activityID, events.TypeActivityDeleted, events.ActivityDeleted{
		ActivityID: activityID,
		ProviderID: providerID,
		Dropped:    dropped,
		DeletedAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListProviderActivities returns the activities of providerID with everyone
// enrolled in each of them.
func (r *Repository) ListProviderActivities(ctx context.Context, providerID int64) ([]domain.ProviderActivity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities a WHERE a.provider_id = $1 ORDER BY a.activity_id`

	rows, err := r.pool.Query(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ProviderActivity, 0)
	index := make(map[int64]int)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[activity.ID] = len(items)
		items = append(items, domain.ProviderActivity{Activity: activity, Enrollees: []domain.Enrollee{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	const enrolleeQuery = `SELECT e.activity_id, e.enrollment_id, e.consumer_id, u.name, u.email, e.enrolled_at
        FROM enrollments e
        JOIN activities a ON a.activity_id = e.activity_id
        JOIN users u ON u.user_id = e.consumer_id
        WHERE a.provider_id = $1
        ORDER BY e.enrollment_id`

	rows, err = r.pool.Query(ctx, enrolleeQuery, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var activityID int64
		var enrollee domain.Enrollee
		if err := rows.Scan(&activityID, &enrollee.EnrollmentID, &enrollee.ConsumerID, &enrollee.Name, &enrollee.Email, &enrollee.EnrolledAt); err != nil {
			return nil, err
		}
		if i, ok := index[activityID]; ok {
			items[i].Enrollees = append(items[i].Enrollees, enrollee)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
