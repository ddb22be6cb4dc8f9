package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"example.com/booking/internal/domain"
)

// CreateUser inserts the user and its role row in one transaction.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5) RETURNING user_id`,
		user.Name, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "") {
			return 0, domain.ErrEmailTaken
		}
		return 0, err
	}

	roleTable := "consumers"
	if user.Role == domain.RoleProvider {
		roleTable = "providers"
	}
	if _, err := tx.Exec(ctx, `INSERT INTO `+roleTable+` (user_id) VALUES ($1)`, id); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// FindUserByEmail returns the user registered with email, or nil, nil.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, name, email, password_hash, role, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// RenameUser changes the display name of userID.
func (r *Repository) RenameUser(ctx context.Context, userID int64, name string) (*domain.User, error) {
	var u domain.User
	var role string
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET name = $2 WHERE user_id = $1 RETURNING user_id, name, email, role, created_at`,
		userID, name,
	).Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// DeleteUser removes userID. Role rows, owned activities and enrollments go
// with it through ON DELETE CASCADE.
func (r *Repository) DeleteUser(ctx context.Context, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
