package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/eduadmin/apiserver/types"
)

const userColumns = `
		id, name, email, role_id, is_active, last_login, reporter_id,
		status_last_reviewed_dt, status_last_reviewer_id,
		COALESCE(password_hash, ''), created_dt, updated_dt`

// UserRepository handles persistence for users of any role.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns ErrNotFound when no user has the given id.
func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	const query = `UPDATE users SET last_login = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var lastLogin, reviewedAt sql.NullTime
	var reporterID, reviewerID sql.NullInt64
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.RoleID,
		&user.IsActive,
		&lastLogin,
		&reporterID,
		&reviewedAt,
		&reviewerID,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	user.LastLogin = nullTime(lastLogin)
	user.ReporterID = nullInt(reporterID)
	user.StatusLastReviewedAt = nullTime(reviewedAt)
	user.StatusLastReviewerID = nullInt(reviewerID)
	return user, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
