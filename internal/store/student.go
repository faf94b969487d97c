package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/eduadmin/apiserver/types"
)

// profileColumns lists the user_profiles columns written by an upsert, in
// the order profileValues produces them.
var profileColumns = []string{
	"phone",
	"gender",
	"dob",
	"class_name",
	"section_name",
	"roll",
	"father_name",
	"father_phone",
	"mother_name",
	"mother_phone",
	"guardian_name",
	"guardian_phone",
	"relation_of_guardian",
	"current_address",
	"permanent_address",
	"admission_dt",
}

// StudentRepository handles persistence for students and their profiles.
// Every statement is scoped to the student role.
type StudentRepository struct {
	db     *sql.DB
	sb     squirrel.StatementBuilderType
	roleID int
	now    func() time.Time
}

func NewStudentRepository(db *sql.DB, studentRoleID int) *StudentRepository {
	return &StudentRepository{
		db:     db,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		roleID: studentRoleID,
		now:    time.Now,
	}
}

func (r *StudentRepository) List(ctx context.Context, filter types.StudentFilter) (types.StudentList, error) {
	q, err := NewStudentQuery(r.roleID, filter)
	if err != nil {
		return types.StudentList{}, err
	}

	countQuery, countArgs, err := q.Count()
	if err != nil {
		return types.StudentList{}, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return types.StudentList{}, err
	}

	pageQuery, pageArgs, err := q.Page()
	if err != nil {
		return types.StudentList{}, fmt.Errorf("build page query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return types.StudentList{}, err
	}
	defer rows.Close()

	students := make([]types.StudentSummary, 0, q.Limit())
	for rows.Next() {
		var student types.StudentSummary
		var lastLogin sql.NullTime
		if err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.Email,
			&lastLogin,
			&student.SystemAccess,
		); err != nil {
			return types.StudentList{}, err
		}
		student.LastLogin = nullTime(lastLogin)
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return types.StudentList{}, err
	}

	return types.StudentList{
		Students:   students,
		Pagination: q.Pagination(total),
	}, nil
}

// Detail returns the student joined with its profile and reporter.
func (r *StudentRepository) Detail(ctx context.Context, id int) (types.StudentDetail, error) {
	const query = `
		SELECT
			u.id,
			u.name,
			u.email,
			u.is_active,
			u.last_login,
			u.status_last_reviewed_dt,
			u.status_last_reviewer_id,
			COALESCE(p.phone, ''),
			COALESCE(p.gender, ''),
			p.dob,
			COALESCE(p.class_name, ''),
			COALESCE(p.section_name, ''),
			p.roll,
			COALESCE(p.father_name, ''),
			COALESCE(p.father_phone, ''),
			COALESCE(p.mother_name, ''),
			COALESCE(p.mother_phone, ''),
			COALESCE(p.guardian_name, ''),
			COALESCE(p.guardian_phone, ''),
			COALESCE(p.relation_of_guardian, ''),
			COALESCE(p.current_address, ''),
			COALESCE(p.permanent_address, ''),
			p.admission_dt,
			r.name
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		LEFT JOIN users r ON r.id = u.reporter_id
		WHERE u.id = $1 AND u.role_id = $2`

	var d types.StudentDetail
	var lastLogin, reviewedAt sql.NullTime
	var reviewerID sql.NullInt64
	var reporterName sql.NullString
	err := r.db.QueryRowContext(ctx, query, id, r.roleID).Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.SystemAccess,
		&lastLogin,
		&reviewedAt,
		&reviewerID,
		&d.Phone,
		&d.Gender,
		&d.DateOfBirth,
		&d.ClassName,
		&d.Section,
		&d.Roll,
		&d.FatherName,
		&d.FatherPhone,
		&d.MotherName,
		&d.MotherPhone,
		&d.GuardianName,
		&d.GuardianPhone,
		&d.RelationOfGuardian,
		&d.CurrentAddress,
		&d.PermanentAddress,
		&d.AdmissionDate,
		&reporterName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.StudentDetail{}, ErrNotFound
		}
		return types.StudentDetail{}, err
	}

	d.LastLogin = nullTime(lastLogin)
	d.StatusLastReviewedAt = nullTime(reviewedAt)
	d.StatusLastReviewerID = nullInt(reviewerID)
	if reporterName.Valid {
		name := reporterName.String
		d.ReporterName = &name
	}
	return d, nil
}

// Upsert inserts a student with its profile when payload.ID is nil and
// updates both otherwise. Both rows are written in one transaction; updating
// an id that is not a student returns ErrNotFound and changes nothing.
func (r *StudentRepository) Upsert(ctx context.Context, payload types.StudentPayload) (types.UpsertResult, error) {
	var result types.UpsertResult
	err := WithTx(ctx, r.db, func(tx Executor) error {
		now := r.now()
		if payload.ID == nil {
			id, err := r.insertUser(ctx, tx, payload, now)
			if err != nil {
				return err
			}
			result = types.UpsertResult{ID: id, Created: true}
		} else {
			if err := r.updateUser(ctx, tx, *payload.ID, payload, now); err != nil {
				return err
			}
			result = types.UpsertResult{ID: *payload.ID}
		}
		return r.upsertProfile(ctx, tx, result.ID, payload.StudentProfile)
	})
	if err != nil {
		return types.UpsertResult{}, err
	}
	return result, nil
}

func (r *StudentRepository) insertUser(ctx context.Context, tx Executor, payload types.StudentPayload, now time.Time) (int, error) {
	active := false
	if payload.SystemAccess != nil {
		active = *payload.SystemAccess
	}

	query, args, err := r.sb.Insert("users").
		Columns("name", "email", "role_id", "is_active", "reporter_id", "created_dt", "updated_dt").
		Values(payload.Name, payload.Email, r.roleID, active, payload.ReporterID, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert student query: %w", err)
	}

	var id int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, translateError(err)
	}
	return id, nil
}

func (r *StudentRepository) updateUser(ctx context.Context, tx Executor, id int, payload types.StudentPayload, now time.Time) error {
	update := r.sb.Update("users").
		Set("name", payload.Name).
		Set("email", payload.Email).
		Set("updated_dt", now)
	if payload.SystemAccess != nil {
		update = update.Set("is_active", *payload.SystemAccess)
	}
	if payload.ReporterID != nil {
		update = update.Set("reporter_id", *payload.ReporterID)
	}

	query, args, err := update.
		Where(squirrel.Eq{"id": id, "role_id": r.roleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update student query: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StudentRepository) upsertProfile(ctx context.Context, tx Executor, userID int, profile types.StudentProfile) error {
	updates := make([]string, len(profileColumns))
	for i, col := range profileColumns {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}

	query, args, err := r.sb.Insert("user_profiles").
		Columns(append([]string{"user_id"}, profileColumns...)...).
		Values(append([]any{userID}, profileValues(profile)...)...).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert profile query: %w", err)
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func profileValues(p types.StudentProfile) []any {
	return []any{
		nullIfEmpty(p.Phone),
		nullIfEmpty(p.Gender),
		p.DateOfBirth,
		nullIfEmpty(p.ClassName),
		nullIfEmpty(p.Section),
		p.Roll,
		nullIfEmpty(p.FatherName),
		nullIfEmpty(p.FatherPhone),
		nullIfEmpty(p.MotherName),
		nullIfEmpty(p.MotherPhone),
		nullIfEmpty(p.GuardianName),
		nullIfEmpty(p.GuardianPhone),
		nullIfEmpty(p.RelationOfGuardian),
		nullIfEmpty(p.CurrentAddress),
		nullIfEmpty(p.PermanentAddress),
		p.AdmissionDate,
	}
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// UpdateBasic touches only name, email and the updated timestamp.
func (r *StudentRepository) UpdateBasic(ctx context.Context, id int, details types.BasicDetails) (int64, error) {
	const query = `
		UPDATE users
		SET name = $1,
			email = $2,
			updated_dt = $3
		WHERE id = $4 AND role_id = $5`
	result, err := r.db.ExecContext(ctx, query, details.Name, details.Email, r.now(), id, r.roleID)
	if err != nil {
		return 0, translateError(err)
	}
	return result.RowsAffected()
}

// SetStatus writes the three review fields in one statement.
func (r *StudentRepository) SetStatus(ctx context.Context, change types.StatusChange, at time.Time) (int64, error) {
	const query = `
		UPDATE users
		SET is_active = $1,
			status_last_reviewed_dt = $2,
			status_last_reviewer_id = $3
		WHERE id = $4 AND role_id = $5`
	result, err := r.db.ExecContext(ctx, query, change.Status, at, change.ReviewerID, change.UserID, r.roleID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes the profile row and then the user row in one transaction
// and returns the number of user rows removed.
func (r *StudentRepository) Delete(ctx context.Context, id int) (int64, error) {
	const deleteProfileQuery = `DELETE FROM user_profiles WHERE user_id = $1`
	const deleteUserQuery = `DELETE FROM users WHERE id = $1 AND role_id = $2`

	var affected int64
	err := WithTx(ctx, r.db, func(tx Executor) error {
		if _, err := tx.ExecContext(ctx, deleteProfileQuery, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, deleteUserQuery, id, r.roleID)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
