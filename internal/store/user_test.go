package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var userRowColumns = []string{
	"id", "name", "email", "role_id", "is_active", "last_login", "reporter_id",
	"status_last_reviewed_dt", "status_last_reviewer_id", "password_hash", "created_dt", "updated_dt",
}

func TestUserGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM users\\s+WHERE id = \\$1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "John", "john@example.com", 3, true, nil, 2, nil, nil, "", fixedNow, fixedNow))

	user, err := NewUserRepository(db).GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.RoleID != 3 || user.ReporterID == nil || *user.ReporterID != 2 || user.LastLogin != nil {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM users").WithArgs(99).WillReturnError(sql.ErrNoRows)

	if _, err := NewUserRepository(db).GetByID(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserUpdateLastLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec("UPDATE users SET last_login = \\$1 WHERE id = \\$2").
		WithArgs(at, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewUserRepository(db).UpdateLastLogin(context.Background(), 4, at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
