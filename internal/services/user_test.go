package services

import (
	"context"
	"testing"
	"time"

	"github.com/eduadmin/apiserver/types"
)

type fakeUserRepo struct {
	stamped map[int]time.Time
}

func (f *fakeUserRepo) GetByID(context.Context, int) (types.User, error) { return types.User{}, nil }

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	return types.User{Email: email}, nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	f.stamped[id] = at
	return nil
}

func TestUserServiceRecordLogin(t *testing.T) {
	repo := &fakeUserRepo{stamped: map[int]time.Time{}}
	svc := NewUserService(repo)
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	at, err := svc.RecordLogin(context.Background(), 4)
	if err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	if !at.Equal(fixed) || !repo.stamped[4].Equal(fixed) {
		t.Fatalf("stamped %v, returned %v", repo.stamped[4], at)
	}

	user, _ := svc.GetByEmail(context.Background(), "  a@b.c ")
	if user.Email != "a@b.c" {
		t.Fatalf("email was not trimmed: %q", user.Email)
	}
}
