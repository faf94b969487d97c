package services

import (
	"context"
	"strings"
	"time"

	"github.com/eduadmin/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
	now  func() time.Time
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

// RecordLogin stamps the user's last login time and returns it.
func (s *UserService) RecordLogin(ctx context.Context, id int) (time.Time, error) {
	at := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, id, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}
