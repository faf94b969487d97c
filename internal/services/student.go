package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eduadmin/apiserver/internal/store"
	"github.com/eduadmin/apiserver/types"
)

const (
	msgStudentAdded         = "Student added successfully"
	msgStudentUpdated       = "Student updated successfully"
	msgStudentStatusChanged = "Student status changed successfully"
	msgStudentDeleted       = "Student deleted successfully"
)

// StudentRepository defines persistence operations for students.
type StudentRepository interface {
	List(ctx context.Context, filter types.StudentFilter) (types.StudentList, error)
	Detail(ctx context.Context, id int) (types.StudentDetail, error)
	Upsert(ctx context.Context, payload types.StudentPayload) (types.UpsertResult, error)
	UpdateBasic(ctx context.Context, id int, details types.BasicDetails) (int64, error)
	SetStatus(ctx context.Context, change types.StatusChange, at time.Time) (int64, error)
	Delete(ctx context.Context, id int) (int64, error)
}

// UserLookup resolves users of any role.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// DetailCache stores student details between reads. Implementations swallow
// their own failures; a miss is reported as false.
type DetailCache interface {
	Get(ctx context.Context, id int) (types.StudentDetail, bool)
	Set(ctx context.Context, detail types.StudentDetail)
	Invalidate(ctx context.Context, id int)
}

// EventPublisher announces student lifecycle changes.
type EventPublisher interface {
	PublishStudentEvent(ctx context.Context, event types.StudentEvent)
}

// UpdateMode selects what UpdateStudent writes.
type UpdateMode string

const (
	// UpdateReplace rewrites the user row and the whole profile.
	UpdateReplace UpdateMode = "replace"
	// UpdateBasicOnly writes name and email only.
	UpdateBasicOnly UpdateMode = "basic"
)

// ParseUpdateMode accepts "replace" (or empty) and "basic".
func ParseUpdateMode(value string) (UpdateMode, error) {
	switch mode := UpdateMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "", UpdateReplace:
		return UpdateReplace, nil
	case UpdateBasicOnly:
		return UpdateBasicOnly, nil
	default:
		return "", fmt.Errorf("unknown student update mode %q", value)
	}
}

// StudentOption customizes a StudentService.
type StudentOption func(*StudentService)

func WithDetailCache(cache DetailCache) StudentOption {
	return func(s *StudentService) { s.cache = cache }
}

func WithEventPublisher(events EventPublisher) StudentOption {
	return func(s *StudentService) { s.events = events }
}

func WithUpdateMode(mode UpdateMode) StudentOption {
	return func(s *StudentService) { s.mode = mode }
}

func WithClock(now func() time.Time) StudentOption {
	return func(s *StudentService) { s.now = now }
}

// StudentService encapsulates student use-cases, including status review.
type StudentService struct {
	repo   StudentRepository
	users  UserLookup
	roleID int
	cache  DetailCache
	events EventPublisher
	mode   UpdateMode
	now    func() time.Time
}

func NewStudentService(repo StudentRepository, users UserLookup, studentRoleID int, opts ...StudentOption) *StudentService {
	s := &StudentService{
		repo:   repo,
		users:  users,
		roleID: studentRoleID,
		cache:  noopCache{},
		events: noopEvents{},
		mode:   UpdateReplace,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StudentService) GetAllStudents(ctx context.Context, filter types.StudentFilter) (types.StudentList, error) {
	return s.repo.List(ctx, filter)
}

func (s *StudentService) GetStudentDetail(ctx context.Context, id int) (types.StudentDetail, error) {
	if err := s.ensureStudent(ctx, id); err != nil {
		return types.StudentDetail{}, err
	}
	if detail, ok := s.cache.Get(ctx, id); ok {
		return detail, nil
	}

	detail, err := s.repo.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.StudentDetail{}, ErrStudentNotFound
		}
		return types.StudentDetail{}, err
	}
	s.cache.Set(ctx, detail)
	return detail, nil
}

// AddNewStudent always inserts; an id on the payload is ignored.
func (s *StudentService) AddNewStudent(ctx context.Context, payload types.StudentPayload) (types.UpsertResult, error) {
	payload.ID = nil
	result, err := s.repo.Upsert(ctx, payload)
	if err != nil {
		return types.UpsertResult{}, err
	}
	result.Message = msgStudentAdded
	s.publish(ctx, types.StudentCreated, result.ID, nil, nil)
	return result, nil
}

func (s *StudentService) UpdateStudent(ctx context.Context, id int, payload types.StudentPayload) (types.UpsertResult, error) {
	if err := s.ensureStudent(ctx, id); err != nil {
		return types.UpsertResult{}, err
	}

	if s.mode == UpdateBasicOnly {
		if err := s.updateBasic(ctx, id, payload.Basic()); err != nil {
			return types.UpsertResult{}, err
		}
	} else {
		payload.ID = &id
		if _, err := s.repo.Upsert(ctx, payload); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.UpsertResult{}, fmt.Errorf("%w: update student %d", ErrConsistency, id)
			}
			return types.UpsertResult{}, err
		}
	}

	s.cache.Invalidate(ctx, id)
	s.publish(ctx, types.StudentUpdated, id, nil, nil)
	return types.UpsertResult{ID: id, Message: msgStudentUpdated}, nil
}

// UpdateBasicDetails changes name and email only, whatever the update mode.
func (s *StudentService) UpdateBasicDetails(ctx context.Context, id int, details types.BasicDetails) (types.MessageResponse, error) {
	if err := s.ensureStudent(ctx, id); err != nil {
		return types.MessageResponse{}, err
	}
	if err := s.updateBasic(ctx, id, details); err != nil {
		return types.MessageResponse{}, err
	}

	s.cache.Invalidate(ctx, id)
	s.publish(ctx, types.StudentUpdated, id, nil, nil)
	return types.MessageResponse{Message: msgStudentUpdated}, nil
}

func (s *StudentService) updateBasic(ctx context.Context, id int, details types.BasicDetails) error {
	affected, err := s.repo.UpdateBasic(ctx, id, details)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: update student %d", ErrConsistency, id)
	}
	return nil
}

// SetStudentStatus records a review decision: system access, review time
// and reviewer are written together.
func (s *StudentService) SetStudentStatus(ctx context.Context, change types.StatusChange) (types.MessageResponse, error) {
	if err := s.ensureStudent(ctx, change.UserID); err != nil {
		return types.MessageResponse{}, err
	}

	affected, err := s.repo.SetStatus(ctx, change, s.now())
	if err != nil {
		return types.MessageResponse{}, err
	}
	if affected == 0 {
		return types.MessageResponse{}, fmt.Errorf("%w: set status of student %d", ErrConsistency, change.UserID)
	}

	s.cache.Invalidate(ctx, change.UserID)
	reviewer := change.ReviewerID
	status := change.Status
	s.publish(ctx, types.StudentStatusChanged, change.UserID, &reviewer, &status)
	return types.MessageResponse{Message: msgStudentStatusChanged}, nil
}

func (s *StudentService) DeleteStudent(ctx context.Context, id int) (types.MessageResponse, error) {
	if err := s.ensureStudent(ctx, id); err != nil {
		return types.MessageResponse{}, err
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return types.MessageResponse{}, err
	}
	if affected == 0 {
		return types.MessageResponse{}, fmt.Errorf("%w: delete student %d", ErrConsistency, id)
	}

	s.cache.Invalidate(ctx, id)
	s.publish(ctx, types.StudentDeleted, id, nil, nil)
	return types.MessageResponse{Message: msgStudentDeleted}, nil
}

// ensureStudent fails with ErrStudentNotFound unless id is a user holding
// the student role.
func (s *StudentService) ensureStudent(ctx context.Context, id int) error {
	if id < 1 {
		return ErrStudentNotFound
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	if user.RoleID != s.roleID {
		return ErrStudentNotFound
	}
	return nil
}

func (s *StudentService) publish(ctx context.Context, eventType string, id int, actor *int, status *bool) {
	s.events.PublishStudentEvent(ctx, types.StudentEvent{
		Type:       eventType,
		StudentID:  id,
		ActorID:    actor,
		Status:     status,
		OccurredAt: s.now(),
	})
}

type noopCache struct{}

func (noopCache) Get(context.Context, int) (types.StudentDetail, bool) { return types.StudentDetail{}, false }
func (noopCache) Set(context.Context, types.StudentDetail)             {}
func (noopCache) Invalidate(context.Context, int)                      {}

type noopEvents struct{}

func (noopEvents) PublishStudentEvent(context.Context, types.StudentEvent) {}
