package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/eduadmin/apiserver/internal/store"
	"github.com/eduadmin/apiserver/types"
)

var reviewTime = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func newTestService(repo *fakeStudentRepo, opts ...StudentOption) *StudentService {
	users := fakeUsers{
		1: {ID: 1, Name: "John", RoleID: studentRole},
		9: {ID: 9, Name: "Reviewer", RoleID: 1},
	}
	opts = append([]StudentOption{WithClock(func() time.Time { return reviewTime })}, opts...)
	return NewStudentService(repo, users, studentRole, opts...)
}

func TestGetStudentDetailMissingSkipsDetailQuery(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := newTestService(repo)

	_, err := svc.GetStudentDetail(context.Background(), 404)
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if err.Error() != "Student not found" {
		t.Fatalf("message = %q", err.Error())
	}
	if len(repo.calls) != 0 {
		t.Fatalf("expected no repository calls, got %v", repo.calls)
	}
}

func TestGetStudentDetailRejectsNonStudent(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := newTestService(repo)

	if _, err := svc.GetStudentDetail(context.Background(), 9); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if len(repo.calls) != 0 {
		t.Fatalf("expected no repository calls, got %v", repo.calls)
	}
}

func TestGetStudentDetailUsesCache(t *testing.T) {
	repo := &fakeStudentRepo{detail: types.StudentDetail{ID: 1, Name: "John"}}
	cache := newFakeCache()
	svc := newTestService(repo, WithDetailCache(cache))

	for i := 0; i < 2; i++ {
		got, err := svc.GetStudentDetail(context.Background(), 1)
		if err != nil {
			t.Fatalf("GetStudentDetail: %v", err)
		}
		if got.Name != "John" {
			t.Fatalf("unexpected detail: %+v", got)
		}
	}
	if !reflect.DeepEqual(repo.calls, []string{"Detail"}) {
		t.Fatalf("calls = %v", repo.calls)
	}
}

func TestGetStudentDetailVanished(t *testing.T) {
	repo := &fakeStudentRepo{detailErr: store.ErrNotFound}
	svc := newTestService(repo)

	if _, err := svc.GetStudentDetail(context.Background(), 1); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestAddNewStudentClearsID(t *testing.T) {
	repo := &fakeStudentRepo{upsert: types.UpsertResult{ID: 7, Created: true}}
	events := &fakeEvents{}
	svc := newTestService(repo, WithEventPublisher(events))

	id := 1
	got, err := svc.AddNewStudent(context.Background(), types.StudentPayload{ID: &id, Name: "Ann"})
	if err != nil {
		t.Fatalf("AddNewStudent: %v", err)
	}
	if got.Message != "Student added successfully" || got.ID != 7 || !got.Created {
		t.Fatalf("unexpected result: %+v", got)
	}
	if repo.upserted[0].ID != nil {
		t.Fatalf("payload id was not cleared")
	}
	if len(events.events) != 1 || events.events[0].Type != types.StudentCreated || events.events[0].StudentID != 7 {
		t.Fatalf("unexpected events: %+v", events.events)
	}
}

func TestAddNewStudentPropagatesStoreError(t *testing.T) {
	repo := &fakeStudentRepo{upsertErr: store.ErrDuplicate}
	events := &fakeEvents{}
	svc := newTestService(repo, WithEventPublisher(events))

	if _, err := svc.AddNewStudent(context.Background(), types.StudentPayload{Name: "Ann"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if len(events.events) != 0 {
		t.Fatalf("no event expected on failure")
	}
}

func TestUpdateStudentModes(t *testing.T) {
	tests := []struct {
		name      string
		mode      UpdateMode
		wantCalls []string
	}{
		{name: "replace", mode: UpdateReplace, wantCalls: []string{"Upsert"}},
		{name: "basic", mode: UpdateBasicOnly, wantCalls: []string{"UpdateBasic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeStudentRepo{upsert: types.UpsertResult{ID: 1}, affected: 1}
			cache := newFakeCache()
			svc := newTestService(repo, WithUpdateMode(tt.mode), WithDetailCache(cache))

			got, err := svc.UpdateStudent(context.Background(), 1, types.StudentPayload{Name: "John", Email: "j@example.com"})
			if err != nil {
				t.Fatalf("UpdateStudent: %v", err)
			}
			if got.Message != "Student updated successfully" || got.ID != 1 {
				t.Fatalf("unexpected result: %+v", got)
			}
			if !reflect.DeepEqual(repo.calls, tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", repo.calls, tt.wantCalls)
			}
			if tt.mode == UpdateReplace && (repo.upserted[0].ID == nil || *repo.upserted[0].ID != 1) {
				t.Fatalf("upsert did not carry the id")
			}
			if tt.mode == UpdateBasicOnly && repo.basic != (types.BasicDetails{Name: "John", Email: "j@example.com"}) {
				t.Fatalf("basic details = %+v", repo.basic)
			}
			if !reflect.DeepEqual(cache.invalidated, []int{1}) {
				t.Fatalf("invalidated = %v", cache.invalidated)
			}
		})
	}
}

func TestUpdateStudentMissing(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := newTestService(repo)

	if _, err := svc.UpdateStudent(context.Background(), 2, types.StudentPayload{}); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if len(repo.calls) != 0 {
		t.Fatalf("expected no repository calls, got %v", repo.calls)
	}
}

func TestUpdateStudentVanishedDuringUpsert(t *testing.T) {
	repo := &fakeStudentRepo{upsertErr: store.ErrNotFound}
	svc := newTestService(repo)

	if _, err := svc.UpdateStudent(context.Background(), 1, types.StudentPayload{}); !errors.Is(err, ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
}

func TestUpdateBasicDetailsZeroRows(t *testing.T) {
	repo := &fakeStudentRepo{affected: 0}
	svc := newTestService(repo)

	if _, err := svc.UpdateBasicDetails(context.Background(), 1, types.BasicDetails{Name: "x"}); !errors.Is(err, ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
}

func TestSetStudentStatus(t *testing.T) {
	repo := &fakeStudentRepo{affected: 1}
	events := &fakeEvents{}
	svc := newTestService(repo, WithEventPublisher(events))

	change := types.StatusChange{UserID: 1, ReviewerID: 9, Status: false}
	got, err := svc.SetStudentStatus(context.Background(), change)
	if err != nil {
		t.Fatalf("SetStudentStatus: %v", err)
	}
	if got.Message != "Student status changed successfully" {
		t.Fatalf("message = %q", got.Message)
	}
	if repo.status != change || !repo.statusAt.Equal(reviewTime) {
		t.Fatalf("status written = %+v at %v", repo.status, repo.statusAt)
	}

	event := events.events[0]
	if event.Type != types.StudentStatusChanged || *event.ActorID != 9 || *event.Status {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestSetStudentStatusMissing(t *testing.T) {
	repo := &fakeStudentRepo{affected: 1}
	svc := newTestService(repo)

	_, err := svc.SetStudentStatus(context.Background(), types.StatusChange{UserID: 5, ReviewerID: 9})
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if len(repo.calls) != 0 {
		t.Fatalf("expected no repository calls, got %v", repo.calls)
	}
}

func TestSetStudentStatusZeroRows(t *testing.T) {
	repo := &fakeStudentRepo{affected: 0}
	svc := newTestService(repo)

	_, err := svc.SetStudentStatus(context.Background(), types.StatusChange{UserID: 1, ReviewerID: 9})
	if !errors.Is(err, ErrConsistency) || errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrConsistency only, got %v", err)
	}
}

func TestDeleteStudent(t *testing.T) {
	repo := &fakeStudentRepo{affected: 1}
	cache := newFakeCache()
	svc := newTestService(repo, WithDetailCache(cache))

	got, err := svc.DeleteStudent(context.Background(), 1)
	if err != nil {
		t.Fatalf("DeleteStudent: %v", err)
	}
	if got.Message != "Student deleted successfully" {
		t.Fatalf("message = %q", got.Message)
	}
	if !reflect.DeepEqual(cache.invalidated, []int{1}) {
		t.Fatalf("invalidated = %v", cache.invalidated)
	}
}

func TestDeleteStudentMissingExecutesNothing(t *testing.T) {
	repo := &fakeStudentRepo{affected: 1}
	svc := newTestService(repo)

	_, err := svc.DeleteStudent(context.Background(), 2)
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if len(repo.calls) != 0 {
		t.Fatalf("expected no repository calls, got %v", repo.calls)
	}
}

func TestDeleteStudentZeroRowsIsConsistencyError(t *testing.T) {
	repo := &fakeStudentRepo{affected: 0}
	svc := newTestService(repo)

	_, err := svc.DeleteStudent(context.Background(), 1)
	if !errors.Is(err, ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
}

func TestParseUpdateMode(t *testing.T) {
	tests := []struct {
		in      string
		want    UpdateMode
		wantErr bool
	}{
		{in: "", want: UpdateReplace},
		{in: "replace", want: UpdateReplace},
		{in: " Basic ", want: UpdateBasicOnly},
		{in: "merge", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseUpdateMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseUpdateMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}
