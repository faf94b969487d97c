package services

import (
	"context"
	"time"

	"github.com/eduadmin/apiserver/internal/store"
	"github.com/eduadmin/apiserver/types"
)

const studentRole = 3

type fakeStudentRepo struct {
	list        types.StudentList
	lists       map[int]types.StudentList
	detail      types.StudentDetail
	detailErr   error
	upsert      types.UpsertResult
	upsertErr   error
	affected    int64
	calls       []string
	upserted    []types.StudentPayload
	statusAt    time.Time
	status      types.StatusChange
	basic       types.BasicDetails
	listFilters []types.StudentFilter
}

func (f *fakeStudentRepo) List(_ context.Context, filter types.StudentFilter) (types.StudentList, error) {
	f.calls = append(f.calls, "List")
	f.listFilters = append(f.listFilters, filter)
	if f.lists != nil {
		return f.lists[filter.Page], nil
	}
	return f.list, nil
}

func (f *fakeStudentRepo) Detail(_ context.Context, id int) (types.StudentDetail, error) {
	f.calls = append(f.calls, "Detail")
	return f.detail, f.detailErr
}

func (f *fakeStudentRepo) Upsert(_ context.Context, payload types.StudentPayload) (types.UpsertResult, error) {
	f.calls = append(f.calls, "Upsert")
	f.upserted = append(f.upserted, payload)
	return f.upsert, f.upsertErr
}

func (f *fakeStudentRepo) UpdateBasic(_ context.Context, id int, details types.BasicDetails) (int64, error) {
	f.calls = append(f.calls, "UpdateBasic")
	f.basic = details
	return f.affected, nil
}

func (f *fakeStudentRepo) SetStatus(_ context.Context, change types.StatusChange, at time.Time) (int64, error) {
	f.calls = append(f.calls, "SetStatus")
	f.status = change
	f.statusAt = at
	return f.affected, nil
}

func (f *fakeStudentRepo) Delete(_ context.Context, id int) (int64, error) {
	f.calls = append(f.calls, "Delete")
	return f.affected, nil
}

type fakeUsers map[int]types.User

func (f fakeUsers) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := f[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

type fakeCache struct {
	entries     map[int]types.StudentDetail
	invalidated []int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[int]types.StudentDetail{}}
}

func (c *fakeCache) Get(_ context.Context, id int) (types.StudentDetail, bool) {
	d, ok := c.entries[id]
	return d, ok
}

func (c *fakeCache) Set(_ context.Context, detail types.StudentDetail) {
	c.entries[detail.ID] = detail
}

func (c *fakeCache) Invalidate(_ context.Context, id int) {
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
}

type fakeEvents struct {
	events []types.StudentEvent
}

func (f *fakeEvents) PublishStudentEvent(_ context.Context, event types.StudentEvent) {
	f.events = append(f.events, event)
}
