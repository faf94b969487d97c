package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/eduadmin/apiserver/internal/storage"
	"github.com/eduadmin/apiserver/internal/store"
	"github.com/eduadmin/apiserver/types"
	"github.com/xuri/excelize/v2"
)

type fakeObjects struct {
	key         string
	data        []byte
	contentType string
}

func (f *fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if key != f.key {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	f.key, f.data, f.contentType = key, data, contentType
	return nil
}

func TestExportRosterWalksEveryPage(t *testing.T) {
	repo := &fakeStudentRepo{lists: map[int]types.StudentList{
		1: {
			Students:   []types.StudentSummary{{ID: 1, Name: "Ann", Email: "ann@example.com", SystemAccess: true}},
			Pagination: types.Pagination{Page: 1, Limit: store.MaxLimit, Total: 2, TotalPages: 2},
		},
		2: {
			Students:   []types.StudentSummary{{ID: 2, Name: "Bob", Email: "bob@example.com"}},
			Pagination: types.Pagination{Page: 2, Limit: store.MaxLimit, Total: 2, TotalPages: 2},
		},
	}}
	objects := &fakeObjects{}
	roster := NewRosterService(newTestService(repo), objects)
	roster.newID = func() string { return "0d8f8a4e-6c2c-4a53-9a55-5a1c3f7e9b10" }

	id, err := roster.ExportRoster(context.Background(), types.StudentFilter{ClassName: "7", Page: 5, Limit: 3})
	if err != nil {
		t.Fatalf("ExportRoster: %v", err)
	}
	if id != "0d8f8a4e-6c2c-4a53-9a55-5a1c3f7e9b10" || objects.key != "rosters/"+id+".xlsx" {
		t.Fatalf("id = %q, stored %q", id, objects.key)
	}
	if objects.contentType != RosterContentType {
		t.Fatalf("content type = %q", objects.contentType)
	}
	if len(repo.listFilters) != 2 || repo.listFilters[0].ClassName != "7" || repo.listFilters[1].Page != 2 {
		t.Fatalf("filters = %+v", repo.listFilters)
	}

	f, err := excelize.OpenReader(bytes.NewReader(objects.data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(rosterSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][1] != "Ann" || rows[2][2] != "bob@example.com" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestExportRosterWithoutStorage(t *testing.T) {
	roster := NewRosterService(newTestService(&fakeStudentRepo{}), nil)
	if _, err := roster.ExportRoster(context.Background(), types.StudentFilter{}); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable, got %v", err)
	}
}

func TestOpenRoster(t *testing.T) {
	objects := &fakeObjects{key: "rosters/0d8f8a4e-6c2c-4a53-9a55-5a1c3f7e9b10.xlsx", data: []byte("xlsx")}
	roster := NewRosterService(newTestService(&fakeStudentRepo{}), objects)

	rc, err := roster.OpenRoster(context.Background(), "0d8f8a4e-6c2c-4a53-9a55-5a1c3f7e9b10")
	if err != nil {
		t.Fatalf("OpenRoster: %v", err)
	}
	_ = rc.Close()

	for _, id := range []string{"../etc/passwd", "6f1e3b52-0000-4000-8000-000000000000"} {
		if _, err := roster.OpenRoster(context.Background(), id); !errors.Is(err, ErrExportNotFound) {
			t.Errorf("OpenRoster(%q) = %v, want ErrExportNotFound", id, err)
		}
	}
}
