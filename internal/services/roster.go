package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/eduadmin/apiserver/internal/storage"
	"github.com/eduadmin/apiserver/internal/store"
	"github.com/eduadmin/apiserver/types"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	rosterSheet       = "Students"
	rosterKeyPrefix   = "rosters/"
	RosterContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var rosterHeader = []any{"ID", "Name", "Email", "System Access", "Last Login"}

// StudentLister pages through students matching a filter.
type StudentLister interface {
	GetAllStudents(ctx context.Context, filter types.StudentFilter) (types.StudentList, error)
}

// ObjectStore uploads and opens objects. storage.Storage satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// RosterService renders filtered student rosters to XLSX and uploads them.
type RosterService struct {
	students StudentLister
	objects  ObjectStore
	newID   func() string
}

// NewRosterService returns a RosterService. A nil objects disables exports.
func NewRosterService(students StudentLister, objects ObjectStore) *RosterService {
	return &RosterService{
		students: students,
		objects:  objects,
		newID:   uuid.NewString,
	}
}

func rosterKey(exportID string) string {
	return rosterKeyPrefix + exportID + ".xlsx"
}

// ExportRoster writes every student matching filter, ignoring its page and
// limit, and returns the export id of the uploaded workbook.
func (s *RosterService) ExportRoster(ctx context.Context, filter types.StudentFilter) (string, error) {
	if s.objects == nil {
		return "", ErrExportUnavailable
	}

	students, err := s.collect(ctx, filter)
	if err != nil {
		return "", err
	}

	buf, err := renderRoster(students)
	if err != nil {
		return "", err
	}

	exportID := s.newID()
	if err := s.objects.Put(ctx, rosterKey(exportID), bytes.NewReader(buf.Bytes()), int64(buf.Len()), RosterContentType); err != nil {
		return "", fmt.Errorf("upload roster: %w", err)
	}
	return exportID, nil
}

// OpenRoster returns the workbook stored for exportID. Unknown ids yield
// ErrExportNotFound.
func (s *RosterService) OpenRoster(ctx context.Context, exportID string) (io.ReadCloser, error) {
	if s.objects == nil {
		return nil, ErrExportUnavailable
	}
	if _, err := uuid.Parse(exportID); err != nil {
		return nil, ErrExportNotFound
	}
	rc, err := s.objects.Get(ctx, rosterKey(exportID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}
	return rc, nil
}

func (s *RosterService) collect(ctx context.Context, filter types.StudentFilter) ([]types.StudentSummary, error) {
	filter.Limit = store.MaxLimit
	var all []types.StudentSummary
	for page := 1; ; page++ {
		filter.Page = page
		list, err := s.students.GetAllStudents(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, list.Students...)
		if page >= list.Pagination.TotalPages || len(list.Students) == 0 {
			return all, nil
		}
	}
}

func renderRoster(students []types.StudentSummary) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return nil, fmt.Errorf("name roster sheet: %w", err)
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &rosterHeader); err != nil {
		return nil, fmt.Errorf("write roster header: %w", err)
	}

	for i, student := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		lastLogin := ""
		if student.LastLogin != nil {
			lastLogin = student.LastLogin.UTC().Format(time.RFC3339)
		}
		row := []any{student.ID, student.Name, student.Email, student.SystemAccess, lastLogin}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write roster row %d: %w", i+1, err)
		}
	}

	return f.WriteToBuffer()
}
