package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/eduadmin/apiserver/internal/logger"
	"github.com/eduadmin/apiserver/internal/services"
	"github.com/eduadmin/apiserver/internal/store"
	"github.com/eduadmin/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// StudentService is the set of student use-cases served over HTTP.
type StudentService interface {
	GetAllStudents(ctx context.Context, filter types.StudentFilter) (types.StudentList, error)
	GetStudentDetail(ctx context.Context, id int) (types.StudentDetail, error)
	AddNewStudent(ctx context.Context, payload types.StudentPayload) (types.UpsertResult, error)
	UpdateStudent(ctx context.Context, id int, payload types.StudentPayload) (types.UpsertResult, error)
	UpdateBasicDetails(ctx context.Context, id int, details types.BasicDetails) (types.MessageResponse, error)
	SetStudentStatus(ctx context.Context, change types.StatusChange) (types.MessageResponse, error)
	DeleteStudent(ctx context.Context, id int) (types.MessageResponse, error)
}

// RosterService exports filtered rosters as workbooks.
type RosterService interface {
	ExportRoster(ctx context.Context, filter types.StudentFilter) (string, error)
	OpenRoster(ctx context.Context, exportID string) (io.ReadCloser, error)
}

// StudentHandler provides HTTP handlers for students.
type StudentHandler struct {
	students StudentService
	rosters  RosterService
	validate *validator.Validate
	log      zerolog.Logger
}

func NewStudentHandler(students StudentService, rosters RosterService) *StudentHandler {
	return &StudentHandler{
		students: students,
		rosters:  rosters,
		validate: newValidator(),
		log:      logger.With("handlers"),
	}
}

// StudentRouter registers student routes on the given router. Every route
// requires authentication when authMiddleware is set.
func StudentRouter(
	r chi.Router,
	students StudentService,
	rosters RosterService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewStudentHandler(students, rosters)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/", handler.ListStudents)
	r.Post("/", handler.AddStudent)
	r.Post("/exports", handler.ExportRoster)
	r.Get("/exports/{exportID}", handler.DownloadRoster)
	r.Route("/{studentID}", func(r chi.Router) {
		r.Get("/", handler.GetStudent)
		r.Put("/", handler.UpdateStudent)
		r.Delete("/", handler.DeleteStudent)
		r.Patch("/basic", handler.UpdateBasicDetails)
		r.Post("/status", handler.SetStatus)
	})
}

func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseStudentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.students.GetAllStudents(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list students")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseStudentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.students.GetStudentDetail(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to fetch student")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *StudentHandler) AddStudent(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	result, err := h.students.AddNewStudent(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to add student")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *StudentHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseStudentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	if payload.ID != nil && *payload.ID != id {
		writeError(w, http.StatusBadRequest, "id does not match path")
		return
	}

	result, err := h.students.UpdateStudent(r.Context(), id, payload)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to update student")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *StudentHandler) UpdateBasicDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseStudentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var details types.BasicDetails
	if err := decodeJSON(w, r, &details); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	details.Name = strings.TrimSpace(details.Name)
	details.Email = strings.TrimSpace(details.Email)
	if err := h.validate.Struct(details); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp, err := h.students.UpdateBasicDetails(r.Context(), id, details)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to update student")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetStatus records the authenticated user as the reviewer.
func (h *StudentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseStudentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reviewerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp, err := h.students.SetStudentStatus(r.Context(), types.StatusChange{
		UserID:     id,
		ReviewerID: reviewerID,
		Status:     *req.Status,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "failed to change student status")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StudentHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseStudentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.students.DeleteStudent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to delete student")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportRoster takes the same query filters as ListStudents.
func (h *StudentHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	filter, err := parseStudentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exportID, err := h.rosters.ExportRoster(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to export roster")
		return
	}
	writeJSON(w, http.StatusCreated, ExportResponse{ExportID: exportID})
}

func (h *StudentHandler) DownloadRoster(w http.ResponseWriter, r *http.Request) {
	exportID := chi.URLParam(r, "exportID")
	rc, err := h.rosters.OpenRoster(r.Context(), exportID)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to open roster")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", services.RosterContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="roster-`+exportID+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn().Err(err).Str("export_id", exportID).Msg("roster download interrupted")
	}
}

func (h *StudentHandler) decodePayload(w http.ResponseWriter, r *http.Request) (types.StudentPayload, bool) {
	var payload types.StudentPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return types.StudentPayload{}, false
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = strings.TrimSpace(payload.Email)
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return types.StudentPayload{}, false
	}
	return payload, true
}

func (h *StudentHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, services.ErrStudentNotFound.Error())
	case errors.Is(err, services.ErrExportNotFound):
		writeError(w, http.StatusNotFound, services.ErrExportNotFound.Error())
	case errors.Is(err, store.ErrInvalidPagination):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "email already exists")
	case errors.Is(err, services.ErrExportUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, services.ErrConsistency):
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("consistency anomaly")
		writeError(w, http.StatusInternalServerError, services.ErrConsistency.Error())
	default:
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// StatusRequest is the body of a status review.
type StatusRequest struct {
	Status *bool `json:"status" validate:"required"`
}

// ExportResponse identifies a stored roster export.
type ExportResponse struct {
	ExportID string `json:"exportId"`
}

// parseStudentFilter reads the list filters from the query string. Page and
// limit are optional but must be positive when given.
func parseStudentFilter(r *http.Request) (types.StudentFilter, error) {
	q := r.URL.Query()
	filter := types.StudentFilter{
		Name:      strings.TrimSpace(q.Get("name")),
		ClassName: strings.TrimSpace(q.Get("class")),
		Section:   strings.TrimSpace(q.Get("section")),
		Roll:      strings.TrimSpace(q.Get("roll")),
		Search:    strings.TrimSpace(q.Get("search")),
	}

	var err error
	if filter.Page, err = positiveQueryInt(q.Get("page")); err != nil {
		return types.StudentFilter{}, errors.New("invalid page")
	}
	if filter.Limit, err = positiveQueryInt(q.Get("limit")); err != nil {
		return types.StudentFilter{}, errors.New("invalid limit")
	}
	return filter, nil
}

func positiveQueryInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("must be a positive integer")
	}
	return n, nil
}

func parseStudentID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "studentID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid student id")
	}
	return id, nil
}
