package handlers

import (
	"log/slog"
	"net/http"

	"github.com/campuskit/timetable-portal/internal/auth"
	"github.com/campuskit/timetable-portal/internal/services"
	httputil "github.com/campuskit/timetable-portal/pkg/http"
	"github.com/go-chi/chi/v5"
)

// StudentHandler exposes the authenticated student's own views
type StudentHandler struct {
	service *services.AuthService
	logger  *slog.Logger
}

func NewStudentHandler(service *services.AuthService, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{service: service, logger: logger}
}

// Timetable handles GET /student/timetable, returning the caller's
// pre-computed course schedule
func (h *StudentHandler) Timetable(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	student, err := h.service.Profile(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"roll_number": student.RollNumber,
		"name":        student.Name,
		"courses":     student.Courses,
	})
}

// TimetableByID handles GET /students/{studentID}/timetable; the ownership
// gate has already vetted the id
func (h *StudentHandler) TimetableByID(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if studentID == "" {
		httputil.WriteBadRequest(w, "student id is required")
		return
	}

	student, err := h.service.Profile(r.Context(), studentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"roll_number": student.RollNumber,
		"name":        student.Name,
		"courses":     student.Courses,
	})
}

// Profile handles GET /student/profile
func (h *StudentHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	student, err := h.service.Profile(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toStudentProfile(student))
}
