package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/campuskit/timetable-portal/internal/auth"
	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/campuskit/timetable-portal/internal/services"
	httputil "github.com/campuskit/timetable-portal/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes the admin area: login, dashboard, roster and the
// activity log browser
type AdminHandler struct {
	service  *services.AdminService
	activity *services.ActivityService
	ipConfig *httputil.IPConfig
	logger   *slog.Logger
}

func NewAdminHandler(service *services.AdminService, activity *services.ActivityService, ipConfig *httputil.IPConfig, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service:  service,
		activity: activity,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

type adminLoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

type adminLoginResponse struct {
	Token      string        `json:"token"`
	RedirectTo string        `json:"redirect_to"`
	Admin      *AdminProfile `json:"admin"`
}

// Login handles POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := ValidateRequest(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password,
		httputil.ExtractClientIP(r, h.ipConfig), r.UserAgent())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, adminLoginResponse{
		Token:      result.Token,
		RedirectTo: result.RedirectTo,
		Admin:      toAdminProfile(result.Admin),
	})
}

// Logout handles POST /admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), claims, httputil.ExtractClientIP(r, h.ipConfig)); err != nil {
		h.logger.Error("admin logout failed", slog.String("error", err.Error()))
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message":     "Logged out",
		"redirect_to": "/admin/login",
	})
}

// Dashboard handles GET /admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, data)
}

// Students handles GET /admin/students (paginated roster)
func (h *AdminHandler) Students(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)

	students, total, err := h.service.Roster(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	profiles := make([]*StudentProfile, 0, len(students))
	for _, s := range students {
		profiles = append(profiles, toStudentProfile(s))
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"students":    profiles,
		"total_count": total,
		"page":        page,
		"limit":       limit,
	})
}

// StudentDetails handles GET /admin/students/{rollNumber}
func (h *AdminHandler) StudentDetails(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	rollNumber := chi.URLParam(r, "rollNumber")
	if rollNumber == "" {
		httputil.WriteBadRequest(w, "roll number is required")
		return
	}

	details, err := h.service.StudentDetails(r.Context(), claims.AccountID, rollNumber)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"student":          toStudentProfile(details.Student),
		"activity_summary": details.Summary,
		"recent_activity":  details.RecentActivity,
	})
}

// ActivityLogs handles GET /admin/activity-logs
func (h *AdminHandler) ActivityLogs(w http.ResponseWriter, r *http.Request) {
	input := services.ActivityQueryInput{
		RollNumber: r.URL.Query().Get("roll_number"),
		UserID:     r.URL.Query().Get("user_id"),
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entity_type"),
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", 50),
	}

	if userType := r.URL.Query().Get("user_type"); userType != "" {
		ut := models.UserType(userType)
		if !ut.Valid() {
			httputil.WriteBadRequest(w, "user_type must be \"student\" or \"admin\"")
			return
		}
		input.UserType = ut
	}

	startDate, err := queryDate(r, "start_date", false)
	if err != nil {
		httputil.WriteBadRequest(w, "start_date must be YYYY-MM-DD or RFC 3339")
		return
	}
	endDate, err := queryDate(r, "end_date", true)
	if err != nil {
		httputil.WriteBadRequest(w, "end_date must be YYYY-MM-DD or RFC 3339")
		return
	}
	input.StartDate = startDate
	input.EndDate = endDate

	page, err := h.activity.Query(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

// queryDate accepts a bare date or a full timestamp; bare end dates are
// pushed to end of day so the filter is inclusive
func queryDate(r *http.Request, key string, endOfDay bool) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
