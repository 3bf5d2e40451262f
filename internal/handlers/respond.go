package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/campuskit/timetable-portal/internal/models"
	pkgauth "github.com/campuskit/timetable-portal/pkg/auth"
	httputil "github.com/campuskit/timetable-portal/pkg/http"
)

// writeServiceError maps service-layer sentinel errors onto HTTP responses.
// Anything unmapped becomes an opaque 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var pwErr *pkgauth.PasswordValidationError

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		httputil.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrAccountLocked):
		httputil.WriteLocked(w, "Account is temporarily locked due to repeated failed login attempts. Try again later.")
	case errors.Is(err, models.ErrAccountInactive):
		httputil.WriteForbidden(w, "Account is not active")
	case errors.Is(err, models.ErrOTPInvalid):
		httputil.WriteBadRequest(w, "Invalid or expired OTP")
	case errors.Is(err, models.ErrPasswordMismatch):
		httputil.WriteBadRequest(w, "New passwords do not match")
	case errors.As(err, &pwErr):
		httputil.WriteBadRequest(w, "Password does not meet the security requirements")
	case errors.Is(err, models.ErrNotFound):
		httputil.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		httputil.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrBadRequest):
		httputil.WriteBadRequest(w, "Invalid request")
	default:
		httputil.WriteInternalError(w, "Something went wrong")
	}
}

// StudentProfile is the public shape of a student record; credential and
// recovery fields never leave the service
type StudentProfile struct {
	ID                string            `json:"id"`
	RollNumber        string            `json:"roll_number"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Department        string            `json:"department"`
	Program           string            `json:"program"`
	Batch             int               `json:"batch"`
	School            string            `json:"school"`
	Status            string            `json:"status"`
	IsFirstLogin      bool              `json:"is_first_login"`
	LastLoginAt       *time.Time        `json:"last_login_at,omitempty"`
	LastLoginLocation string            `json:"last_login_location,omitempty"`
	Courses           models.CourseList `json:"courses"`
}

func toStudentProfile(s *models.Student) *StudentProfile {
	profile := &StudentProfile{
		ID:           s.ID,
		RollNumber:   s.RollNumber,
		Name:         s.Name,
		Email:        s.Email,
		Department:   s.Department,
		Program:      s.Program,
		Batch:        s.Batch,
		School:       s.School,
		Status:       s.Status,
		IsFirstLogin: s.IsFirstLogin,
		LastLoginAt:  s.LastLoginAt,
		Courses:      s.Courses,
	}
	if s.LastLoginLocation != nil {
		profile.LastLoginLocation = s.LastLoginLocation.String()
	}
	return profile
}

// AdminProfile is the public shape of an admin record
type AdminProfile struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func toAdminProfile(a *models.Admin) *AdminProfile {
	return &AdminProfile{
		ID:          a.ID,
		Username:    a.Username,
		Name:        a.Name,
		Email:       a.Email,
		Role:        a.Role,
		Permissions: a.Permissions,
		LastLoginAt: a.LastLoginAt,
	}
}
