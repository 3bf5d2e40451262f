package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/campuskit/timetable-portal/internal/auth"
	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/campuskit/timetable-portal/internal/services"
	httputil "github.com/campuskit/timetable-portal/pkg/http"
)

// AuthHandler exposes the student authentication and recovery endpoints
type AuthHandler struct {
	service  *services.AuthService
	ipConfig *httputil.IPConfig
	logger   *slog.Logger
}

func NewAuthHandler(service *services.AuthService, ipConfig *httputil.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

type loginRequest struct {
	RollNumber string `json:"roll_number" validate:"required,max=20"`
	Password   string `json:"password" validate:"required,max=128"`
}

type loginResponse struct {
	Token      string          `json:"token"`
	RedirectTo string          `json:"redirect_to"`
	FirstLogin bool            `json:"first_login"`
	Student    *StudentProfile `json:"student"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := ValidateRequest(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(),
		req.RollNumber, req.Password,
		httputil.ExtractClientIP(r, h.ipConfig), r.UserAgent())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:      result.Token,
		RedirectTo: result.RedirectTo,
		FirstLogin: result.FirstLogin,
		Student:    toStudentProfile(result.Student),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=128"`
}

// ChangePassword handles POST /auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req changePasswordRequest
	if err := ValidateRequest(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	token, err := h.service.ChangePassword(r.Context(), claims.AccountID,
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword,
		httputil.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		// Distinguish a wrong current password from a stale session
		if errors.Is(err, models.ErrUnauthorized) {
			httputil.WriteUnauthorized(w, "Current password is incorrect")
			return
		}
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message":     "Password changed successfully",
		"token":       token,
		"redirect_to": "/student/timetable",
	})
}

type forgotPasswordRequest struct {
	RollNumber string `json:"roll_number" validate:"required,max=20"`
	Email      string `json:"email" validate:"required,email,max=254"`
}

// ForgotPassword handles POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := ValidateRequest(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ForgotPassword(r.Context(), req.RollNumber, req.Email,
		httputil.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httputil.WriteNotFound(w, "No account found with the provided details")
			return
		}
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "A one-time password has been sent to your email",
	})
}

type resetPasswordRequest struct {
	RollNumber      string `json:"roll_number" validate:"required,max=20"`
	OTP             string `json:"otp" validate:"required,numeric,len=6"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=128"`
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := ValidateRequest(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ResetPassword(r.Context(), req.RollNumber, req.OTP,
		req.NewPassword, req.ConfirmPassword,
		httputil.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message":     "Password reset successfully, please log in",
		"redirect_to": "/auth/login",
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), claims, httputil.ExtractClientIP(r, h.ipConfig)); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message":     "Logged out",
		"redirect_to": "/auth/login",
	})
}
