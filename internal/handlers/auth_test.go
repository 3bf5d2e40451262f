package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campuskit/timetable-portal/internal/auth"
	"github.com/campuskit/timetable-portal/internal/geo"
	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/campuskit/timetable-portal/internal/services"
	pkglogger "github.com/campuskit/timetable-portal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-that-is-long-enough"

func newTestAuthHandler(students *services.MockStudentStore) *AuthHandler {
	logger := slog.Default()
	activity := services.NewActivityService(&services.MockActivityLogStore{}, students, logger)
	tokens := auth.NewTokenManager(testJWTSecret, 24*time.Hour)

	svc := services.NewAuthService(
		students, tokens, &services.MockTokenRevoker{}, activity,
		&services.MockEmailService{}, geo.NopLocator{},
		pkglogger.NewAuditLogger(logger), logger,
		6, 10*time.Minute,
	)

	return NewAuthHandler(svc, nil, logger)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandler_Login_Success(t *testing.T) {
	student := services.NewTestStudent("CS21B001", "Sturdy-Pass-42", false)
	students := &services.MockStudentStore{
		GetByRollNumberFunc: func(ctx context.Context, rollNumber string) (*models.Student, error) {
			return student, nil
		},
	}
	handler := newTestAuthHandler(students)

	rec := postJSON(t, handler.Login, "/auth/login",
		`{"roll_number":"CS21B001","password":"Sturdy-Pass-42"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "/student/timetable", resp.RedirectTo)
	require.NotNil(t, resp.Student)
	assert.Equal(t, "CS21B001", resp.Student.RollNumber)

	// Secrets never appear in the response body
	assert.NotContains(t, rec.Body.String(), student.PasswordHash)
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	handler := newTestAuthHandler(&services.MockStudentStore{})

	rec := postJSON(t, handler.Login, "/auth/login", `{"roll_number":"CS21B001"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	handler := newTestAuthHandler(&services.MockStudentStore{})

	rec := postJSON(t, handler.Login, "/auth/login", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Login_BadCredentialsAreGeneric(t *testing.T) {
	student := services.NewTestStudent("CS21B001", "Sturdy-Pass-42", false)
	students := &services.MockStudentStore{
		GetByRollNumberFunc: func(ctx context.Context, rollNumber string) (*models.Student, error) {
			if rollNumber == "CS21B001" {
				return student, nil
			}
			return nil, models.ErrNotFound
		},
	}
	handler := newTestAuthHandler(students)

	unknownRec := postJSON(t, handler.Login, "/auth/login",
		`{"roll_number":"CS21B999","password":"whatever1"}`)
	wrongRec := postJSON(t, handler.Login, "/auth/login",
		`{"roll_number":"CS21B001","password":"wrong-password"}`)

	assert.Equal(t, http.StatusUnauthorized, unknownRec.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongRec.Code)
	// Byte-identical bodies: no account-existence oracle
	assert.Equal(t, unknownRec.Body.String(), wrongRec.Body.String())
}

func TestAuthHandler_ChangePassword_RequiresAuth(t *testing.T) {
	handler := newTestAuthHandler(&services.MockStudentStore{})

	rec := postJSON(t, handler.ChangePassword, "/auth/change-password",
		`{"current_password":"a","new_password":"Brand-New-Pass-7","confirm_password":"Brand-New-Pass-7"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_ChangePassword_WrongCurrentPassword(t *testing.T) {
	student := services.NewTestStudent("CS21B001", "Sturdy-Pass-42", false)
	students := &services.MockStudentStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Student, error) {
			return student, nil
		},
	}
	handler := newTestAuthHandler(students)

	claims := &models.TokenClaims{AccountID: student.ID, AccountType: models.UserTypeStudent}
	req := httptest.NewRequest(http.MethodPost, "/auth/change-password",
		strings.NewReader(`{"current_password":"nope","new_password":"Brand-New-Pass-7","confirm_password":"Brand-New-Pass-7"}`))
	req = req.WithContext(auth.ContextWithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()

	handler.ChangePassword(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Current password is incorrect")
}

func TestAuthHandler_ForgotPassword_UnknownAccount(t *testing.T) {
	handler := newTestAuthHandler(&services.MockStudentStore{})

	rec := postJSON(t, handler.ForgotPassword, "/auth/forgot-password",
		`{"roll_number":"CS21B999","email":"nobody@example.edu"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthHandler_ResetPassword_RejectsNonNumericOTP(t *testing.T) {
	handler := newTestAuthHandler(&services.MockStudentStore{})

	rec := postJSON(t, handler.ResetPassword, "/auth/reset-password",
		`{"roll_number":"CS21B001","otp":"abc123","new_password":"Brand-New-Pass-7","confirm_password":"Brand-New-Pass-7"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
