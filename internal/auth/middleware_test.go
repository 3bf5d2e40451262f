package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRevocation struct {
	revoked bool
	err     error
}

func (m *mockRevocation) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return m.revoked, m.err
}

type mockStudentReader struct {
	student *models.Student
	err     error
}

func (m *mockStudentReader) GetByID(ctx context.Context, id string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.student, nil
}

type mockAdminReader struct {
	admin *models.Admin
	err   error
}

func (m *mockAdminReader) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.admin, nil
}

func newTestMiddleware(revocation *mockRevocation, students *mockStudentReader, admins *mockAdminReader) (*Middleware, *TokenManager) {
	tm := NewTokenManager(testSecret, 24*time.Hour)
	if revocation == nil {
		revocation = &mockRevocation{}
	}
	if students == nil {
		students = &mockStudentReader{err: models.ErrNotFound}
	}
	if admins == nil {
		admins = &mockAdminReader{err: models.ErrNotFound}
	}
	return NewMiddleware(tm, revocation, students, admins, slog.Default(), false), tm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	mw, _ := newTestMiddleware(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/student/timetable", nil)
	rec := httptest.NewRecorder()

	mw.Authenticate(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	mw, _ := newTestMiddleware(nil, nil, nil)

	for _, header := range []string{"Basic abc", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/student/timetable", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()

		mw.Authenticate(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	mw, tm := newTestMiddleware(nil, nil, nil)

	token, err := tm.IssueStudentToken(&models.Student{ID: "11111111-1111-1111-1111-111111111111"})
	require.NoError(t, err)

	var gotClaims *models.TokenClaims
	var gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = GetClaimsFromContext(r.Context())
		gotToken, _ = GetTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/student/timetable", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", gotClaims.AccountID)
	assert.Equal(t, token, gotToken)
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	mw, tm := newTestMiddleware(&mockRevocation{revoked: true}, nil, nil)

	token, err := tm.IssueStudentToken(&models.Student{ID: "11111111-1111-1111-1111-111111111111"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/student/timetable", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.Authenticate(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAccountType_WrongType(t *testing.T) {
	mw, _ := newTestMiddleware(nil, nil, nil)

	claims := &models.TokenClaims{AccountID: "s1", AccountType: models.UserTypeStudent}
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req = req.WithContext(ContextWithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()

	mw.RequireAccountType(models.UserTypeAdmin)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	// Strays are pointed back at their own home
	assert.Equal(t, "/student/timetable", decodeError(t, rec)["redirect_to"])
}

func TestRequireAccountType_Match(t *testing.T) {
	mw, _ := newTestMiddleware(nil, nil, nil)

	claims := &models.TokenClaims{AccountID: "a1", AccountType: models.UserTypeAdmin}
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req = req.WithContext(ContextWithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()

	mw.RequireAccountType(models.UserTypeAdmin)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission_ReadsCurrentState(t *testing.T) {
	admin := &models.Admin{
		ID:          "a1",
		Role:        models.AdminRoleAdmin,
		Permissions: []string{models.PermManageStudents},
		Status:      models.AdminStatusActive,
	}
	mw, _ := newTestMiddleware(nil, nil, &mockAdminReader{admin: admin})

	claims := &models.TokenClaims{
		AccountID:   "a1",
		AccountType: models.UserTypeAdmin,
		Role:        models.AdminRoleAdmin,
		// Token still claims the permission, but the row no longer grants it
		Permissions: []string{models.PermViewActivityLogs},
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/activity-logs", nil)
	req = req.WithContext(ContextWithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()

	mw.RequirePermission(models.PermViewActivityLogs)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermission_SuperAdminImpliesAll(t *testing.T) {
	admin := &models.Admin{
		ID:     "a1",
		Role:   models.AdminRoleSuper,
		Status: models.AdminStatusActive,
	}
	mw, _ := newTestMiddleware(nil, nil, &mockAdminReader{admin: admin})

	claims := &models.TokenClaims{AccountID: "a1", AccountType: models.UserTypeAdmin, Role: models.AdminRoleSuper}
	req := httptest.NewRequest(http.MethodGet, "/admin/activity-logs", nil)
	req = req.WithContext(ContextWithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()

	mw.RequirePermission(models.PermViewActivityLogs)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission_DeactivatedAdmin(t *testing.T) {
	admin := &models.Admin{ID: "a1", Role: models.AdminRoleSuper, Status: models.AdminStatusInactive}
	mw, _ := newTestMiddleware(nil, nil, &mockAdminReader{admin: admin})

	claims := &models.TokenClaims{AccountID: "a1", AccountType: models.UserTypeAdmin, Role: models.AdminRoleSuper}
	req := httptest.NewRequest(http.MethodGet, "/admin/activity-logs", nil)
	req = req.WithContext(ContextWithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()

	mw.RequirePermission(models.PermViewActivityLogs)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOwnership(t *testing.T) {
	mw, _ := newTestMiddleware(nil, nil, nil)

	router := chi.NewRouter()
	router.With(mw.RequireOwnership("studentID")).
		Get("/students/{studentID}/timetable", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

	t.Run("own record", func(t *testing.T) {
		claims := &models.TokenClaims{AccountID: "s1", AccountType: models.UserTypeStudent}
		req := httptest.NewRequest(http.MethodGet, "/students/s1/timetable", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("someone else's record", func(t *testing.T) {
		claims := &models.TokenClaims{AccountID: "s1", AccountType: models.UserTypeStudent}
		req := httptest.NewRequest(http.MethodGet, "/students/s2/timetable", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin bypasses ownership", func(t *testing.T) {
		claims := &models.TokenClaims{AccountID: "a1", AccountType: models.UserTypeAdmin}
		req := httptest.NewRequest(http.MethodGet, "/students/s2/timetable", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestFirstLoginGate(t *testing.T) {
	firstLogin := &models.Student{ID: "s1", Status: models.StudentStatusActive, IsFirstLogin: true}
	settled := &models.Student{ID: "s1", Status: models.StudentStatusActive, IsFirstLogin: false}

	t.Run("blocks first-login student", func(t *testing.T) {
		mw, _ := newTestMiddleware(nil, &mockStudentReader{student: firstLogin}, nil)

		claims := &models.TokenClaims{AccountID: "s1", AccountType: models.UserTypeStudent, FirstLogin: true}
		req := httptest.NewRequest(http.MethodGet, "/student/timetable", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		mw.FirstLoginGate(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "password_change_required", body["error"])
		assert.Equal(t, "/auth/change-password", body["redirect_to"])
	})

	t.Run("change-password path is exempt", func(t *testing.T) {
		mw, _ := newTestMiddleware(nil, &mockStudentReader{student: firstLogin}, nil)

		claims := &models.TokenClaims{AccountID: "s1", AccountType: models.UserTypeStudent, FirstLogin: true}
		req := httptest.NewRequest(http.MethodPost, "/auth/change-password", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		mw.FirstLoginGate(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reads current state, not the stale token", func(t *testing.T) {
		mw, _ := newTestMiddleware(nil, &mockStudentReader{student: settled}, nil)

		// Token minted before the password change still says first login
		claims := &models.TokenClaims{AccountID: "s1", AccountType: models.UserTypeStudent, FirstLogin: true}
		req := httptest.NewRequest(http.MethodGet, "/student/timetable", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		mw.FirstLoginGate(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("inactive student rejected", func(t *testing.T) {
		inactive := &models.Student{ID: "s1", Status: models.StudentStatusInactive}
		mw, _ := newTestMiddleware(nil, &mockStudentReader{student: inactive}, nil)

		claims := &models.TokenClaims{AccountID: "s1", AccountType: models.UserTypeStudent}
		req := httptest.NewRequest(http.MethodGet, "/student/timetable", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		mw.FirstLoginGate(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admins pass through without a lookup", func(t *testing.T) {
		mw, _ := newTestMiddleware(nil, &mockStudentReader{err: models.ErrNotFound}, nil)

		claims := &models.TokenClaims{AccountID: "a1", AccountType: models.UserTypeAdmin}
		req := httptest.NewRequest(http.MethodGet, "/students/s2/timetable", nil)
		req = req.WithContext(ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		mw.FirstLoginGate(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
