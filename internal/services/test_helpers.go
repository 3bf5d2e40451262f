package services

import (
	"context"
	"time"

	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/campuskit/timetable-portal/internal/repositories"
	pkgauth "github.com/campuskit/timetable-portal/pkg/auth"
	"github.com/google/uuid"
)

// MockStudentStore implements StudentStore, StudentResolver and StudentRoster
// for testing
type MockStudentStore struct {
	GetByIDFunc                     func(ctx context.Context, id string) (*models.Student, error)
	GetByRollNumberFunc             func(ctx context.Context, rollNumber string) (*models.Student, error)
	GetByRollNumberAndEmailFunc     func(ctx context.Context, rollNumber, email string) (*models.Student, error)
	GetByRollNumberWithValidOTPFunc func(ctx context.Context, rollNumber string) (*models.Student, error)
	ListFunc                        func(ctx context.Context, limit, offset int) ([]*models.Student, error)
	CountFunc                       func(ctx context.Context) (int64, error)
	UpdatePasswordFunc              func(ctx context.Context, id, passwordHash string, clearFirstLogin bool) error
	SetOTPFunc                      func(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	ResetPasswordFunc               func(ctx context.Context, id, passwordHash string) error
	UpdateLoginInfoFunc             func(ctx context.Context, id string, location *models.Location) error
}

func (m *MockStudentStore) GetByID(ctx context.Context, id string) (*models.Student, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockStudentStore) GetByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	if m.GetByRollNumberFunc != nil {
		return m.GetByRollNumberFunc(ctx, rollNumber)
	}
	return nil, models.ErrNotFound
}

func (m *MockStudentStore) GetByRollNumberAndEmail(ctx context.Context, rollNumber, email string) (*models.Student, error) {
	if m.GetByRollNumberAndEmailFunc != nil {
		return m.GetByRollNumberAndEmailFunc(ctx, rollNumber, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockStudentStore) GetByRollNumberWithValidOTP(ctx context.Context, rollNumber string) (*models.Student, error) {
	if m.GetByRollNumberWithValidOTPFunc != nil {
		return m.GetByRollNumberWithValidOTPFunc(ctx, rollNumber)
	}
	return nil, models.ErrNotFound
}

func (m *MockStudentStore) List(ctx context.Context, limit, offset int) ([]*models.Student, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.Student{}, nil
}

func (m *MockStudentStore) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockStudentStore) UpdatePassword(ctx context.Context, id, passwordHash string, clearFirstLogin bool) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash, clearFirstLogin)
	}
	return nil
}

func (m *MockStudentStore) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	if m.SetOTPFunc != nil {
		return m.SetOTPFunc(ctx, id, otpHash, expiresAt)
	}
	return nil
}

func (m *MockStudentStore) ResetPassword(ctx context.Context, id, passwordHash string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockStudentStore) UpdateLoginInfo(ctx context.Context, id string, location *models.Location) error {
	if m.UpdateLoginInfoFunc != nil {
		return m.UpdateLoginInfoFunc(ctx, id, location)
	}
	return nil
}

// MockAdminStore implements AdminStore for testing
type MockAdminStore struct {
	GetByIDFunc                func(ctx context.Context, id string) (*models.Admin, error)
	GetByUsernameFunc          func(ctx context.Context, username string) (*models.Admin, error)
	CreateFunc                 func(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	IncrementLoginAttemptsFunc func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	ResetLoginAttemptsFunc     func(ctx context.Context, id string) error
	UpdateLastLoginFunc        func(ctx context.Context, id string) error
}

func (m *MockAdminStore) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminStore) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminStore) Create(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, admin)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAdminStore) IncrementLoginAttempts(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	if m.IncrementLoginAttemptsFunc != nil {
		return m.IncrementLoginAttemptsFunc(ctx, id, maxAttempts, lockUntil)
	}
	return 1, nil, nil
}

func (m *MockAdminStore) ResetLoginAttempts(ctx context.Context, id string) error {
	if m.ResetLoginAttemptsFunc != nil {
		return m.ResetLoginAttemptsFunc(ctx, id)
	}
	return nil
}

func (m *MockAdminStore) UpdateLastLogin(ctx context.Context, id string) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id)
	}
	return nil
}

// MockActivityLogStore implements ActivityLogStore for testing
type MockActivityLogStore struct {
	CreateFunc             func(ctx context.Context, entry *models.ActivityLogEntry) (*models.ActivityLogEntry, error)
	QueryFunc              func(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLogEntry, int64, error)
	SummaryFunc            func(ctx context.Context, userID uuid.UUID, userType models.UserType, startDate, endDate *time.Time) ([]*models.ActivitySummaryGroup, error)
	RecentFunc             func(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error)
	CountByActionSinceFunc func(ctx context.Context, action string, since time.Time) (int64, error)
}

func (m *MockActivityLogStore) Create(ctx context.Context, entry *models.ActivityLogEntry) (*models.ActivityLogEntry, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	return entry, nil
}

func (m *MockActivityLogStore) Query(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLogEntry, int64, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, filter)
	}
	return []*models.ActivityLogEntry{}, 0, nil
}

func (m *MockActivityLogStore) Summary(ctx context.Context, userID uuid.UUID, userType models.UserType, startDate, endDate *time.Time) ([]*models.ActivitySummaryGroup, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, userID, userType, startDate, endDate)
	}
	return []*models.ActivitySummaryGroup{}, nil
}

func (m *MockActivityLogStore) Recent(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, limit)
	}
	return []*models.ActivityLogEntry{}, nil
}

func (m *MockActivityLogStore) CountByActionSince(ctx context.Context, action string, since time.Time) (int64, error) {
	if m.CountByActionSinceFunc != nil {
		return m.CountByActionSinceFunc(ctx, action, since)
	}
	return 0, nil
}

// MockTokenRevoker implements TokenRevoker for testing
type MockTokenRevoker struct {
	RevokeTokenFunc func(ctx context.Context, jti, accountID, accountType string, expiresAt time.Time, reason string) error
}

func (m *MockTokenRevoker) RevokeToken(ctx context.Context, jti, accountID, accountType string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, accountID, accountType, expiresAt, reason)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendOTPFunc     func(ctx context.Context, to, name, otp string, expiry time.Duration) error
	SendWelcomeFunc func(ctx context.Context, to, name, rollNumber, tempPassword string) error
}

func (m *MockEmailService) SendOTP(ctx context.Context, to, name, otp string, expiry time.Duration) error {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, to, name, otp, expiry)
	}
	return nil
}

func (m *MockEmailService) SendWelcome(ctx context.Context, to, name, rollNumber, tempPassword string) error {
	if m.SendWelcomeFunc != nil {
		return m.SendWelcomeFunc(ctx, to, name, rollNumber, tempPassword)
	}
	return nil
}

// NewTestStudent builds a student with a hashed password for tests
func NewTestStudent(rollNumber, password string, firstLogin bool) *models.Student {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}

	now := time.Now()
	return &models.Student{
		ID:           uuid.New().String(),
		RollNumber:   rollNumber,
		Name:         "Test Student",
		Email:        "student@example.edu",
		PasswordHash: hash,
		Department:   "Computer Science",
		Program:      "B.Tech",
		Batch:        2024,
		School:       "School of Engineering",
		Status:       models.StudentStatusActive,
		IsFirstLogin: firstLogin,
		Courses:      models.CourseList{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestAdmin builds an admin with a hashed password for tests
func NewTestAdmin(username, password, role string, permissions []string) *models.Admin {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}

	now := time.Now()
	return &models.Admin{
		ID:           uuid.New().String(),
		Username:     username,
		Name:         "Test Admin",
		Email:        "admin@example.edu",
		PasswordHash: hash,
		Role:         role,
		Permissions:  permissions,
		Status:       models.AdminStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
