package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuskit/timetable-portal/internal/auth"
	"github.com/campuskit/timetable-portal/internal/models"
	pkgauth "github.com/campuskit/timetable-portal/pkg/auth"
	"github.com/campuskit/timetable-portal/pkg/logger"
)

// AdminStore is the persistence surface for admin authentication
type AdminStore interface {
	GetByID(ctx context.Context, id string) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	IncrementLoginAttempts(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	ResetLoginAttempts(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// StudentRoster is the read surface the admin area needs over students
type StudentRoster interface {
	GetByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
	List(ctx context.Context, limit, offset int) ([]*models.Student, error)
	Count(ctx context.Context) (int64, error)
}

// AdminLoginResult carries the issued credential and landing page
type AdminLoginResult struct {
	Token      string
	RedirectTo string
	Admin      *models.Admin
}

// DashboardData is the admin landing page payload
type DashboardData struct {
	StudentCount   int64                      `json:"student_count"`
	LoginsLast24h  int64                      `json:"logins_last_24h"`
	RecentActivity []*models.ActivityLogEntry `json:"recent_activity"`
}

// StudentDetailsData combines a student record with their activity rollup
type StudentDetailsData struct {
	Student        *models.Student                `json:"student"`
	Summary        []*models.ActivitySummaryGroup `json:"activity_summary"`
	RecentActivity []*models.ActivityLogEntry     `json:"recent_activity"`
}

// AdminService implements admin authentication with brute-force lockout plus
// the dashboard and roster reads.
type AdminService struct {
	admins          AdminStore
	students        StudentRoster
	tokens          *auth.TokenManager
	revoker         TokenRevoker
	activity        *ActivityService
	audit           *logger.AuditLogger
	logger          *slog.Logger
	maxAttempts     int
	lockoutDuration time.Duration
}

func NewAdminService(
	admins AdminStore,
	students StudentRoster,
	tokens *auth.TokenManager,
	revoker TokenRevoker,
	activity *ActivityService,
	audit *logger.AuditLogger,
	log *slog.Logger,
	maxAttempts int,
	lockoutDuration time.Duration,
) *AdminService {
	return &AdminService{
		admins:          admins,
		students:        students,
		tokens:          tokens,
		revoker:         revoker,
		activity:        activity,
		audit:           audit,
		logger:          log,
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
	}
}

// Login authenticates an admin. The lock check runs before the password
// comparison, so a locked account rejects even the correct password. Each
// wrong password bumps the attempt counter; reaching the threshold locks the
// account for the configured duration.
func (s *AdminService) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*AdminLoginResult, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.audit.LogAuthAttempt(logger.AuditEvent{
				EventType:     "admin_login",
				AccountType:   string(models.UserTypeAdmin),
				IPAddress:     ipAddress,
				UserAgent:     userAgent,
				Success:       false,
				FailureReason: "unknown_username",
			})
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	if admin.Status != models.AdminStatusActive {
		return nil, models.ErrAccountInactive
	}

	if admin.IsLocked() {
		s.audit.LogAuthAttempt(logger.AuditEvent{
			EventType:     "admin_login",
			AccountID:     admin.ID,
			AccountType:   string(models.UserTypeAdmin),
			IPAddress:     ipAddress,
			UserAgent:     userAgent,
			Success:       false,
			FailureReason: "account_locked",
		})
		return nil, models.ErrAccountLocked
	}

	if err := pkgauth.ComparePassword(admin.PasswordHash, password); err != nil {
		attempts, lockedUntil, incErr := s.admins.IncrementLoginAttempts(ctx, admin.ID, s.maxAttempts, time.Now().Add(s.lockoutDuration))
		if incErr != nil {
			s.logger.Error("failed to increment login attempts",
				slog.String("admin_id", admin.ID), slog.String("error", incErr.Error()))
		}

		event := logger.AuditEvent{
			EventType:     "admin_login",
			AccountID:     admin.ID,
			AccountType:   string(models.UserTypeAdmin),
			IPAddress:     ipAddress,
			UserAgent:     userAgent,
			Success:       false,
			FailureReason: "wrong_password",
			Metadata:      map[string]string{"attempts": fmt.Sprintf("%d", attempts)},
		}
		if lockedUntil != nil {
			event.FailureReason = "account_locked"
		}
		s.audit.LogAuthAttempt(event)

		return nil, models.ErrUnauthorized
	}

	if err := s.admins.ResetLoginAttempts(ctx, admin.ID); err != nil {
		s.logger.Error("failed to reset login attempts",
			slog.String("admin_id", admin.ID), slog.String("error", err.Error()))
	}
	if err := s.admins.UpdateLastLogin(ctx, admin.ID); err != nil {
		s.logger.Error("failed to update last login",
			slog.String("admin_id", admin.ID), slog.String("error", err.Error()))
	}

	s.activity.Record(ctx, RecordInput{
		UserID:     admin.ID,
		UserType:   models.UserTypeAdmin,
		Action:     models.ActionLogin,
		EntityType: models.EntityTypeSystem,
		Details:    models.ActivityDetails{"username": admin.Username, "user_agent": userAgent},
	})

	s.audit.LogAuthAttempt(logger.AuditEvent{
		EventType:   "admin_login",
		AccountID:   admin.ID,
		AccountType: string(models.UserTypeAdmin),
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Success:     true,
	})

	token, err := s.tokens.IssueAdminToken(admin)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AdminLoginResult{
		Token:      token,
		RedirectTo: "/admin/dashboard",
		Admin:      admin,
	}, nil
}

// Logout revokes the presented admin token
func (s *AdminService) Logout(ctx context.Context, claims *models.TokenClaims, ipAddress string) error {
	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revoker.RevokeToken(ctx, claims.ID, claims.AccountID, string(claims.AccountType), expiresAt, "logout"); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.activity.Record(ctx, RecordInput{
		UserID:     claims.AccountID,
		UserType:   models.UserTypeAdmin,
		Action:     models.ActionLogout,
		EntityType: models.EntityTypeSystem,
	})

	s.audit.LogAccountAction("logout", claims.AccountID, ipAddress, nil)

	return nil
}

// Dashboard assembles the landing page counters and activity feed
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardData, error) {
	studentCount, err := s.students.Count(ctx)
	if err != nil {
		return nil, err
	}

	logins, err := s.activity.LoginsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	recent, err := s.activity.Recent(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		StudentCount:   studentCount,
		LoginsLast24h:  logins,
		RecentActivity: recent,
	}, nil
}

// Roster returns a page of the student roster
func (s *AdminService) Roster(ctx context.Context, page, limit int) ([]*models.Student, int64, error) {
	if limit <= 0 {
		limit = defaultActivityPageSize
	}
	if limit > maxActivityPageSize {
		limit = maxActivityPageSize
	}
	if page <= 0 {
		page = 1
	}

	students, err := s.students.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.students.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

// StudentDetails returns one student with their activity rollup and records
// the admin's view in the trail
func (s *AdminService) StudentDetails(ctx context.Context, actorID, rollNumber string) (*StudentDetailsData, error) {
	student, err := s.students.GetByRollNumber(ctx, rollNumber)
	if err != nil {
		return nil, err
	}

	summary, err := s.activity.Summary(ctx, student.ID, models.UserTypeStudent, nil, nil)
	if err != nil {
		return nil, err
	}

	recentPage, err := s.activity.Query(ctx, ActivityQueryInput{
		UserID:   student.ID,
		UserType: models.UserTypeStudent,
		Limit:    10,
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, RecordInput{
		UserID:     actorID,
		UserType:   models.UserTypeAdmin,
		Action:     models.ActionView,
		EntityType: models.EntityTypeStudent,
		EntityID:   student.ID,
		Details:    models.ActivityDetails{"roll_number": student.RollNumber},
	})

	return &StudentDetailsData{
		Student:        student,
		Summary:        summary,
		RecentActivity: recentPage.Entries,
	}, nil
}

// EnsureSuperAdmin provisions the bootstrap account on first startup. An
// existing account with the username is left untouched.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, username, password, name, email string) error {
	_, err := s.admins.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = s.admins.Create(ctx, &models.Admin{
		Username:     username,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.AdminRoleSuper,
		Permissions:  []string{},
		Status:       models.AdminStatusActive,
	})
	if err != nil {
		return err
	}

	s.logger.Info("bootstrap admin created", slog.String("username", username))
	return nil
}
