package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuskit/timetable-portal/internal/auth"
	"github.com/campuskit/timetable-portal/internal/geo"
	"github.com/campuskit/timetable-portal/internal/models"
	pkgauth "github.com/campuskit/timetable-portal/pkg/auth"
	"github.com/campuskit/timetable-portal/pkg/logger"
)

// StudentStore is the persistence surface for student authentication flows
type StudentStore interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
	GetByRollNumberAndEmail(ctx context.Context, rollNumber, email string) (*models.Student, error)
	GetByRollNumberWithValidOTP(ctx context.Context, rollNumber string) (*models.Student, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, clearFirstLogin bool) error
	SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
	UpdateLoginInfo(ctx context.Context, id string, location *models.Location) error
}

// TokenRevoker puts a token id on the denylist
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti, accountID, accountType string, expiresAt time.Time, reason string) error
}

// LoginResult is what a successful authentication hands back to the handler
type LoginResult struct {
	Token      string
	RedirectTo string
	FirstLogin bool
	Student    *models.Student
}

// AuthService implements the student authentication and recovery flows
type AuthService struct {
	students  StudentStore
	tokens    *auth.TokenManager
	revoker   TokenRevoker
	activity  *ActivityService
	email     EmailService
	locator   geo.Locator
	audit     *logger.AuditLogger
	logger    *slog.Logger
	otpLength int
	otpExpiry time.Duration
}

func NewAuthService(
	students StudentStore,
	tokens *auth.TokenManager,
	revoker TokenRevoker,
	activity *ActivityService,
	email EmailService,
	locator geo.Locator,
	audit *logger.AuditLogger,
	log *slog.Logger,
	otpLength int,
	otpExpiry time.Duration,
) *AuthService {
	return &AuthService{
		students:  students,
		tokens:    tokens,
		revoker:   revoker,
		activity:  activity,
		email:     email,
		locator:   locator,
		audit:     audit,
		logger:    log,
		otpLength: otpLength,
		otpExpiry: otpExpiry,
	}
}

// Login authenticates a student by roll number and password. Unknown roll
// number and wrong password fail identically, and neither leaves an entry in
// the activity trail.
func (s *AuthService) Login(ctx context.Context, rollNumber, password, ipAddress, userAgent string) (*LoginResult, error) {
	student, err := s.students.GetByRollNumber(ctx, rollNumber)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.audit.LogAuthAttempt(logger.AuditEvent{
				EventType:     "student_login",
				AccountType:   string(models.UserTypeStudent),
				IPAddress:     ipAddress,
				UserAgent:     userAgent,
				Success:       false,
				FailureReason: "unknown_roll_number",
			})
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	if student.Status != models.StudentStatusActive {
		return nil, models.ErrAccountInactive
	}

	if err := pkgauth.ComparePassword(student.PasswordHash, password); err != nil {
		s.audit.LogAuthAttempt(logger.AuditEvent{
			EventType:     "student_login",
			AccountID:     student.ID,
			AccountType:   string(models.UserTypeStudent),
			IPAddress:     ipAddress,
			UserAgent:     userAgent,
			Success:       false,
			FailureReason: "wrong_password",
		})
		return nil, models.ErrUnauthorized
	}

	location := s.locator.Lookup(ipAddress)
	if location == nil {
		location = &models.Location{IP: ipAddress}
	}

	if err := s.students.UpdateLoginInfo(ctx, student.ID, location); err != nil {
		s.logger.Error("failed to update login info",
			slog.String("student_id", student.ID), slog.String("error", err.Error()))
	}

	// Logins are system events, not operations on a student record
	s.activity.Record(ctx, RecordInput{
		UserID:     student.ID,
		UserType:   models.UserTypeStudent,
		Action:     models.ActionLogin,
		EntityType: models.EntityTypeSystem,
		Details:    models.ActivityDetails{"roll_number": student.RollNumber},
		Location:   location,
	})

	s.audit.LogAuthAttempt(logger.AuditEvent{
		EventType:   "student_login",
		AccountID:   student.ID,
		AccountType: string(models.UserTypeStudent),
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Success:     true,
	})

	token, err := s.tokens.IssueStudentToken(student)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	redirectTo := "/student/timetable"
	if student.IsFirstLogin {
		redirectTo = "/auth/change-password"
	}

	return &LoginResult{
		Token:      token,
		RedirectTo: redirectTo,
		FirstLogin: student.IsFirstLogin,
		Student:    student,
	}, nil
}

// ChangePassword verifies the current password and installs a new one. On a
// first login this also clears the first-login flag, unblocking the rest of
// the portal.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword, confirmPassword, ipAddress string) (string, error) {
	if newPassword != confirmPassword {
		return "", models.ErrPasswordMismatch
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return "", err
	}

	student, err := s.students.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}

	if err := pkgauth.ComparePassword(student.PasswordHash, currentPassword); err != nil {
		s.audit.LogPasswordChange(student.ID, ipAddress, false)
		return "", models.ErrUnauthorized
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return "", err
	}

	if err := s.students.UpdatePassword(ctx, student.ID, hash, true); err != nil {
		return "", err
	}

	s.audit.LogPasswordChange(student.ID, ipAddress, true)

	s.activity.Record(ctx, RecordInput{
		UserID:     student.ID,
		UserType:   models.UserTypeStudent,
		Action:     models.ActionPasswordChange,
		EntityType: models.EntityTypeStudent,
		EntityID:   student.ID,
		Details:    models.ActivityDetails{"roll_number": student.RollNumber},
	})

	// Fresh token so the client stops carrying the first-login marker
	student.IsFirstLogin = false
	token, err := s.tokens.IssueStudentToken(student)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return token, nil
}

// ForgotPassword issues a recovery code to the student's email. Both roll
// number and email must match the same account.
func (s *AuthService) ForgotPassword(ctx context.Context, rollNumber, email, ipAddress string) error {
	student, err := s.students.GetByRollNumberAndEmail(ctx, rollNumber, email)
	if err != nil {
		return err
	}

	otp, err := pkgauth.GenerateOTP(s.otpLength)
	if err != nil {
		return err
	}

	otpHash, err := pkgauth.HashOTP(otp)
	if err != nil {
		return err
	}

	if err := s.students.SetOTP(ctx, student.ID, otpHash, pkgauth.ExpiryTime(s.otpExpiry)); err != nil {
		return err
	}

	// Delivery failure must surface: a code the student never received is not
	// a success
	if err := s.email.SendOTP(ctx, student.Email, student.Name, otp, s.otpExpiry); err != nil {
		return err
	}

	s.audit.LogAccountAction("otp_issued", student.ID, ipAddress, map[string]string{
		"email": logger.SanitizedEmail(student.Email),
	})

	return nil
}

// ResetPassword consumes a valid recovery code and installs the new password.
// A wrong code leaves the stored code untouched so the student can retry
// until it expires.
func (s *AuthService) ResetPassword(ctx context.Context, rollNumber, otp, newPassword, confirmPassword, ipAddress string) error {
	if newPassword != confirmPassword {
		return models.ErrPasswordMismatch
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	student, err := s.students.GetByRollNumberWithValidOTP(ctx, rollNumber)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrOTPInvalid
		}
		return err
	}

	if student.OTPTokenHash == nil {
		return models.ErrOTPInvalid
	}

	if err := pkgauth.CompareOTP(*student.OTPTokenHash, otp); err != nil {
		s.audit.LogAuthAttempt(logger.AuditEvent{
			EventType:     "password_reset",
			AccountID:     student.ID,
			AccountType:   string(models.UserTypeStudent),
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: "wrong_otp",
		})
		return models.ErrOTPInvalid
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.students.ResetPassword(ctx, student.ID, hash); err != nil {
		return err
	}

	s.audit.LogPasswordChange(student.ID, ipAddress, true)

	s.activity.Record(ctx, RecordInput{
		UserID:     student.ID,
		UserType:   models.UserTypeStudent,
		Action:     models.ActionPasswordChange,
		EntityType: models.EntityTypeStudent,
		EntityID:   student.ID,
		Details:    models.ActivityDetails{"roll_number": student.RollNumber, "via": "otp_reset"},
	})

	return nil
}

// Logout revokes the presented token and records the sign-out
func (s *AuthService) Logout(ctx context.Context, claims *models.TokenClaims, ipAddress string) error {
	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revoker.RevokeToken(ctx, claims.ID, claims.AccountID, string(claims.AccountType), expiresAt, "logout"); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.activity.Record(ctx, RecordInput{
		UserID:     claims.AccountID,
		UserType:   claims.AccountType,
		Action:     models.ActionLogout,
		EntityType: models.EntityTypeSystem,
	})

	s.audit.LogAccountAction("logout", claims.AccountID, ipAddress, nil)

	return nil
}

// Profile returns the caller's own record for the timetable view
func (s *AuthService) Profile(ctx context.Context, accountID string) (*models.Student, error) {
	return s.students.GetByID(ctx, accountID)
}
