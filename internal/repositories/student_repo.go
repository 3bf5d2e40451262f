package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campuskit/timetable-portal/internal/database"
	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const studentColumns = `id, roll_number, name, email, password_hash, department, program, batch, school,
	status, is_first_login, otp_token_hash, otp_expires_at, last_login_at, last_login_location,
	courses, created_at, updated_at`

type StudentRepository struct {
	pool *pgxpool.Pool
}

func NewStudentRepository(db *database.DB) *StudentRepository {
	return &StudentRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanStudentRow handles nullable fields and populates a Student model from a database row
func scanStudentRow(scanner rowScanner) (*models.Student, error) {
	var student models.Student
	var otpTokenHash *string
	var otpExpiresAt, lastLoginAt *time.Time
	var lastLoginLocation *models.Location

	err := scanner.Scan(
		&student.ID, &student.RollNumber, &student.Name, &student.Email, &student.PasswordHash,
		&student.Department, &student.Program, &student.Batch, &student.School,
		&student.Status, &student.IsFirstLogin, &otpTokenHash, &otpExpiresAt,
		&lastLoginAt, &lastLoginLocation, &student.Courses,
		&student.CreatedAt, &student.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	student.OTPTokenHash = otpTokenHash
	student.OTPExpiresAt = otpExpiresAt
	student.LastLoginAt = lastLoginAt
	student.LastLoginLocation = lastLoginLocation

	return &student, nil
}

// scanStudentRows iterates through rows and scans each into Student models
func scanStudentRows(rows pgx.Rows) ([]*models.Student, error) {
	defer rows.Close()

	students := make([]*models.Student, 0)

	for rows.Next() {
		student, err := scanStudentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return students, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	return scanStudentRow(r.pool.QueryRow(ctx, query, id))
}

// GetByRollNumber looks a student up by external id; roll numbers are stored uppercased
func (r *StudentRepository) GetByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE roll_number = $1`

	return scanStudentRow(r.pool.QueryRow(ctx, query, strings.ToUpper(rollNumber)))
}

// GetByRollNumberAndEmail is the forgot-password lookup: both must match
func (r *StudentRepository) GetByRollNumberAndEmail(ctx context.Context, rollNumber, email string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE roll_number = $1 AND email = $2`

	return scanStudentRow(r.pool.QueryRow(ctx, query, strings.ToUpper(rollNumber), strings.ToLower(email)))
}

// GetByRollNumberWithValidOTP returns the student only while an issued OTP
// is still inside its expiry window
func (r *StudentRepository) GetByRollNumberWithValidOTP(ctx context.Context, rollNumber string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE roll_number = $1 AND otp_expires_at > now()`

	return scanStudentRow(r.pool.QueryRow(ctx, query, strings.ToUpper(rollNumber)))
}

func (r *StudentRepository) List(ctx context.Context, limit, offset int) ([]*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY roll_number LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}

	return scanStudentRows(rows)
}

func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}

// Create inserts a provisioned account. The caller supplies the already
// hashed default password; plaintext never reaches the repository.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	student.ID = uuid.New().String()
	student.RollNumber = strings.ToUpper(student.RollNumber)
	student.Email = strings.ToLower(student.Email)

	now := time.Now()
	student.CreatedAt = now
	student.UpdatedAt = now

	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	if student.School == "" {
		student.School = "School of Engineering"
	}

	query := `
		INSERT INTO students (id, roll_number, name, email, password_hash, department, program, batch, school,
			status, is_first_login, courses, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + studentColumns

	return scanStudentRow(r.pool.QueryRow(ctx, query,
		student.ID, student.RollNumber, student.Name, student.Email, student.PasswordHash,
		student.Department, student.Program, student.Batch, student.School,
		student.Status, student.IsFirstLogin, student.Courses,
		student.CreatedAt, student.UpdatedAt,
	))
}

// UpdatePassword replaces the stored hash. The hash is produced once by the
// caller; first-login clearing rides the same statement so the flag and the
// hash change together.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id, passwordHash string, clearFirstLogin bool) error {
	query := `
		UPDATE students
		SET password_hash = $1,
		    is_first_login = CASE WHEN $2 THEN false ELSE is_first_login END,
		    updated_at = now()
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, passwordHash, clearFirstLogin, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetOTP stores the hashed recovery code and its expiry
func (r *StudentRepository) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	query := `UPDATE students SET otp_token_hash = $1, otp_expires_at = $2, updated_at = now() WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, otpHash, expiresAt, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ResetPassword consumes the OTP: new hash in, recovery fields cleared, atomically
func (r *StudentRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE students
		SET password_hash = $1, otp_token_hash = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateLoginInfo records last login time and resolved location
func (r *StudentRepository) UpdateLoginInfo(ctx context.Context, id string, location *models.Location) error {
	query := `UPDATE students SET last_login_at = now(), last_login_location = $1, updated_at = now() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, location, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
