package repositories

import (
	"context"
	"time"

	"github.com/campuskit/timetable-portal/internal/database"
	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const adminColumns = `id, username, name, email, password_hash, role, permissions, status,
	login_attempts, lock_until, last_login_at, created_at, updated_at`

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{pool: db.Pool}
}

func scanAdminRow(scanner rowScanner) (*models.Admin, error) {
	var admin models.Admin
	var lockUntil, lastLoginAt *time.Time

	err := scanner.Scan(
		&admin.ID, &admin.Username, &admin.Name, &admin.Email, &admin.PasswordHash,
		&admin.Role, &admin.Permissions, &admin.Status,
		&admin.LoginAttempts, &lockUntil, &lastLoginAt,
		&admin.CreatedAt, &admin.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	admin.LockUntil = lockUntil
	admin.LastLoginAt = lastLoginAt

	return &admin, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`

	return scanAdminRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE username = $1`

	return scanAdminRow(r.pool.QueryRow(ctx, query, username))
}

func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	admin.ID = uuid.New().String()

	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	if admin.Role == "" {
		admin.Role = models.AdminRoleAdmin
	}
	if admin.Status == "" {
		admin.Status = models.AdminStatusActive
	}
	if admin.Permissions == nil {
		admin.Permissions = []string{}
	}

	query := `
		INSERT INTO admins (id, username, name, email, password_hash, role, permissions, status,
			login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)
		RETURNING ` + adminColumns

	return scanAdminRow(r.pool.QueryRow(ctx, query,
		admin.ID, admin.Username, admin.Name, admin.Email, admin.PasswordHash,
		admin.Role, admin.Permissions, admin.Status,
		admin.CreatedAt, admin.UpdatedAt,
	))
}

// IncrementLoginAttempts bumps the failed-attempt counter in a single
// statement so concurrent failures cannot lose updates. A lock that has
// already expired restarts the count at 1; hitting maxAttempts sets
// lock_until to the provided expiry. Returns the post-update counter state.
func (r *AdminRepository) IncrementLoginAttempts(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	query := `
		UPDATE admins
		SET login_attempts = CASE
		        WHEN lock_until IS NOT NULL AND lock_until < now() THEN 1
		        ELSE login_attempts + 1
		    END,
		    lock_until = CASE
		        WHEN lock_until IS NOT NULL AND lock_until < now() THEN NULL
		        WHEN login_attempts + 1 >= $2 THEN $3
		        ELSE lock_until
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING login_attempts, lock_until
	`

	var attempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, query, id, maxAttempts, lockUntil).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, database.MapPostgresError(err)
	}

	return attempts, lockedUntil, nil
}

// ResetLoginAttempts clears the counter and any lock after a successful login
func (r *AdminRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	query := `UPDATE admins SET login_attempts = 0, lock_until = NULL, updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE admins SET last_login_at = now(), updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
