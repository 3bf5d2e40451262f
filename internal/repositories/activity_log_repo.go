package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campuskit/timetable-portal/internal/database"
	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const activityLogColumns = `id, user_id, user_type, action, entity_type, entity_id, details, location, created_at`

// ActivityLogFilter narrows a log query; nil/zero fields are ignored
type ActivityLogFilter struct {
	UserID     *uuid.UUID
	UserType   models.UserType
	Action     string
	EntityType string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// ActivityLogRepository handles the append-only activity trail. There are
// deliberately no update or delete operations here.
type ActivityLogRepository struct {
	pool *pgxpool.Pool
}

func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{pool: db.Pool}
}

func scanActivityLogRow(scanner rowScanner) (*models.ActivityLogEntry, error) {
	var entry models.ActivityLogEntry
	var entityID *uuid.UUID
	var location *models.Location

	err := scanner.Scan(
		&entry.ID, &entry.UserID, &entry.UserType, &entry.Action,
		&entry.EntityType, &entityID, &entry.Details, &location,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	entry.EntityID = entityID
	entry.Location = location

	return &entry, nil
}

func scanActivityLogRows(rows pgx.Rows) ([]*models.ActivityLogEntry, error) {
	defer rows.Close()

	entries := make([]*models.ActivityLogEntry, 0)

	for rows.Next() {
		entry, err := scanActivityLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity log rows: %w", err)
	}

	return entries, nil
}

// Create appends an entry; created_at is set by the database
func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLogEntry) (*models.ActivityLogEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO activity_logs (user_id, user_type, action, entity_type, entity_id, details, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + activityLogColumns

	created, err := scanActivityLogRow(r.pool.QueryRow(ctx, query,
		entry.UserID, entry.UserType, entry.Action, entry.EntityType,
		entry.EntityID, entry.Details, entry.Location,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create activity log entry: %w", err)
	}

	return created, nil
}

// Query returns entries matching the filter, newest first, plus the total
// match count for pagination
func (r *ActivityLogRepository) Query(ctx context.Context, filter ActivityLogFilter) ([]*models.ActivityLogEntry, int64, error) {
	where, args := buildActivityLogWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM activity_logs` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	query := `SELECT ` + activityLogColumns + ` FROM activity_logs` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query activity logs: %w", err)
	}

	entries, err := scanActivityLogRows(rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func buildActivityLogWhere(filter ActivityLogFilter) (string, []interface{}) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.UserType != "" {
		add("user_type = $%d", filter.UserType)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.StartDate != nil {
		add("created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= $%d", *filter.EndDate)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Summary aggregates an account's entries into per-(entity_type, action)
// counts for the activity dashboard
func (r *ActivityLogRepository) Summary(ctx context.Context, userID uuid.UUID, userType models.UserType, startDate, endDate *time.Time) ([]*models.ActivitySummaryGroup, error) {
	filter := ActivityLogFilter{UserID: &userID, UserType: userType, StartDate: startDate, EndDate: endDate}
	where, args := buildActivityLogWhere(filter)

	query := `
		SELECT entity_type, action, COUNT(*)
		FROM activity_logs` + where + `
		GROUP BY entity_type, action
		ORDER BY entity_type, action
	`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate activity logs: %w", err)
	}
	defer rows.Close()

	// Regroup (entity_type, action) counts under their entity type with totals
	groupIndex := make(map[string]*models.ActivitySummaryGroup)
	groups := make([]*models.ActivitySummaryGroup, 0)

	for rows.Next() {
		var entityType, action string
		var count int64
		if err := rows.Scan(&entityType, &action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}

		group, ok := groupIndex[entityType]
		if !ok {
			group = &models.ActivitySummaryGroup{EntityType: entityType}
			groupIndex[entityType] = group
			groups = append(groups, group)
		}
		group.Actions = append(group.Actions, models.ActivitySummaryCount{Action: action, Count: count})
		group.TotalCount += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}

	return groups, nil
}

// Recent returns the newest entries across all accounts (dashboard feed)
func (r *ActivityLogRepository) Recent(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error) {
	query := `SELECT ` + activityLogColumns + ` FROM activity_logs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activity: %w", err)
	}

	return scanActivityLogRows(rows)
}

// CountByActionSince counts entries for one action after a cutoff
// (dashboard "active sessions in the last 24h")
func (r *ActivityLogRepository) CountByActionSince(ctx context.Context, action string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM activity_logs WHERE action = $1 AND created_at >= $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, action, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count activity logs: %w", err)
	}
	return count, nil
}
