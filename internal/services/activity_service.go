package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/campuskit/timetable-portal/internal/repositories"
	"github.com/google/uuid"
)

const (
	defaultActivityPageSize = 50
	maxActivityPageSize     = 100
)

// ActivityLogStore is the persistence surface the activity service needs
type ActivityLogStore interface {
	Create(ctx context.Context, entry *models.ActivityLogEntry) (*models.ActivityLogEntry, error)
	Query(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLogEntry, int64, error)
	Summary(ctx context.Context, userID uuid.UUID, userType models.UserType, startDate, endDate *time.Time) ([]*models.ActivitySummaryGroup, error)
	Recent(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error)
	CountByActionSince(ctx context.Context, action string, since time.Time) (int64, error)
}

// StudentResolver resolves roll numbers for log filtering
type StudentResolver interface {
	GetByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
}

// RecordInput describes one auditable action
type RecordInput struct {
	UserID     string
	UserType   models.UserType
	Action     string
	EntityType string
	EntityID   string // empty for System-scoped actions
	Details    models.ActivityDetails
	Location   *models.Location
}

// ActivityQueryInput is the admin log-browsing filter. RollNumber, when set,
// is resolved to the student's account id before querying.
type ActivityQueryInput struct {
	RollNumber string
	UserID     string
	UserType   models.UserType
	Action     string
	EntityType string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Limit      int
}

// ActivityPage is one page of log entries, newest first
type ActivityPage struct {
	Entries    []*models.ActivityLogEntry `json:"entries"`
	TotalCount int64                      `json:"total_count"`
	Page       int                        `json:"page"`
	Limit      int                        `json:"limit"`
	TotalPages int                        `json:"total_pages"`
}

// ActivityService owns the append-only activity trail
type ActivityService struct {
	store    ActivityLogStore
	students StudentResolver
	logger   *slog.Logger
}

func NewActivityService(store ActivityLogStore, students StudentResolver, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		store:    store,
		students: students,
		logger:   logger,
	}
}

// Record appends an entry. Recording is best effort: a failed write is logged
// and absorbed so it can never fail the action it describes.
func (s *ActivityService) Record(ctx context.Context, input RecordInput) {
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		s.logger.Error("activity record skipped: bad user id",
			slog.String("user_id", input.UserID), slog.String("action", input.Action))
		return
	}

	entry := &models.ActivityLogEntry{
		UserID:     userID,
		UserType:   input.UserType,
		Action:     input.Action,
		EntityType: input.EntityType,
		Details:    input.Details,
		Location:   input.Location,
	}

	if input.EntityID != "" {
		entityID, err := uuid.Parse(input.EntityID)
		if err != nil {
			s.logger.Error("activity record skipped: bad entity id",
				slog.String("entity_id", input.EntityID), slog.String("action", input.Action))
			return
		}
		entry.EntityID = &entityID
	}

	if _, err := s.store.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record activity",
			slog.String("user_id", input.UserID),
			slog.String("action", input.Action),
			slog.String("entity_type", input.EntityType),
			slog.String("error", err.Error()))
	}
}

// Query returns a page of entries matching the filter
func (s *ActivityService) Query(ctx context.Context, input ActivityQueryInput) (*ActivityPage, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultActivityPageSize
	}
	if limit > maxActivityPageSize {
		limit = maxActivityPageSize
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}

	filter := repositories.ActivityLogFilter{
		UserType:   input.UserType,
		Action:     input.Action,
		EntityType: input.EntityType,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	if input.UserID != "" {
		userID, err := uuid.Parse(input.UserID)
		if err != nil {
			return emptyActivityPage(page, limit), nil
		}
		filter.UserID = &userID
	}

	if input.RollNumber != "" {
		student, err := s.students.GetByRollNumber(ctx, input.RollNumber)
		if err != nil {
			// An unknown roll number filters everything out rather than erroring
			if errors.Is(err, models.ErrNotFound) {
				return emptyActivityPage(page, limit), nil
			}
			return nil, err
		}
		studentID, err := uuid.Parse(student.ID)
		if err != nil {
			return emptyActivityPage(page, limit), nil
		}
		filter.UserID = &studentID
		filter.UserType = models.UserTypeStudent
	}

	entries, total, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &ActivityPage{
		Entries:    entries,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Summary aggregates one account's entries by entity type and action
func (s *ActivityService) Summary(ctx context.Context, userID string, userType models.UserType, startDate, endDate *time.Time) ([]*models.ActivitySummaryGroup, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return []*models.ActivitySummaryGroup{}, nil
	}
	return s.store.Summary(ctx, id, userType, startDate, endDate)
}

// Recent returns the newest entries across all accounts
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error) {
	if limit <= 0 || limit > maxActivityPageSize {
		limit = defaultActivityPageSize
	}
	return s.store.Recent(ctx, limit)
}

// LoginsSince counts login entries after the cutoff (dashboard widget)
func (s *ActivityService) LoginsSince(ctx context.Context, since time.Time) (int64, error) {
	return s.store.CountByActionSince(ctx, models.ActionLogin, since)
}

func emptyActivityPage(page, limit int) *ActivityPage {
	return &ActivityPage{
		Entries:    []*models.ActivityLogEntry{},
		TotalCount: 0,
		Page:       page,
		Limit:      limit,
		TotalPages: 0,
	}
}
