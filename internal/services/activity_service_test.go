package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/campuskit/timetable-portal/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityService_Record_AbsorbsStoreFailure(t *testing.T) {
	store := &MockActivityLogStore{
		CreateFunc: func(ctx context.Context, entry *models.ActivityLogEntry) (*models.ActivityLogEntry, error) {
			return nil, models.ErrInternalServer
		},
	}
	svc := NewActivityService(store, &MockStudentStore{}, slog.Default())

	// A failed write is logged and swallowed; the caller never sees it
	svc.Record(context.Background(), RecordInput{
		UserID:     uuid.New().String(),
		UserType:   models.UserTypeStudent,
		Action:     models.ActionLogin,
		EntityType: models.EntityTypeSystem,
	})
}

func TestActivityService_Record_SkipsMalformedIDs(t *testing.T) {
	created := false
	store := &MockActivityLogStore{
		CreateFunc: func(ctx context.Context, entry *models.ActivityLogEntry) (*models.ActivityLogEntry, error) {
			created = true
			return entry, nil
		},
	}
	svc := NewActivityService(store, &MockStudentStore{}, slog.Default())

	svc.Record(context.Background(), RecordInput{
		UserID:     "not-a-uuid",
		UserType:   models.UserTypeStudent,
		Action:     models.ActionLogin,
		EntityType: models.EntityTypeSystem,
	})

	assert.False(t, created)
}

func TestActivityService_Record_PassesEntityReference(t *testing.T) {
	userID := uuid.New()
	entityID := uuid.New()

	var got *models.ActivityLogEntry
	store := &MockActivityLogStore{
		CreateFunc: func(ctx context.Context, entry *models.ActivityLogEntry) (*models.ActivityLogEntry, error) {
			got = entry
			return entry, nil
		},
	}
	svc := NewActivityService(store, &MockStudentStore{}, slog.Default())

	svc.Record(context.Background(), RecordInput{
		UserID:     userID.String(),
		UserType:   models.UserTypeAdmin,
		Action:     models.ActionView,
		EntityType: models.EntityTypeStudent,
		EntityID:   entityID.String(),
		Details:    models.ActivityDetails{"roll_number": "CS21B001"},
	})

	require.NotNil(t, got)
	assert.Equal(t, userID, got.UserID)
	require.NotNil(t, got.EntityID)
	assert.Equal(t, entityID, *got.EntityID)
}

func TestActivityService_Query_ClampsLimit(t *testing.T) {
	var gotFilter repositories.ActivityLogFilter
	store := &MockActivityLogStore{
		QueryFunc: func(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLogEntry, int64, error) {
			gotFilter = filter
			return []*models.ActivityLogEntry{}, 0, nil
		},
	}
	svc := NewActivityService(store, &MockStudentStore{}, slog.Default())

	t.Run("over the cap", func(t *testing.T) {
		_, err := svc.Query(context.Background(), ActivityQueryInput{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 100, gotFilter.Limit)
	})

	t.Run("default when unset", func(t *testing.T) {
		_, err := svc.Query(context.Background(), ActivityQueryInput{})
		require.NoError(t, err)
		assert.Equal(t, 50, gotFilter.Limit)
		assert.Equal(t, 0, gotFilter.Offset)
	})

	t.Run("offset follows the page", func(t *testing.T) {
		_, err := svc.Query(context.Background(), ActivityQueryInput{Page: 3, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, 20, gotFilter.Limit)
		assert.Equal(t, 40, gotFilter.Offset)
	})
}

func TestActivityService_Query_ResolvesRollNumber(t *testing.T) {
	student := NewTestStudent("CS21B001", "Sturdy-Pass-42", false)
	students := &MockStudentStore{
		GetByRollNumberFunc: func(ctx context.Context, rollNumber string) (*models.Student, error) {
			return student, nil
		},
	}

	var gotFilter repositories.ActivityLogFilter
	store := &MockActivityLogStore{
		QueryFunc: func(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLogEntry, int64, error) {
			gotFilter = filter
			return []*models.ActivityLogEntry{}, 0, nil
		},
	}

	svc := NewActivityService(store, students, slog.Default())
	_, err := svc.Query(context.Background(), ActivityQueryInput{RollNumber: "CS21B001"})

	require.NoError(t, err)
	require.NotNil(t, gotFilter.UserID)
	assert.Equal(t, student.ID, gotFilter.UserID.String())
	assert.Equal(t, models.UserTypeStudent, gotFilter.UserType)
}

func TestActivityService_Query_UnknownRollNumberReturnsEmptyPage(t *testing.T) {
	queried := false
	store := &MockActivityLogStore{
		QueryFunc: func(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLogEntry, int64, error) {
			queried = true
			return nil, 0, nil
		},
	}

	svc := NewActivityService(store, &MockStudentStore{}, slog.Default())
	page, err := svc.Query(context.Background(), ActivityQueryInput{RollNumber: "CS21B999"})

	require.NoError(t, err)
	assert.False(t, queried, "an unresolvable filter never reaches the store")
	assert.Empty(t, page.Entries)
	assert.Zero(t, page.TotalCount)
}

func TestActivityService_Query_Pagination(t *testing.T) {
	store := &MockActivityLogStore{
		QueryFunc: func(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLogEntry, int64, error) {
			return make([]*models.ActivityLogEntry, 20), 101, nil
		},
	}

	svc := NewActivityService(store, &MockStudentStore{}, slog.Default())
	page, err := svc.Query(context.Background(), ActivityQueryInput{Page: 2, Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, int64(101), page.TotalCount)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 6, page.TotalPages)
}

func TestActivityService_Summary_MalformedIDReturnsEmpty(t *testing.T) {
	svc := NewActivityService(&MockActivityLogStore{}, &MockStudentStore{}, slog.Default())

	groups, err := svc.Summary(context.Background(), "not-a-uuid", models.UserTypeStudent, nil, nil)

	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestActivityService_LoginsSince(t *testing.T) {
	cutoff := time.Now().Add(-24 * time.Hour)
	store := &MockActivityLogStore{
		CountByActionSinceFunc: func(ctx context.Context, action string, since time.Time) (int64, error) {
			assert.Equal(t, models.ActionLogin, action)
			assert.Equal(t, cutoff, since)
			return 12, nil
		},
	}

	svc := NewActivityService(store, &MockStudentStore{}, slog.Default())
	count, err := svc.LoginsSince(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}
