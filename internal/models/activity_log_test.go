package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestActivityLogEntry_Validate(t *testing.T) {
	userID := uuid.New()
	entityID := uuid.New()

	t.Run("valid student entry", func(t *testing.T) {
		entry := &ActivityLogEntry{
			UserID:     userID,
			UserType:   UserTypeStudent,
			Action:     ActionLogin,
			EntityType: EntityTypeStudent,
			EntityID:   &entityID,
		}
		assert.NoError(t, entry.Validate())
	})

	t.Run("system entry needs no entity id", func(t *testing.T) {
		entry := &ActivityLogEntry{
			UserID:     userID,
			UserType:   UserTypeAdmin,
			Action:     ActionLogout,
			EntityType: EntityTypeSystem,
		}
		assert.NoError(t, entry.Validate())
	})

	t.Run("non-system entry requires entity id", func(t *testing.T) {
		entry := &ActivityLogEntry{
			UserID:     userID,
			UserType:   UserTypeStudent,
			Action:     ActionView,
			EntityType: EntityTypeStudent,
		}
		err := entry.Validate()
		assert.ErrorIs(t, err, ErrBadRequest)
	})

	t.Run("unknown user type rejected", func(t *testing.T) {
		entry := &ActivityLogEntry{
			UserID:     userID,
			UserType:   UserType("service"),
			Action:     ActionLogin,
			EntityType: EntityTypeSystem,
		}
		assert.ErrorIs(t, entry.Validate(), ErrBadRequest)
	})

	t.Run("unknown action rejected", func(t *testing.T) {
		entry := &ActivityLogEntry{
			UserID:     userID,
			UserType:   UserTypeAdmin,
			Action:     "impersonate",
			EntityType: EntityTypeSystem,
		}
		assert.ErrorIs(t, entry.Validate(), ErrBadRequest)
	})
}

func TestUserType_Valid(t *testing.T) {
	assert.True(t, UserTypeStudent.Valid())
	assert.True(t, UserTypeAdmin.Valid())
	assert.False(t, UserType("").Valid())
	assert.False(t, UserType("root").Valid())
}

func TestLocation_String(t *testing.T) {
	cases := []struct {
		name     string
		location *Location
		want     string
	}{
		{"nil location", nil, "Location unknown"},
		{"city and country", &Location{City: "Chennai", Country: "IN"}, "Chennai, IN"},
		{"city only", &Location{City: "Chennai"}, "Chennai"},
		{"country only", &Location{Country: "IN"}, "IN"},
		{"empty", &Location{IP: "10.0.0.1"}, "Location unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.location.String())
		})
	}
}
