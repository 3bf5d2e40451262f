package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserType discriminates the polymorphic account reference on a log entry.
// Resolution back to the concrete account goes through the repository keyed
// by this tag, never by guessing.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeAdmin   UserType = "admin"
)

// Valid reports whether the tag is one of the known variants
func (ut UserType) Valid() bool {
	return ut == UserTypeStudent || ut == UserTypeAdmin
}

// Recorded actions
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
	ActionView           = "view"
	ActionPasswordChange = "password_change"
)

// Entity types an action can target
const (
	EntityTypeStudent = "Student"
	EntityTypeSystem  = "System"
)

// ActivityLogEntry is append-only: never mutated or deleted once created
type ActivityLogEntry struct {
	ID         uuid.UUID       `db:"id"`
	UserID     uuid.UUID       `db:"user_id"`
	UserType   UserType        `db:"user_type"`
	Action     string          `db:"action"`
	EntityType string          `db:"entity_type"`
	EntityID   *uuid.UUID      `db:"entity_id"`
	Details    ActivityDetails `db:"details"`
	Location   *Location       `db:"location"`
	CreatedAt  time.Time       `db:"created_at"`
}

// Validate enforces the entry invariants before it reaches the store
func (e *ActivityLogEntry) Validate() error {
	if !e.UserType.Valid() {
		return fmt.Errorf("%w: unknown user type %q", ErrBadRequest, e.UserType)
	}
	switch e.Action {
	case ActionLogin, ActionLogout, ActionCreate, ActionUpdate, ActionDelete, ActionView, ActionPasswordChange:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrBadRequest, e.Action)
	}
	// Anything but System must reference the affected entity
	if e.EntityType != EntityTypeSystem && e.EntityID == nil {
		return fmt.Errorf("%w: entity_id required for entity type %q", ErrBadRequest, e.EntityType)
	}
	return nil
}

// ActivityDetails holds free-form context for an entry
type ActivityDetails map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (ad *ActivityDetails) Scan(value interface{}) error {
	if value == nil {
		*ad = make(ActivityDetails)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*ad = ActivityDetails(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (ad ActivityDetails) Value() (driver.Value, error) {
	if ad == nil {
		return nil, nil
	}
	return json.Marshal(ad)
}

// Location is geolocation context resolved from the request IP
type Location struct {
	IP          string       `json:"ip"`
	City        string       `json:"city,omitempty"`
	Country     string       `json:"country,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Scan implements sql.Scanner for JSONB
func (l *Location) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer for JSONB
func (l *Location) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// String formats the location for display, original "City, CC" style
func (l *Location) String() string {
	if l == nil {
		return "Location unknown"
	}
	switch {
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.City != "":
		return l.City
	case l.Country != "":
		return l.Country
	default:
		return "Location unknown"
	}
}

// ActivitySummaryGroup is the per-entity-type rollup used by dashboards
type ActivitySummaryGroup struct {
	EntityType string                 `json:"entity_type"`
	Actions    []ActivitySummaryCount `json:"actions"`
	TotalCount int64                  `json:"total_count"`
}

type ActivitySummaryCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}
