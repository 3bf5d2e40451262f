package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Student account statuses
const (
	StudentStatusActive   = "active"
	StudentStatusInactive = "inactive"
)

type Student struct {
	ID                string
	RollNumber        string // External id, stored uppercased
	Name              string
	Email             string
	PasswordHash      string
	Department        string
	Program           string
	Batch             int
	School            string
	Status            string // "active", "inactive"
	IsFirstLogin      bool   // True until the default password is changed
	OTPTokenHash      *string
	OTPExpiresAt      *time.Time
	LastLoginAt       *time.Time
	LastLoginLocation *Location
	Courses           CourseList
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Course is a pre-computed timetable entry; this core only stores and
// returns it, scheduling happens upstream.
type Course struct {
	CourseCode      string           `json:"course_code"`
	CourseName      string           `json:"course_name"`
	BatchCourseCode string           `json:"batch_course_code,omitempty"`
	Faculty         string           `json:"faculty,omitempty"`
	Venue           string           `json:"venue,omitempty"`
	Schedule        map[string][]int `json:"schedule,omitempty"` // weekday -> period numbers
}

// CourseList holds a student's timetable as JSONB
type CourseList []Course

// Scan implements sql.Scanner for JSONB
func (cl *CourseList) Scan(value interface{}) error {
	if value == nil {
		*cl = CourseList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var courses []Course
	if err := json.Unmarshal(bytes, &courses); err != nil {
		return err
	}
	*cl = CourseList(courses)
	return nil
}

// Value implements driver.Valuer for JSONB
func (cl CourseList) Value() (driver.Value, error) {
	if cl == nil {
		return json.Marshal([]Course{})
	}
	return json.Marshal([]Course(cl))
}
