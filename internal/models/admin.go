package models

import (
	"time"
)

// Admin roles
const (
	AdminRoleSuper = "super_admin"
	AdminRoleAdmin = "admin"
)

// Admin capabilities
const (
	PermManageStudents   = "manage_students"
	PermViewActivityLogs = "view_activity_logs"
	PermManageTickets    = "manage_tickets"
	PermManageAdmins     = "manage_admins"
	PermSystemSettings   = "system_settings"
)

// Admin account statuses
const (
	AdminStatusActive   = "active"
	AdminStatusInactive = "inactive"
)

type Admin struct {
	ID            string
	Username      string // External id
	Name          string
	Email         string
	PasswordHash  string
	Role          string // "admin", "super_admin"
	Permissions   []string
	Status        string // "active", "inactive"
	LoginAttempts int
	LockUntil     *time.Time // Lockout expiry after repeated failures
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsLocked reports whether the account is inside a lockout window
func (a *Admin) IsLocked() bool {
	return a.LockUntil != nil && a.LockUntil.After(time.Now())
}

// HasPermission checks the admin's capability set; super_admin implies all
func (a *Admin) HasPermission(perm string) bool {
	if a.Role == AdminRoleSuper {
		return true
	}
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
