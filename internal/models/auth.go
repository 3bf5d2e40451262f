package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the single signed credential carried on every protected
// request. Account type, role and permissions are snapshots from login time;
// gates that need current state re-read the account row.
type TokenClaims struct {
	AccountID   string   `json:"account_id"`
	AccountType UserType `json:"account_type"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	FirstLogin  bool     `json:"first_login,omitempty"`
	jwt.RegisteredClaims
}

// HasPermission checks the claim's capability snapshot; super_admin implies all
func (c *TokenClaims) HasPermission(perm string) bool {
	if c.Role == AdminRoleSuper {
		return true
	}
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
