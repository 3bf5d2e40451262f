package auth

import (
	"fmt"
	"time"

	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and validates the portal's single signed credential:
// an HS256 JWT carrying account id, account type, role and permissions.
type TokenManager struct {
	secret string
	expiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: secret,
		expiry: expiry,
	}
}

// IssueStudentToken signs a credential for a student account
func (tm *TokenManager) IssueStudentToken(student *models.Student) (string, error) {
	return tm.sign(&models.TokenClaims{
		AccountID:   student.ID,
		AccountType: models.UserTypeStudent,
		FirstLogin:  student.IsFirstLogin,
	})
}

// IssueAdminToken signs a credential for an admin account
func (tm *TokenManager) IssueAdminToken(admin *models.Admin) (string, error) {
	return tm.sign(&models.TokenClaims{
		AccountID:   admin.ID,
		AccountType: models.UserTypeAdmin,
		Role:        admin.Role,
		Permissions: admin.Permissions,
	})
}

func (tm *TokenManager) sign(claims *models.TokenClaims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if !claims.AccountType.Valid() {
		return nil, fmt.Errorf("invalid token: missing account type")
	}

	return claims, nil
}
