package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/campuskit/timetable-portal/internal/models"
	httputil "github.com/campuskit/timetable-portal/pkg/http"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	claimsContextKey contextKey = "auth_claims"
	tokenContextKey  contextKey = "auth_token"
)

// RevocationChecker reports whether a token id has been revoked
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// StudentStateReader re-reads the persisted account row so gates decide on
// current state rather than claims minted at login
type StudentStateReader interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
}

// AdminStateReader mirrors StudentStateReader for admin accounts
type AdminStateReader interface {
	GetByID(ctx context.Context, id string) (*models.Admin, error)
}

// Middleware bundles the request gates that sit between the router and the
// handlers.
type Middleware struct {
	tokens     *TokenManager
	revocation RevocationChecker
	students   StudentStateReader
	admins     AdminStateReader
	logger     *slog.Logger

	// When true, a revocation lookup failure rejects the request instead of
	// letting the token through.
	failClosed bool
}

func NewMiddleware(tokens *TokenManager, revocation RevocationChecker, students StudentStateReader, admins AdminStateReader, logger *slog.Logger, failClosed bool) *Middleware {
	return &Middleware{
		tokens:     tokens,
		revocation: revocation,
		students:   students,
		admins:     admins,
		logger:     logger,
		failClosed: failClosed,
	}
}

// HomePath is where an authenticated account belongs when it strays
func HomePath(accountType models.UserType) string {
	if accountType == models.UserTypeAdmin {
		return "/admin/dashboard"
	}
	return "/student/timetable"
}

// Authenticate validates the bearer token, checks the revocation denylist and
// stores the claims in the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := extractBearerToken(r)
		if !ok {
			httputil.WriteUnauthorized(w, "Authentication required")
			return
		}

		claims, err := m.tokens.ValidateToken(tokenString)
		if err != nil {
			httputil.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		revoked, err := m.revocation.IsTokenRevoked(r.Context(), claims.ID)
		if err != nil {
			m.logger.Error("revocation check failed", slog.String("error", err.Error()))
			if m.failClosed {
				httputil.WriteInternalError(w, "Unable to verify session")
				return
			}
		} else if revoked {
			httputil.WriteUnauthorized(w, "Token has been revoked")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = context.WithValue(ctx, tokenContextKey, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAccountType rejects callers of the wrong account type, pointing them
// back at their own home page
func (m *Middleware) RequireAccountType(accountType models.UserType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			if claims.AccountType != accountType {
				httputil.WriteErrorWithRedirect(w, http.StatusForbidden, "forbidden",
					"You do not have access to this area", HomePath(claims.AccountType))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission re-reads the admin row so permission changes and
// deactivation take effect immediately, not at next login
func (m *Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok || claims.AccountType != models.UserTypeAdmin {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			admin, err := m.admins.GetByID(r.Context(), claims.AccountID)
			if err != nil || admin.Status != models.AdminStatusActive {
				httputil.WriteUnauthorized(w, "Account is not active")
				return
			}

			if !admin.HasPermission(permission) {
				httputil.WriteErrorWithRedirect(w, http.StatusForbidden, "forbidden",
					"You do not have permission to perform this action", HomePath(models.UserTypeAdmin))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnership lets a student touch only their own resources; admins pass
// through untouched
func (m *Middleware) RequireOwnership(urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			if claims.AccountType == models.UserTypeAdmin {
				next.ServeHTTP(w, r)
				return
			}

			if chi.URLParam(r, urlParam) != claims.AccountID {
				httputil.WriteErrorWithRedirect(w, http.StatusForbidden, "forbidden",
					"You can only access your own records", HomePath(claims.AccountType))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// FirstLoginGate forces students who still carry the provisioned default
// password to the change-password endpoint before anything else. The flag is
// read from the database each time so completing the change unblocks requests
// carrying the original token.
func (m *Middleware) FirstLoginGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "Authentication required")
			return
		}

		if claims.AccountType != models.UserTypeStudent || strings.HasSuffix(r.URL.Path, "/change-password") {
			next.ServeHTTP(w, r)
			return
		}

		student, err := m.students.GetByID(r.Context(), claims.AccountID)
		if err != nil {
			httputil.WriteUnauthorized(w, "Account not found")
			return
		}
		if student.Status != models.StudentStatusActive {
			httputil.WriteUnauthorized(w, "Account is not active")
			return
		}

		if student.IsFirstLogin {
			httputil.WriteErrorWithRedirect(w, http.StatusForbidden, "password_change_required",
				"You must change your password before continuing", "/auth/change-password")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

// GetClaimsFromContext retrieves the authenticated claims placed by Authenticate
func GetClaimsFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*models.TokenClaims)
	return claims, ok
}

// GetTokenFromContext retrieves the raw bearer token (used by logout to revoke it)
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}

// ContextWithClaims is a test helper for exercising handlers without the full
// middleware chain
func ContextWithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ContextWithToken pairs with ContextWithClaims in tests
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
