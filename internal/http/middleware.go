package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/mvolkov/go_storefront/internal/domain"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
)

// TokenParser validates a bearer token and returns the user id it carries.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// RoleLookup re-reads the role from the durable user record. Authorization
// never trusts a token claim for role.
type RoleLookup interface {
	UserRole(ctx context.Context, userID string) (domain.Role, error)
}

// AuthMiddleware attaches the authenticated user id to the request context
// when a valid bearer token is presented. Requests without a token pass
// through untouched: cart routes accept guests.
func AuthMiddleware(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := parser.ParseToken(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that did not authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getUserIDFromContext(r.Context()) == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose durable user record is not an admin.
func RequireAdmin(roles RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := getUserIDFromContext(r.Context())
			if userID == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			role, err := roles.UserRole(r.Context(), userID)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			if role != domain.RoleAdmin {
				respondError(w, http.StatusForbidden, "forbidden", "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

// withUserID is used by tests to simulate an authenticated request.
func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
