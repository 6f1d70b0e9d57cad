package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-library/internal/logger"
	"ms-library/internal/models"
)

type contextKey string

const claimsContextKey contextKey = "authClaims"

// ClaimsFromContext returns the verified claims stored by RequireUser.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// UserIDFromContext returns the authenticated user's ID, or "" when the
// request did not pass through RequireUser.
func UserIDFromContext(ctx context.Context) string {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.UserID
}

type Middleware struct {
	Secret string
	Logger *logger.Logger
}

func NewMiddleware(secret string, log *logger.Logger) *Middleware {
	return &Middleware{Secret: secret, Logger: log}
}

// RequireUser rejects requests without a valid bearer token and stores
// the claims on the request context.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}

		claims, err := VerifyToken(m.Secret, tokenString)
		if err != nil {
			m.Logger.Warn("AUTH", fmt.Sprintf("rejected token: %v", err))
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin runs after RequireUser and rejects non-admin users.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		if claims.Role != models.RoleAdmin {
			m.Logger.Warn("AUTH", fmt.Sprintf("user %s denied admin access", claims.UserID))
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
