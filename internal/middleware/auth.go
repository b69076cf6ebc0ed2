package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vpoguide/backend/internal/contextkeys"
	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/handler"
	"github.com/vpoguide/backend/internal/service"
)

// Auth creates a JWT authentication middleware.
func Auth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				handler.JSON(w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handler.JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization header"})
				return
			}

			claims, err := authSvc.VerifyToken(strings.TrimSpace(parts[1]))
			if err != nil {
				// An unconfigured secret surfaces as a 500, everything else as a 401.
				handler.Error(w, err)
				return
			}

			// Store admin info in context using typed keys
			ctx := context.WithValue(r.Context(), contextkeys.AdminEmail, claims.Email)
			ctx = context.WithValue(ctx, contextkeys.AdminRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly middleware ensures the caller has the admin role.
// Must be used AFTER Auth middleware which sets contextkeys.AdminRole in context.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(contextkeys.AdminRole).(string)
		if !ok || role != domain.RoleAdmin {
			handler.JSON(w, http.StatusForbidden, map[string]string{"error": "forbidden: admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
