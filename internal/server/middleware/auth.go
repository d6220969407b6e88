package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pawsoft/vetsync/internal/server/handlers"
)

// AuthMiddleware validates the Bearer token and resolves the session's
// tenant and user into the request context. The engine treats the
// resolved tenant id as ground truth for every operation in a batch.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
			if err != nil {
				logger.Warn("invalid access token", slog.Any("error", err))
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), handlers.TenantIDKey, claims.TenantID)
			ctx = context.WithValue(ctx, handlers.UserIDKey, claims.UserID)

			logger.Debug("session authenticated",
				slog.String("tenant_id", claims.TenantID),
				slog.String("user_id", claims.UserID),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
