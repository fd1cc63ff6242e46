package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/fieldsync/internal/server/handlers"
	"github.com/iudanet/fieldsync/pkg/api"
)

// AuthMiddleware проверяет JWT access token и кладет пользователя в контекст
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := handlers.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.Warn("missing or malformed Authorization header", "path", r.URL.Path)
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, tokenString)
			if err != nil {
				logger.Warn("invalid access token", "path", r.URL.Path, "error", err)
				unauthorized(w, "invalid or expired access token")
				return
			}

			logger.Debug("user authenticated", "user_id", claims.UserID)

			ctx := handlers.WithUser(r.Context(), claims.UserID, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="fieldsync"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(http.StatusUnauthorized),
		Message: message,
	})
}
