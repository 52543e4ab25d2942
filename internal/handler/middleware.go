package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/service"
)

type contextKey string

const scopeKey contextKey = "scope"

// AuthMiddleware checks the bearer token in the Authorization header and puts
// the caller scope in the request context.
func AuthMiddleware(authService *service.AuthService, logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Warn("Malformed Authorization header")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			scope, err := authService.ParseToken(parts[1])
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := WithScope(r.Context(), scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithScope(ctx context.Context, scope model.Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

func scopeFrom(w http.ResponseWriter, r *http.Request) (model.Scope, bool) {
	scope, ok := r.Context().Value(scopeKey).(model.Scope)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return scope, ok
}
