package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ChartMentor-io/chartmentor/internal/auth"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
)

type contextKey string

const userContextKey contextKey = "apiUser"

// unifiedAuth accepts any of the three credentials a caller may hold: a
// bearer JWT, a stored API token in X-API-Key, or the portal's session
// cookie. Whichever validates first wins.
func (api *Api) unifiedAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := api.resolveCaller(r); ok {
			user, err := database.GetUserByID(userID)
			if err == nil {
				ctx := context.WithValue(r.Context(), userContextKey, user)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func (api *Api) resolveCaller(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			if claims, err := api.tokenManager.ValidateToken(parts[1]); err == nil {
				return claims.UserID, true
			}
		}
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		if token, err := auth.ValidateToken(key); err == nil {
			return token.UserID, true
		}
	}

	if cookie, err := r.Cookie("session"); err == nil {
		if userID, err := auth.ValidateSession(cookie.Value); err == nil {
			return userID, true
		}
	}

	return "", false
}

func callerFromContext(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	return user, ok
}
