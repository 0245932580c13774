package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// AccessTokenCookie is the cookie carrying the short-lived access token.
const AccessTokenCookie = "accessToken"

type userCtxKey struct{}

// AccessValidator checks an access token and returns the user id it carries.
type AccessValidator interface {
	ValidateAccess(tokenString string) (string, error)
}

// UserLoader resolves the account an access token points at.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext retrieves the authenticated user placed by Authenticate.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(models.User)
	return user, ok
}

// Authenticate resolves a bearer token from the accessToken cookie or the
// Authorization header, validates it, loads the matching user with credential
// fields blanked, and exposes it to downstream handlers. It never refreshes
// tokens; refresh is a distinct client-invoked operation.
func Authenticate(tokens AccessValidator, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			tokenString := bearerToken(r)
			if tokenString == "" {
				logger.Warn("request missing access token", "path", r.URL.Path)
				unauthorized(w, "access token required")
				return
			}

			userID, err := tokens.ValidateAccess(tokenString)
			if err != nil {
				logger.Warn("access token rejected", "error", err)
				unauthorized(w, "invalid access token: "+err.Error())
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					logger.Warn("access token user no longer exists", "userId", userID)
					unauthorized(w, "invalid access token")
					return
				}
				logger.Error("load authenticated user", "error", err, "userId", userID)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			// Never expose credential material downstream.
			user.Password = ""
			user.RefreshToken = ""

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  http.StatusUnauthorized,
		"message": message,
	})
}
