// Package middleware provides HTTP middlewares for authentication, logging and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/atinyakov/GophLedger/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// Authenticator checks a username and password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.Username, error)
}

// TokenParser resolves a bearer token to the user it was issued for.
type TokenParser interface {
	Parse(raw string) (models.Username, error)
}

// UserAuth is a middleware that requires an authenticated user.
//
// It accepts either an "Authorization: Bearer <token>" header verified by
// tokens, or HTTP Basic credentials checked by auth. On success the
// username is stored in the request context for GetUserFromContext.
func UserAuth(auth Authenticator, tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				user models.Username
				err  error
			)
			header := r.Header.Get("Authorization")
			switch {
			case strings.HasPrefix(header, "Bearer ") && tokens != nil:
				user, err = tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			default:
				name, pass, ok := r.BasicAuth()
				if !ok {
					w.Header().Set("WWW-Authenticate", `Basic realm="ledger"`)
					http.Error(w, "authentication required", http.StatusUnauthorized)
					return
				}
				user, err = auth.Authenticate(r.Context(), name, pass)
			}
			if err != nil {
				http.Error(w, models.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser returns a copy of ctx carrying user, as UserAuth does.
func WithUser(ctx context.Context, user models.Username) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext extracts the authenticated username from the request
// context. Returns an empty string if not found.
func GetUserFromContext(ctx context.Context) models.Username {
	if u, ok := ctx.Value(userKey).(models.Username); ok {
		return u
	}
	return ""
}
