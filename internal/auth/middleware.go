package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/querygenie/querygenie/internal/database"
)

// SessionCookie carries the session token for server-rendered pages; API
// clients send the same token as a bearer header instead.
const SessionCookie = "querygenie_session"

type contextKey int

const userContextKey contextKey = iota

// UserFromContext returns the identity resolved by Authenticator, if any.
func UserFromContext(ctx context.Context) (database.User, bool) {
	user, ok := ctx.Value(userContextKey).(database.User)
	return user, ok
}

// WithUser is used by tests to inject an identity directly.
func WithUser(ctx context.Context, user database.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Authenticator resolves the session token (Authorization bearer header or
// session cookie) to a user and places it in the request context. Requests
// without a valid session pass through anonymous; enforcement is left to
// RequireSession so public routes share the same middleware stack.
func (s *Service) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(SessionCookie); err == nil {
				token = cookie.Value
			}
		}

		if token != "" {
			if user, err := s.ResolveToken(r.Context(), token); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// RequireSession is the single route guard protected routes compose around.
// With a redirect target it sends unauthenticated requests to the sign-in
// page; without one it responds 401.
func RequireSession(redirect string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); !ok {
				if redirect != "" {
					http.Redirect(w, r, redirect, http.StatusSeeOther)
				} else {
					http.Error(w, "authentication required", http.StatusUnauthorized)
				}
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
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
