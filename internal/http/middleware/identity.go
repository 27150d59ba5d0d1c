package middleware

import (
	"context"
	"net/http"

	"github.com/wolfman30/medipulse/internal/identity"
	"github.com/wolfman30/medipulse/pkg/logging"
)

type contextKey string

const userKey contextKey = "medipulseUser"

// Identity resolves the bearer token into the request's user. Requests
// without a token are guests. A token that fails verification is rejected
// with 401. With no secret configured every request is a guest.
func Identity(secret string, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var user identity.User = identity.Guest{}
			if secret != "" {
				u, err := identity.ParseToken(r.Header.Get("Authorization"), secret)
				if err != nil {
					logger.Warn("rejected identity token", "path", r.URL.Path, "error", err)
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				user = u
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// UserFromContext returns the request's user, or Guest when Identity did not
// run.
func UserFromContext(ctx context.Context) identity.User {
	if u, ok := ctx.Value(userKey).(identity.User); ok {
		return u
	}
	return identity.Guest{}
}

func roleOf(u identity.User) string {
	a, ok := u.(identity.Authenticated)
	if !ok {
		return "guest"
	}
	if identity.IsAdmin(a) {
		return string(identity.RoleAdmin)
	}
	return string(a.Role)
}
