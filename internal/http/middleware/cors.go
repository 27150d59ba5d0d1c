package middleware

import (
	"net/http"
	"strings"
)

// The appointments API only reads and posts; the change feed upgrades a GET.
const (
	corsAllowedHeaders = "Accept, Authorization, Content-Type, X-Request-ID"
	corsAllowedMethods = "GET, POST, OPTIONS"
)

type originPolicy struct {
	any     bool
	origins map[string]bool
}

func newOriginPolicy(list []string) originPolicy {
	p := originPolicy{any: len(list) == 0, origins: make(map[string]bool, len(list))}
	for _, o := range list {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[strings.TrimRight(o, "/")] = true
		}
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (p originPolicy) allowOrigin(origin string) string {
	switch {
	case origin == "" && p.any:
		return "*"
	case origin == "":
		return ""
	case p.any || p.origins[strings.TrimRight(origin, "/")]:
		// Credentialed requests cannot use the wildcard.
		return origin
	}
	return ""
}

// CORS lets the web client call the API from allowedOrigins, or from any
// origin when the list is empty or holds "*". Preflights get an empty 200.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(allowedOrigins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if allow := policy.allowOrigin(strings.TrimSpace(r.Header.Get("Origin"))); allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if allow != "*" {
					h.Add("Vary", "Origin")
				}
			}
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Allow-Methods", corsAllowedMethods)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
