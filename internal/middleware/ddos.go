package middleware

import (
	"net/http"
	"strings"

	"payment-gateway/internal/api"
	"payment-gateway/internal/guard"
)

// DDoSGuard gates every request through the guard's admission decision.
// Paths listed in exempt (exact match or trailing-slash prefix) bypass the
// guard entirely; the health endpoint must stay reachable while an
// operator investigates a flood.
func DDoSGuard(g *guard.Guard, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range exempt {
				if r.URL.Path == path ||
					(strings.HasSuffix(path, "/") && strings.HasPrefix(r.URL.Path, path)) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if err := g.Admit(guard.ClientKey(r)); err != nil {
				api.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
