package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKey requires "Authorization: Bearer <server.api_key>" on every request.
// With no key configured the API is open, which is the local single-user
// default.
func (m *Middleware) APIKey(next http.Handler) http.Handler {
	want := []byte(m.cfg.Server.APIKey)
	if len(want) == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got string
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			got = parts[1]
		}

		if got == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			m.log.Debug().Str("path", r.URL.Path).Msg("api key rejected")
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
