package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/intakehq/briefing-backend/internal/entity"
	"github.com/intakehq/briefing-backend/internal/pkg/response"
)

// BearerAuth rejects requests whose Authorization header does not carry one
// of the configured tokens. An empty token list disables the check.
func BearerAuth(tokens []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(tokens) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			provided, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || provided == "" {
				response.Error(w, http.StatusUnauthorized, entity.CodeValidationError, "missing bearer token")
				return
			}

			for _, token := range tokens {
				if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Error(w, http.StatusUnauthorized, entity.CodeValidationError, "invalid bearer token")
		})
	}
}
