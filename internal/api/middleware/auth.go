package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/usagesentry/usagesentry/internal/pkg/errors"
	"github.com/usagesentry/usagesentry/internal/pkg/utils"
)

// TokenAuth returns a middleware enforcing a static bearer token. An empty
// configured token disables authentication, which is only sensible in
// development.
func TokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				utils.WriteError(w, errors.Unauthorized("Missing authorization header"))
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				utils.WriteError(w, errors.Unauthorized("Invalid authorization header format"))
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
				utils.WriteError(w, errors.Unauthorized("Invalid API token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
