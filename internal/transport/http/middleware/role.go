package middleware

import (
	"net/http"

	"github.com/go-api-careauth/internal/application/gate"
	"github.com/go-api-careauth/internal/domain"
)

// RequireRole allows only users whose current role is one of allowedRoles.
// It must run after Authenticate; without a user in context it answers 401.
func RequireRole(allowedRoles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, err := gate.Authorize(u, allowedRoles...); err != nil {
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
