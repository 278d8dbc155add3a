package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-api-careauth/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

type userResolver interface {
	ResolveUser(ctx context.Context, token string) (*domain.User, error)
}

// Authenticate resolves the Bearer token to its user and stores the user in
// the request context. Requests that fail never reach the next handler.
func Authenticate(resolver userResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			u, err := resolver.ResolveUser(r.Context(), strings.TrimSpace(tokenStr))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
			case errors.Is(err, domain.ErrUnauthorized):
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
			case errors.Is(err, domain.ErrTransient):
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry later")
			default:
				slog.Error("authenticate", "err", err)
				writeJSONError(w, http.StatusInternalServerError, "internal error")
			}
		})
	}
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the user stored by Authenticate.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok && u != nil
}
