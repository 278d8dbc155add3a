// Package gate resolves session tokens to users and enforces role membership.
//
// Authentication always runs before authorization: a request whose token
// does not resolve to a live user is Unauthorized and never reaches the role
// check. The role is read from the store on every call, so a role change is
// honoured by the next request made with an already-issued token.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-api-careauth/internal/domain"
)

type tokenValidator interface {
	Validate(token string) (string, error)
}

type userFinder interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Gate struct {
	tokens tokenValidator
	users  userFinder
}

func New(tokens tokenValidator, users userFinder) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// ResolveUser validates token and loads its subject. Any token failure and a
// subject that no longer exists both yield domain.ErrUnauthorized.
func (g *Gate) ResolveUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}
	email, err := g.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthorized)
	}
	u, err := g.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if u == nil {
		slog.Debug("token subject no longer exists", "email", email)
		return nil, fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthorized)
	}
	return u, nil
}

// Authorize returns user if its current role is one of allowed, compared
// case-insensitively. An empty allowed list admits any authenticated user.
func Authorize(user *domain.User, allowed ...domain.Role) (*domain.User, error) {
	if user == nil {
		return nil, fmt.Errorf("no user: %w", domain.ErrUnauthorized)
	}
	if len(allowed) == 0 {
		return user, nil
	}
	for _, r := range allowed {
		if strings.EqualFold(string(user.Role), string(r)) {
			return user, nil
		}
	}
	return nil, fmt.Errorf("role %q not permitted: %w", user.Role, domain.ErrForbidden)
}

// Require runs ResolveUser then Authorize.
func (g *Gate) Require(ctx context.Context, token string, allowed ...domain.Role) (*domain.User, error) {
	u, err := g.ResolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return Authorize(u, allowed...)
}

// IsDenied reports whether err is an authentication or authorization refusal.
func IsDenied(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrForbidden)
}
