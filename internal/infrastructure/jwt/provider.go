package jwtinfra

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the only error Validate returns, whatever the cause.
var ErrInvalidToken = errors.New("invalid token")

// Claims holds the JWT payload fields. Tokens carry no role: the role is
// resolved from the user store on every request.
type Claims struct {
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session tokens.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Provider.
type Option func(*Provider)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(secret []byte, expiry time.Duration, opts ...Option) (*Provider, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("jwt expiry must be positive, got %s", expiry)
	}
	p := &Provider{secret: secret, expiry: expiry, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	p.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(p.now),
	)
	return p, nil
}

// Issue returns a signed token for subject, valid for the configured window.
func (p *Provider) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("jwt subject is empty")
	}
	now := p.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Validate returns the token subject, or ErrInvalidToken.
func (p *Provider) Validate(tokenStr string) (string, error) {
	token, err := p.parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		slog.Debug("token rejected", "reason", err)
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		slog.Debug("token rejected", "reason", "missing subject")
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Expiry is the validity window of issued tokens.
func (p *Provider) Expiry() time.Duration { return p.expiry }
