// Package otp issues, expires and consumes email verification passcodes.
//
// Each email moves through NONE -> PENDING -> (CONSUMED | EXPIRED) -> NONE.
// A new Issue for an email replaces any pending code for it.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-api-careauth/internal/domain"
)

// Result is the outcome of a verification attempt. Only store failures are
// reported as errors; every expected outcome is a Result.
type Result int

const (
	ResultOK Result = iota
	ResultNotFound
	ResultExpired
	ResultMismatch
	// ResultLocked means the wrong-guess limit was reached and the pending
	// code was discarded.
	ResultLocked
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultNotFound:
		return "not found"
	case ResultExpired:
		return "expired"
	case ResultMismatch:
		return "mismatch"
	case ResultLocked:
		return "locked"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

const (
	codeMin = 100000
	codeMax = 999999
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 120 * time.Second

// DefaultMaxAttempts is how many wrong guesses a pending code survives.
const DefaultMaxAttempts = 5

// Store holds pending codes. Implementations must make Save an atomic
// replace and Consume an atomic check-and-delete per email.
type Store interface {
	Save(ctx context.Context, rec domain.OTPRecord) error
	// Consume compares code against the pending record for email at now.
	// It deletes the record on ResultOK and ResultExpired. A wrong code
	// counts one attempt and yields ResultMismatch while attempts stay
	// below maxAttempts; the attempt that reaches it deletes the record and
	// yields ResultLocked.
	Consume(ctx context.Context, email, code string, now time.Time, maxAttempts int) (Result, error)
	Delete(ctx context.Context, email string) error
}

type Manager struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 keep the default.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, ttl: DefaultTTL, maxAttempts: DefaultMaxAttempts, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue generates a fresh code for email, replacing any pending one, and
// returns it for delivery.
func (m *Manager) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	rec := domain.OTPRecord{Email: email, Code: code, ExpiresAt: m.now().Add(m.ttl)}
	if err := m.store.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("save otp: %w", err)
	}
	return code, nil
}

// Verify checks code against the pending record for email.
func (m *Manager) Verify(ctx context.Context, email, code string) (Result, error) {
	res, err := m.store.Consume(ctx, email, code, m.now(), m.maxAttempts)
	if err != nil {
		return ResultNotFound, fmt.Errorf("consume otp: %w", err)
	}
	return res, nil
}

// Clear drops any pending code for email.
func (m *Manager) Clear(ctx context.Context, email string) error {
	return m.store.Delete(ctx, email)
}

// TTL is the validity window of issued codes.
func (m *Manager) TTL() time.Duration { return m.ttl }

// generateCode draws uniformly from 100000..999999 so codes never carry a
// leading zero.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
