package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-api-careauth/internal/application/otp"
	"github.com/go-api-careauth/internal/domain"
	"github.com/redis/go-redis/v9"
)

// expiredGrace keeps a record readable past its expiry so Consume can report
// Expired instead of NotFound. Redis evicts it afterwards.
const expiredGrace = 10 * time.Minute

// consumeScript atomically performs GET -> compare -> DEL on one record.
// KEYS[1] = record key
// ARGV[1] = submitted code
// ARGV[2] = current unix time in milliseconds
// ARGV[3] = max wrong attempts
//
// The record value is "<code>:<expires_at_ms>:<attempts>".
// Returns "ok", "not_found", "expired", "mismatch" or "locked".
var consumeScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return 'not_found'
end
local code, exp, attempts = string.match(data, '^(%d+):(%d+):(%d+)$')
if not code then
  redis.call('DEL', KEYS[1])
  return 'not_found'
end
local expiresAt = tonumber(exp)
local now = tonumber(ARGV[2])
if now > expiresAt then
  redis.call('DEL', KEYS[1])
  return 'expired'
end
if code ~= ARGV[1] then
  local n = tonumber(attempts) + 1
  if n >= tonumber(ARGV[3]) then
    redis.call('DEL', KEYS[1])
    return 'locked'
  end
  local ttl = redis.call('PTTL', KEYS[1])
  local val = code .. ':' .. exp .. ':' .. n
  if ttl > 0 then
    redis.call('SET', KEYS[1], val, 'PX', ttl)
  else
    redis.call('SET', KEYS[1], val)
  end
  return 'mismatch'
end
redis.call('DEL', KEYS[1])
return 'ok'
`)

// OTPStore keeps pending codes in Redis so every API process sees the same
// record for an email.
type OTPStore struct {
	client redis.UniversalClient
	prefix string
}

func NewOTPStore(client redis.UniversalClient, prefix string) *OTPStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &OTPStore{client: client, prefix: prefix}
}

// NewClient opens a client for addr and checks it with PING.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

func (s *OTPStore) key(email string) string {
	return s.prefix + ":" + email
}

// Save replaces any pending record in a single SET.
func (s *OTPStore) Save(ctx context.Context, rec domain.OTPRecord) error {
	ttl := time.Until(rec.ExpiresAt) + expiredGrace
	if ttl <= 0 {
		ttl = expiredGrace
	}
	val := rec.Code + ":" + strconv.FormatInt(rec.ExpiresAt.UnixMilli(), 10) + ":" + strconv.Itoa(rec.Attempts)
	if err := s.client.Set(ctx, s.key(rec.Email), val, ttl).Err(); err != nil {
		return wrapErr("save", err)
	}
	return nil
}

func (s *OTPStore) Consume(ctx context.Context, email, code string, now time.Time, maxAttempts int) (otp.Result, error) {
	out, err := consumeScript.Run(ctx, s.client, []string{s.key(email)}, code, now.UnixMilli(), maxAttempts).Text()
	if err != nil {
		return otp.ResultNotFound, wrapErr("consume", err)
	}
	switch out {
	case "ok":
		return otp.ResultOK, nil
	case "expired":
		return otp.ResultExpired, nil
	case "mismatch":
		return otp.ResultMismatch, nil
	case "locked":
		return otp.ResultLocked, nil
	default:
		return otp.ResultNotFound, nil
	}
}

func (s *OTPStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.key(email)).Err(); err != nil {
		return wrapErr("delete", err)
	}
	return nil
}

// wrapErr marks connection and deadline failures as transient.
func wrapErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("redis otp %s: %w: %w", op, domain.ErrTransient, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("redis otp %s: %w: %w", op, domain.ErrTransient, err)
	}
	return fmt.Errorf("redis otp %s: %w", op, err)
}
