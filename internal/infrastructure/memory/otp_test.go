package memory

import (
	"context"
	"testing"
	"time"

	"github.com/go-api-careauth/internal/application/otp"
	"github.com/go-api-careauth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxAttempts = 5

func TestOTPStore_Sweep(t *testing.T) {
	s := NewOTPStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, domain.OTPRecord{Email: "old@x.com", Code: "111111", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, s.Save(ctx, domain.OTPRecord{Email: "new@x.com", Code: "222222", ExpiresAt: now.Add(time.Minute)}))

	assert.Equal(t, 1, s.Sweep(now))

	res, err := s.Consume(ctx, "old@x.com", "111111", now, maxAttempts)
	require.NoError(t, err)
	assert.Equal(t, otp.ResultNotFound, res)
	res, err = s.Consume(ctx, "new@x.com", "222222", now, maxAttempts)
	require.NoError(t, err)
	assert.Equal(t, otp.ResultOK, res)
}

func TestOTPStore_EmailsAreIndependent(t *testing.T) {
	s := NewOTPStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.Save(ctx, domain.OTPRecord{Email: "a@x.com", Code: "111111", ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, s.Save(ctx, domain.OTPRecord{Email: "A@x.com", Code: "222222", ExpiresAt: now.Add(time.Minute)}))

	res, err := s.Consume(ctx, "a@x.com", "222222", now, maxAttempts)
	require.NoError(t, err)
	assert.Equal(t, otp.ResultMismatch, res)
}

func TestOTPStore_RunSweeperStopsOnCancel(t *testing.T) {
	s := NewOTPStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestOTPStore_LocksAfterMaxAttempts(t *testing.T) {
	s := NewOTPStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.Save(ctx, domain.OTPRecord{Email: "a@x.com", Code: "123456", ExpiresAt: now.Add(time.Minute)}))

	for i := 1; i < maxAttempts; i++ {
		res, err := s.Consume(ctx, "a@x.com", "000000", now, maxAttempts)
		require.NoError(t, err)
		require.Equal(t, otp.ResultMismatch, res, "attempt %d", i)
	}
	res, err := s.Consume(ctx, "a@x.com", "000000", now, maxAttempts)
	require.NoError(t, err)
	assert.Equal(t, otp.ResultLocked, res)

	res, err = s.Consume(ctx, "a@x.com", "123456", now, maxAttempts)
	require.NoError(t, err)
	assert.Equal(t, otp.ResultNotFound, res)
}

func TestOTPStore_SaveResetsAttempts(t *testing.T) {
	s := NewOTPStore()
	ctx := context.Background()
	now := time.Now()
	rec := domain.OTPRecord{Email: "a@x.com", Code: "123456", ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, s.Save(ctx, rec))
	for i := 1; i < maxAttempts; i++ {
		_, err := s.Consume(ctx, "a@x.com", "000000", now, maxAttempts)
		require.NoError(t, err)
	}

	rec.Code = "654321"
	require.NoError(t, s.Save(ctx, rec))
	res, err := s.Consume(ctx, "a@x.com", "000000", now, maxAttempts)
	require.NoError(t, err)
	assert.Equal(t, otp.ResultMismatch, res)
}
