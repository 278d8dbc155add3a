package memory

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/go-api-careauth/internal/application/otp"
	"github.com/go-api-careauth/internal/domain"
)

// OTPStore keeps pending codes in process memory. Codes do not survive a
// restart and are not shared between processes.
type OTPStore struct {
	mu      sync.Mutex
	records map[string]domain.OTPRecord
}

func NewOTPStore() *OTPStore {
	return &OTPStore{records: make(map[string]domain.OTPRecord)}
}

func (s *OTPStore) Save(_ context.Context, rec domain.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Email] = rec
	return nil
}

func (s *OTPStore) Consume(_ context.Context, email, code string, now time.Time, maxAttempts int) (otp.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok {
		return otp.ResultNotFound, nil
	}
	if rec.Expired(now) {
		delete(s.records, email)
		return otp.ResultExpired, nil
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		rec.Attempts++
		if rec.Attempts >= maxAttempts {
			delete(s.records, email)
			return otp.ResultLocked, nil
		}
		s.records[email] = rec
		return otp.ResultMismatch, nil
	}
	delete(s.records, email)
	return otp.ResultOK, nil
}

func (s *OTPStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, email)
	return nil
}

// Sweep drops every record expired at now and returns how many it removed.
func (s *OTPStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for email, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, email)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *OTPStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.Sweep(t)
		}
	}
}
