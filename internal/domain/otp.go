package domain

import "time"

// OTPRecord is a pending one-time passcode. At most one exists per email.
// It is never written to the users table.
type OTPRecord struct {
	Email     string
	Code      string
	ExpiresAt time.Time
	Attempts  int // wrong guesses so far
}

// Expired reports whether the record is past its expiry at now.
func (r OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
