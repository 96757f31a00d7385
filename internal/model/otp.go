package model

import "time"

// OTPRecord is the live recovery code for one identifier (the account email).
// A record is created on issue, mutated by verification and removed on
// consumption, lockout or expiry. ExpiresAt is fixed at issue; verification
// does not extend it. Attempts counts failed verifications.
type OTPRecord struct {
	Identifier string    `json:"identifier"`
	Code       string    `json:"-"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Attempts   int       `json:"attempts"`
	Verified   bool      `json:"verified"`
}

// IsExpired checks if the record's validity window has passed
func (o *OTPRecord) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// IsLocked checks if the failed attempt budget is spent. Verified records are never locked.
func (o *OTPRecord) IsLocked(maxAttempts int) bool {
	return !o.Verified && o.Attempts >= maxAttempts
}
