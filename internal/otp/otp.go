// Package otp stores one-time recovery codes keyed by identifier and enforces
// their expiry and attempt limits.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/quocanhngo/recovery/internal/model"
)

const (
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 3
	DefaultRetention   = time.Hour

	codeMin = 100000
	codeMax = 999999
)

var ErrUnavailable = errors.New("otp store unavailable")

// Result is the outcome of checking a submitted code
type Result string

const (
	Success   Result = "success"
	NotFound  Result = "not_found"
	Expired   Result = "expired"
	LockedOut Result = "locked_out"
	Mismatch  Result = "mismatch"
)

// Store is a time-bounded code store. Every method is atomic with respect to a
// single identifier. Errors are reserved for infrastructure faults.
type Store interface {
	// Issue mints a fresh code for identifier, replacing any live one
	Issue(ctx context.Context, identifier string) (string, error)
	// Verify checks code and marks the record verified; the record is kept
	Verify(ctx context.Context, identifier, code string) (Result, error)
	// Consume checks code and deletes the record on success
	Consume(ctx context.Context, identifier, code string) (Result, error)
	// Invalidate removes any record for identifier
	Invalidate(ctx context.Context, identifier string) error
}

// Config tunes a store. Zero values fall back to the defaults.
type Config struct {
	TTL         time.Duration
	MaxAttempts int
	// Retention keeps expired records observable as Expired before a sweep may drop them
	Retention time.Duration
	Now       func() time.Time
	Generate  func() (string, error)
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Generate == nil {
		c.Generate = GenerateCode
	}
	return c
}

// GenerateCode returns a uniformly random 6-digit code in [100000, 999999]
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// action tells a store what to do with the stored record after check
type action int

const (
	keep action = iota
	save
	drop
)

// check applies the expiry, lockout and match rules to rec. rec may be nil.
// On save, rec has already been updated in place.
func check(rec *model.OTPRecord, code string, now time.Time, maxAttempts int, consume bool) (Result, action) {
	if rec == nil {
		return NotFound, keep
	}
	if rec.IsExpired(now) {
		return Expired, drop
	}
	if rec.IsLocked(maxAttempts) {
		return LockedOut, drop
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1 {
		if consume {
			return Success, drop
		}
		if rec.Verified {
			return Success, keep
		}
		rec.Verified = true
		return Success, save
	}

	if rec.Verified {
		return Mismatch, keep
	}
	rec.Attempts++
	return Mismatch, save
}

func newRecord(identifier, code string, now time.Time, ttl time.Duration) *model.OTPRecord {
	return &model.OTPRecord{
		Identifier: identifier,
		Code:       code,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
}
