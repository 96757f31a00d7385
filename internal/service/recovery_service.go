package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/quocanhngo/recovery/internal/otp"
	"github.com/quocanhngo/recovery/internal/ratelimit"
	"github.com/quocanhngo/recovery/internal/repository"
	"github.com/quocanhngo/recovery/pkg/password"
	"go.uber.org/zap"
)

var (
	ErrAccountStore = errors.New("account store failure")
	ErrOTPStore     = errors.New("otp store failure")
)

// Reasons a recovery request is not accepted
const (
	ReasonInvalidEmail   = "invalid_email"
	ReasonRateLimited    = "rate_limited"
	ReasonDeliveryFailed = "delivery_failed"
)

// RequestResult is the outcome of RequestRecovery. Unknown emails are accepted
// exactly like known ones.
type RequestResult struct {
	Accepted bool
	Reason   string
}

// VerifyResult is the outcome of VerifyCode
type VerifyResult struct {
	Outcome otp.Result
	Message string
}

// ResetOutcome is the closed set of ResetPassword outcomes
type ResetOutcome string

const (
	ResetSuccess      ResetOutcome = "success"
	ResetInvalidCode  ResetOutcome = "invalid_code"
	ResetWeakPassword ResetOutcome = "weak_password"
	ResetStoreFailure ResetOutcome = "store_failure"
)

// ResetResult is the outcome of ResetPassword
type ResetResult struct {
	Outcome    ResetOutcome
	CodeResult otp.Result // why the code was refused, for ResetInvalidCode
	Violations []string   // failed policy rules, for ResetWeakPassword
}

var verifyMessages = map[otp.Result]string{
	otp.Success:   "Code verified",
	otp.NotFound:  "Code not found or expired",
	otp.Expired:   "Code has expired",
	otp.LockedOut: "Too many failed attempts. Please request a new code",
	otp.Mismatch:  "Invalid code",
}

// RecoveryService runs the forgot-password protocol: issue a code, verify it,
// then consume it while setting a new password.
type RecoveryService struct {
	accounts AccountStore
	notifier Notifier
	otpStore otp.Store
	hasher   *password.Hasher
	limiter  RequestLimiter
	codeTTL  time.Duration
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRecoveryService wires the recovery flow. limiter may be nil to disable throttling.
func NewRecoveryService(
	accounts AccountStore,
	notifier Notifier,
	otpStore otp.Store,
	hasher *password.Hasher,
	limiter RequestLimiter,
	codeTTL time.Duration,
	logger *zap.Logger,
) *RecoveryService {
	if codeTTL <= 0 {
		codeTTL = otp.DefaultTTL
	}
	return &RecoveryService{
		accounts: accounts,
		notifier: notifier,
		otpStore: otpStore,
		hasher:   hasher,
		limiter:  limiter,
		codeTTL:  codeTTL,
		validate: validator.New(),
		logger:   logger,
	}
}

// CodeTTL is how long an issued code stays valid
func (s *RecoveryService) CodeTTL() time.Duration {
	return s.codeTTL
}

// RequestRecovery issues a code for email and delivers it. The response does
// not reveal whether the email is registered.
func (s *RecoveryService) RequestRecovery(ctx context.Context, email string) (*RequestResult, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return &RequestResult{Reason: ReasonInvalidEmail}, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, email); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				s.logger.Info("recovery request throttled", zap.String("email", email))
				return &RequestResult{Reason: ReasonRateLimited}, nil
			}
			s.logger.Warn("rate limiter unavailable, request allowed", zap.Error(err))
		}
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		s.logger.Info("recovery requested for unknown email", zap.String("email", email))
		return &RequestResult{Accepted: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountStore, err)
	}

	code, err := s.otpStore.Issue(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOTPStore, err)
	}

	// delivery happens after Issue returned, so no store lock is held while we wait
	if err := s.notifier.SendRecoveryCode(ctx, account.Email, code); err != nil {
		s.logger.Error("recovery code delivery failed", zap.String("email", email), zap.Error(err))
		if invErr := s.otpStore.Invalidate(ctx, email); invErr != nil {
			s.logger.Error("failed to invalidate undelivered code", zap.String("email", email), zap.Error(invErr))
		}
		return &RequestResult{Reason: ReasonDeliveryFailed}, nil
	}

	s.logger.Info("recovery code issued", zap.String("email", email))
	return &RequestResult{Accepted: true}, nil
}

// VerifyCode checks a submitted code without consuming it
func (s *RecoveryService) VerifyCode(ctx context.Context, email, code string) (*VerifyResult, error) {
	email = normalizeEmail(email)

	result, err := s.otpStore.Verify(ctx, email, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOTPStore, err)
	}

	if result != otp.Success {
		s.logger.Info("recovery code rejected", zap.String("email", email), zap.String("result", string(result)))
	}
	return &VerifyResult{Outcome: result, Message: verifyMessages[result]}, nil
}

// ResetPassword re-checks and consumes the code, then stores the new password.
// A weak password is refused before the code is touched so the user can retry
// with the same code.
func (s *RecoveryService) ResetPassword(ctx context.Context, email, code, newPassword string) (*ResetResult, error) {
	email = normalizeEmail(email)

	if violations := password.Violations(newPassword); len(violations) > 0 {
		return &ResetResult{Outcome: ResetWeakPassword, Violations: violations}, nil
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		// a code can outlive its account; make sure it cannot be used later
		if invErr := s.otpStore.Invalidate(ctx, email); invErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrOTPStore, invErr)
		}
		return &ResetResult{Outcome: ResetInvalidCode, CodeResult: otp.NotFound}, nil
	}
	if err != nil {
		s.logger.Error("account lookup failed during reset", zap.String("email", email), zap.Error(err))
		return &ResetResult{Outcome: ResetStoreFailure}, nil
	}

	result, err := s.otpStore.Consume(ctx, email, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOTPStore, err)
	}
	if result != otp.Success {
		s.logger.Info("reset refused", zap.String("email", email), zap.String("result", string(result)))
		return &ResetResult{Outcome: ResetInvalidCode, CodeResult: result}, nil
	}

	// the code is spent from here on; failures below require a new code
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("password hashing failed after code consumption", zap.String("email", email), zap.Error(err))
		return &ResetResult{Outcome: ResetStoreFailure}, nil
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		s.logger.Error("password update failed after code consumption", zap.String("email", email), zap.Error(err))
		return &ResetResult{Outcome: ResetStoreFailure}, nil
	}

	s.logger.Info("password reset completed", zap.String("email", email), zap.String("account_id", account.ID.String()))
	return &ResetResult{Outcome: ResetSuccess}, nil
}
