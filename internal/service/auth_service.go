package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quocanhngo/recovery/internal/model"
	"github.com/quocanhngo/recovery/internal/otp"
	"github.com/quocanhngo/recovery/internal/repository"
	"github.com/quocanhngo/recovery/pkg/auth"
	"github.com/quocanhngo/recovery/pkg/password"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password does not meet the strength policy")
)

// WeakPasswordError lists the policy rules a password failed
type WeakPasswordError struct {
	Violations []string
}

func (e *WeakPasswordError) Error() string {
	return password.Describe(e.Violations)
}

func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}

// AuthService handles registration, login and password changes
type AuthService struct {
	accounts   AccountStore
	otpStore   otp.Store
	hasher     *password.Hasher
	jwtManager *auth.JWTManager
	logger     *zap.Logger
}

func NewAuthService(
	accounts AccountStore,
	otpStore otp.Store,
	hasher *password.Hasher,
	jwtManager *auth.JWTManager,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts:   accounts,
		otpStore:   otpStore,
		hasher:     hasher,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// ==================== Register ====================

// Register creates a new account after checking the password policy
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AccountResponse, error) {
	if violations := password.Violations(req.Password); len(violations) > 0 {
		return nil, &WeakPasswordError{Violations: violations}
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:       uuid.New(),
		Name:     req.Name,
		Email:    normalizeEmail(req.Email),
		Password: hashedPassword,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrAccountStore, err)
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID.String()))
	resp := account.ToResponse()
	return &resp, nil
}

// ==================== Login ====================

// Login authenticates an account and returns a JWT token
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrAccountStore, err)
	}

	if !s.hasher.Verify(req.Password, account.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateToken(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.LoginResponse{
		Token:   token,
		Account: account.ToResponse(),
	}, nil
}

// ==================== Change Password ====================

// ChangePassword replaces the password of a signed-in account. Any pending
// recovery code for the account is invalidated.
func (s *AuthService) ChangePassword(ctx context.Context, accountID uuid.UUID, req model.ChangePasswordRequest) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: %v", ErrAccountStore, err)
	}

	if !s.hasher.Verify(req.CurrentPassword, account.Password) {
		return ErrInvalidCredentials
	}

	if violations := password.Violations(req.NewPassword); len(violations) > 0 {
		return &WeakPasswordError{Violations: violations}
	}

	hashedPassword, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hashedPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountStore, err)
	}

	if err := s.otpStore.Invalidate(ctx, account.Email); err != nil {
		s.logger.Warn("failed to invalidate recovery code after password change",
			zap.String("account_id", account.ID.String()), zap.Error(err))
	}

	s.logger.Info("password changed", zap.String("account_id", account.ID.String()))
	return nil
}

// GetProfile returns the account's public profile
func (s *AuthService) GetProfile(ctx context.Context, accountID uuid.UUID) (*model.AccountResponse, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	resp := account.ToResponse()
	return &resp, nil
}
