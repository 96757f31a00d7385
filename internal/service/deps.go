package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/quocanhngo/recovery/internal/model"
)

// AccountStore is the account persistence used by the services.
// FindByEmail and FindByID return repository.ErrAccountNotFound when absent.
type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// Notifier delivers a recovery code to an email address
type Notifier interface {
	SendRecoveryCode(ctx context.Context, email, code string) error
}

// RequestLimiter throttles recovery requests per identifier
type RequestLimiter interface {
	Allow(ctx context.Context, key string) error
}

// normalizeEmail is the single identifier form used for lookups and OTP keys
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
