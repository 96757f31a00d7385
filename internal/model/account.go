package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account represents a registered account that can recover its password by email
type Account struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name              string         `json:"name" gorm:"size:100;not null"`
	Email             string         `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password          string         `json:"-" gorm:"size:255;not null"`
	PasswordChangedAt *time.Time     `json:"password_changed_at" gorm:"type:timestamptz"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// AccountResponse is the safe version of Account for API responses
type AccountResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordChangedAt *time.Time `json:"password_changed_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ToResponse converts Account to safe AccountResponse
func (a *Account) ToResponse() AccountResponse {
	return AccountResponse{
		ID:                a.ID,
		Name:              a.Name,
		Email:             a.Email,
		PasswordChangedAt: a.PasswordChangedAt,
		CreatedAt:         a.CreatedAt,
	}
}
