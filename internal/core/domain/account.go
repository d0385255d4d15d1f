package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxUsernameLength = 30
	MinPasswordLength = 8
	// MaxPasswordLength is the most bcrypt will hash.
	MaxPasswordLength = 72
)

type Account struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	LastTokenReset time.Time `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidateCredentials checks the shape of a registration request. It says
// nothing about whether the username is taken.
func ValidateCredentials(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidAccount)
	}
	if len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username longer than %d characters", ErrInvalidAccount, MaxUsernameLength)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password shorter than %d characters", ErrInvalidAccount, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password longer than %d bytes", ErrInvalidAccount, MaxPasswordLength)
	}
	return nil
}

// TokenRevoked reports whether a token issued at iat predates the account's
// last reset. Equal instants count as revoked.
func (a *Account) TokenRevoked(iat time.Time) bool {
	return !iat.After(a.LastTokenReset)
}
