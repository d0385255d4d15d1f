package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/credentials"
	"github.com/vncsmyrnk/stv/internal/core/domain"
)

type AccountRepository interface {
	// Create stores a new account. It returns domain.ErrAccountExists when the
	// username is taken.
	Create(ctx context.Context, account *domain.Account) error
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	SetLastTokenReset(ctx context.Context, id uuid.UUID, at time.Time) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(hash, password string) (bool, error)
	CheckDummy(password string)
}

type TokenSigner interface {
	Sign(accountID uuid.UUID, issuedAt time.Time, ttl time.Duration) (string, error)
}

type TokenVerifier interface {
	Verify(token string) (*credentials.TokenInfo, error)
}

type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(ctx context.Context, token string) (*domain.Account, error)
	Revoke(ctx context.Context, accountID uuid.UUID) error
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}
