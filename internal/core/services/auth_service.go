package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/credentials"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

type AuthService struct {
	accounts ports.AccountRepository
	hasher   ports.PasswordHasher
	signer   ports.TokenSigner
	verifier ports.TokenVerifier
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(accounts ports.AccountRepository, hasher ports.PasswordHasher, signer ports.TokenSigner, verifier ports.TokenVerifier, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		accounts: accounts,
		hasher:   hasher,
		signer:   signer,
		verifier: verifier,
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	if err := domain.ValidateCredentials(username, password); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)

	_, err := s.accounts.GetByUsername(ctx, username)
	if err == nil {
		return nil, domain.ErrAccountExists
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(credentials.Precision)
	account := &domain.Account{
		ID:             uuid.New(),
		Username:       username,
		PasswordHash:   hash,
		LastTokenReset: now,
		CreatedAt:      now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account registered", "account_id", account.ID)
	return account, nil
}

// Login returns a signed session token. Unknown usernames and wrong passwords
// both fail with domain.ErrUnauthorised after the same amount of work.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	account, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.hasher.CheckDummy(password)
			return "", domain.ErrUnauthorised
		}
		return "", fmt.Errorf("failed to get account: %w", err)
	}

	ok, err := s.hasher.Check(account.PasswordHash, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrUnauthorised
	}

	token, err := s.signer.Sign(account.ID, s.now(), s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a session token to its account. Tokens issued at or
// before the account's last reset are rejected even when not yet expired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Account, error) {
	info, err := s.verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	account, err := s.accounts.GetByID(ctx, info.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: unknown account", domain.ErrInvalidToken)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if account.TokenRevoked(info.IssuedAt) {
		return nil, fmt.Errorf("%w: revoked", domain.ErrInvalidToken)
	}
	return account, nil
}

// Revoke invalidates every token issued to the account so far.
func (s *AuthService) Revoke(ctx context.Context, accountID uuid.UUID) error {
	at := s.now().UTC().Truncate(credentials.Precision)
	if err := s.accounts.SetLastTokenReset(ctx, accountID, at); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	s.logger.Info("tokens revoked", "account_id", accountID)
	return nil
}

func (s *AuthService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}
