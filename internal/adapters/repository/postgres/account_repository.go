package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

const uniqueViolation = "23505"

type accountRow struct {
	ID             uuid.UUID `db:"id"`
	Username       string    `db:"username"`
	PasswordHash   string    `db:"password_hash"`
	LastTokenReset time.Time `db:"last_token_reset"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r accountRow) toDomain() *domain.Account {
	return &domain.Account{
		ID:             r.ID,
		Username:       r.Username,
		PasswordHash:   r.PasswordHash,
		LastTokenReset: r.LastTokenReset.UTC(),
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) ports.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, username, password_hash, last_token_reset, created_at)
		VALUES (:id, :username, :password_hash, :last_token_reset, :created_at)
	`
	row := accountRow{
		ID:             account.ID,
		Username:       account.Username,
		PasswordHash:   account.PasswordHash,
		LastTokenReset: account.LastTokenReset,
		CreatedAt:      account.CreatedAt,
	}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `
		SELECT id, username, password_hash, last_token_reset, created_at
		FROM accounts
		WHERE lower(username) = lower($1)
	`
	return r.get(ctx, query, username)
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, username, password_hash, last_token_reset, created_at
		FROM accounts
		WHERE id = $1
	`
	return r.get(ctx, query, id)
}

func (r *accountRepository) get(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	var row accountRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return row.toDomain(), nil
}

func (r *accountRepository) SetLastTokenReset(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET last_token_reset = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update token reset: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to verify updated rows: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
