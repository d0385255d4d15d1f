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

type electionRow struct {
	ID             uuid.UUID      `db:"id"`
	OwnerID        uuid.UUID      `db:"owner_id"`
	Name           string         `db:"name"`
	Type           string         `db:"type"`
	Candidates     pq.StringArray `db:"candidates"`
	AvailableSeats int            `db:"available_seats"`
	Closed         bool           `db:"closed"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r electionRow) toDomain() *domain.Election {
	return &domain.Election{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Name:           r.Name,
		Type:           domain.ElectionType(r.Type),
		Candidates:     []string(r.Candidates),
		AvailableSeats: r.AvailableSeats,
		Closed:         r.Closed,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type ballotRow struct {
	UUID       uuid.UUID `db:"uuid"`
	CreatedAt  int64     `db:"created_at"`
	Salt       uuid.UUID `db:"salt"`
	ElectionID uuid.UUID `db:"election_id"`
}

type electionRepository struct {
	db *sqlx.DB
}

func NewElectionRepository(db *sqlx.DB) ports.ElectionRepository {
	return &electionRepository{db: db}
}

func (r *electionRepository) CreateWithBallots(ctx context.Context, election *domain.Election, ballots []*domain.Ballot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryElection := `
		INSERT INTO elections (id, owner_id, name, type, candidates, available_seats, closed, created_at)
		VALUES (:id, :owner_id, :name, :type, :candidates, :available_seats, :closed, :created_at)
	`
	_, err = tx.NamedExecContext(ctx, queryElection, electionRow{
		ID:             election.ID,
		OwnerID:        election.OwnerID,
		Name:           election.Name,
		Type:           string(election.Type),
		Candidates:     pq.StringArray(election.Candidates),
		AvailableSeats: election.AvailableSeats,
		Closed:         election.Closed,
		CreatedAt:      election.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert election: %w", err)
	}

	rows := make([]ballotRow, len(ballots))
	for i, b := range ballots {
		rows[i] = ballotRow{UUID: b.UUID, CreatedAt: b.CreatedAt, Salt: b.Salt, ElectionID: b.ElectionID}
	}
	queryBallots := `
		INSERT INTO ballots (uuid, created_at, salt, election_id)
		VALUES (:uuid, :created_at, :salt, :election_id)
	`
	if err := bulkInsert(ctx, tx, queryBallots, rows, 4); err != nil {
		return fmt.Errorf("failed to insert ballots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// bulkInsert runs a named multi-row insert in chunks that stay under the
// postgres limit of 65535 bind parameters per statement.
func bulkInsert[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T, numFields int) error {
	chunk := (1<<16)/numFields - 1
	for i := 0; i < len(rows); i += chunk {
		end := min(i+chunk, len(rows))
		batch := rows[i:end]

		result, err := tx.NamedExecContext(ctx, query, batch)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not verify inserted rows: %w", err)
		}
		if n != int64(len(batch)) {
			return fmt.Errorf("expected to insert %d rows but inserted %d", len(batch), n)
		}
	}
	return nil
}

func (r *electionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	query := `
		SELECT id, owner_id, name, type, candidates, available_seats, closed, created_at
		FROM elections
		WHERE id = $1
	`
	var row electionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return row.toDomain(), nil
}

func (r *electionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Election, error) {
	query := `
		SELECT id, owner_id, name, type, candidates, available_seats, closed, created_at
		FROM elections
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
	`
	var rows []electionRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}

	elections := make([]*domain.Election, 0, len(rows))
	for _, row := range rows {
		elections = append(elections, row.toDomain())
	}
	return elections, nil
}

// Close takes the election row lock, so it waits for votes that are being
// cast and later votes see the election closed.
func (r *electionRepository) Close(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE elections SET closed = true WHERE id = $1 AND NOT closed`, id)
	if err != nil {
		return fmt.Errorf("failed to close election: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to verify updated rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM elections WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check election: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrElectionClosed
}

func (r *electionRepository) CountBallots(ctx context.Context, id uuid.UUID) (ports.BallotCounts, error) {
	query := `
		SELECT COUNT(*) AS issued, COUNT(*) FILTER (WHERE voted) AS voted
		FROM ballots
		WHERE election_id = $1
	`
	var counts struct {
		Issued int `db:"issued"`
		Voted  int `db:"voted"`
	}
	if err := r.db.GetContext(ctx, &counts, query, id); err != nil {
		return ports.BallotCounts{}, fmt.Errorf("failed to count ballots: %w", err)
	}
	return ports.BallotCounts{Issued: counts.Issued, Voted: counts.Voted}, nil
}
