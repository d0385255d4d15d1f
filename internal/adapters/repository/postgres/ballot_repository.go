package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

type ballotRepository struct {
	db *sqlx.DB
}

func NewBallotRepository(db *sqlx.DB) ports.BallotRepository {
	return &ballotRepository{db: db}
}

func (r *ballotRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*domain.Ballot, error) {
	query := `
		SELECT uuid, created_at, salt, election_id, voted, data
		FROM ballots
		WHERE uuid = $1
	`
	var row struct {
		ballotRow
		Voted bool           `db:"voted"`
		Data  pq.StringArray `db:"data"`
	}
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}
	return &domain.Ballot{
		UUID:       row.UUID,
		CreatedAt:  row.CreatedAt,
		Salt:       row.Salt,
		ElectionID: row.ElectionID,
		Voted:      row.Voted,
		Data:       []string(row.Data),
	}, nil
}

// CastVote is a single conditional update. The election row is share-locked
// so a concurrent Close either waits for this vote or makes it fail.
func (r *ballotRepository) CastVote(ctx context.Context, id uuid.UUID, ranking []string) error {
	query := `
		UPDATE ballots b
		SET voted = true, data = $2
		WHERE b.uuid = $1
		  AND NOT b.voted
		  AND EXISTS (
		      SELECT 1 FROM elections e
		      WHERE e.id = b.election_id AND NOT e.closed
		      FOR SHARE
		  )
	`
	result, err := r.db.ExecContext(ctx, query, id, pq.StringArray(ranking))
	if err != nil {
		return fmt.Errorf("failed to cast vote: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to verify updated rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	var state struct {
		Voted  bool `db:"voted"`
		Closed bool `db:"closed"`
	}
	err = r.db.GetContext(ctx, &state, `
		SELECT b.voted, e.closed
		FROM ballots b JOIN elections e ON e.id = b.election_id
		WHERE b.uuid = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to check ballot: %w", err)
	}
	if state.Voted {
		return domain.ErrAlreadyVoted
	}
	return domain.ErrElectionClosed
}

func (r *ballotRepository) VotedRankings(ctx context.Context, electionID uuid.UUID) ([][]string, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var data []pq.StringArray
	query := `SELECT data FROM ballots WHERE election_id = $1 AND voted ORDER BY uuid`
	if err := tx.SelectContext(ctx, &data, query, electionID); err != nil {
		return nil, fmt.Errorf("failed to read rankings: %w", err)
	}

	rankings := make([][]string, 0, len(data))
	for _, d := range data {
		rankings = append(rankings, []string(d))
	}
	return rankings, tx.Commit()
}
