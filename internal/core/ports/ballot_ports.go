package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/domain"
)

type BallotRepository interface {
	GetByUUID(ctx context.Context, id uuid.UUID) (*domain.Ballot, error)
	// CastVote stores ranking on the ballot only if it is still unvoted and
	// its election is open, as one atomic step. It returns
	// domain.ErrAlreadyVoted or domain.ErrElectionClosed otherwise.
	CastVote(ctx context.Context, id uuid.UUID, ranking []string) error
	// VotedRankings returns the rankings of every voted ballot of an election
	// from a single consistent snapshot.
	VotedRankings(ctx context.Context, electionID uuid.UUID) ([][]string, error)
}

// BallotView is what a voter sees when opening their link.
type BallotView struct {
	Ballot   *domain.Ballot
	Election *domain.Election
}

type BallotService interface {
	FromEndpoint(ctx context.Context, endpoint string) (*domain.Ballot, error)
	Open(ctx context.Context, endpoint string) (*BallotView, error)
	Vote(ctx context.Context, endpoint string, ranking []string) error
}
