package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/stv"
)

type ElectionRepository interface {
	// CreateWithBallots stores the election and all of its ballots atomically.
	CreateWithBallots(ctx context.Context, election *domain.Election, ballots []*domain.Ballot) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Election, error)
	// Close flips closed from false to true. It returns
	// domain.ErrElectionClosed when the election was already closed.
	Close(ctx context.Context, id uuid.UUID) error
	CountBallots(ctx context.Context, id uuid.UUID) (BallotCounts, error)
}

type BallotCounts struct {
	Issued int `json:"issued"`
	Voted  int `json:"voted"`
}

type CreateElectionInput struct {
	OwnerID    uuid.UUID
	Name       string
	Type       domain.ElectionType
	Candidates []string
	Seats      int
	Voters     []string
}

type DispatchFailure struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
}

// DispatchReport describes the delivery of ballot links for one election.
type DispatchReport struct {
	Sent   int               `json:"sent"`
	Failed []DispatchFailure `json:"failed"`
}

type ElectionDetails struct {
	*domain.Election
	Ballots BallotCounts `json:"ballots"`
}

type ElectionService interface {
	Create(ctx context.Context, input CreateElectionInput) (*domain.Election, *DispatchReport, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Election, error)
	Get(ctx context.Context, ownerID, electionID uuid.UUID) (*ElectionDetails, error)
	Close(ctx context.Context, ownerID, electionID uuid.UUID) (*domain.Election, error)
	Results(ctx context.Context, ownerID, electionID uuid.UUID) (*stv.Result, error)
}

// TallyService counts an election without any ownership check. It backs
// ElectionService.Results and the offline tally job.
type TallyService interface {
	Tally(ctx context.Context, electionID uuid.UUID) (*stv.Result, error)
}
