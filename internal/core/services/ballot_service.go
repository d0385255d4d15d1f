package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/endpoint"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

type ballotService struct {
	ballots   ports.BallotRepository
	elections ports.ElectionRepository
	metrics   ports.Metrics
	logger    *slog.Logger
}

func NewBallotService(ballots ports.BallotRepository, elections ports.ElectionRepository, metrics ports.Metrics, logger *slog.Logger) ports.BallotService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ballotService{
		ballots:   ballots,
		elections: elections,
		metrics:   metrics,
		logger:    logger,
	}
}

// FromEndpoint resolves a ballot link. A malformed endpoint, an unknown
// ballot and a hash mismatch all return domain.ErrNotFound.
func (s *ballotService) FromEndpoint(ctx context.Context, ep string) (*domain.Ballot, error) {
	id, hash, err := endpoint.Decode(ep)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	ballot, err := s.ballots.GetByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}

	if !ballot.Matches(hash) {
		return nil, domain.ErrNotFound
	}
	return ballot, nil
}

func (s *ballotService) Open(ctx context.Context, ep string) (*ports.BallotView, error) {
	ballot, err := s.FromEndpoint(ctx, ep)
	if err != nil {
		return nil, err
	}
	election, err := s.election(ctx, ballot)
	if err != nil {
		return nil, err
	}
	return &ports.BallotView{Ballot: ballot, Election: election}, nil
}

// Vote casts ranking on the ballot behind ep. The entity checks are repeated
// by the store's conditional update, which is what settles concurrent votes.
func (s *ballotService) Vote(ctx context.Context, ep string, ranking []string) error {
	ballot, err := s.FromEndpoint(ctx, ep)
	if err != nil {
		return err
	}
	election, err := s.election(ctx, ballot)
	if err != nil {
		return err
	}

	if err := ballot.Vote(election, ranking); err != nil {
		s.metrics.VoteRejected(rejectReason(err))
		return err
	}

	if err := s.ballots.CastVote(ctx, ballot.UUID, ballot.Data); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) || errors.Is(err, domain.ErrElectionClosed) || errors.Is(err, domain.ErrNotFound) {
			s.metrics.VoteRejected(rejectReason(err))
			return err
		}
		return fmt.Errorf("failed to cast vote: %w", err)
	}
	s.metrics.VoteCast()

	s.logger.Debug("vote cast", "election_id", election.ID)
	return nil
}

func (s *ballotService) election(ctx context.Context, ballot *domain.Ballot) (*domain.Election, error) {
	election, err := s.elections.GetByID(ctx, ballot.ElectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return election, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domain.ErrElectionClosed):
		return "election_closed"
	case errors.Is(err, domain.ErrInvalidRanking):
		return "invalid_ranking"
	default:
		return "other"
	}
}
