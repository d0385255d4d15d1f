package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/ports"
	"github.com/vncsmyrnk/stv/internal/core/stv"
)

type tallyService struct {
	elections ports.ElectionRepository
	ballots   ports.BallotRepository
	metrics   ports.Metrics
	logger    *slog.Logger
}

func NewTallyService(elections ports.ElectionRepository, ballots ports.BallotRepository, metrics ports.Metrics, logger *slog.Logger) ports.TallyService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &tallyService{
		elections: elections,
		ballots:   ballots,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *tallyService) Tally(ctx context.Context, electionID uuid.UUID) (*stv.Result, error) {
	election, err := s.elections.GetByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}

	rankings, err := s.ballots.VotedRankings(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ballots: %w", err)
	}

	start := time.Now()
	result, err := stv.Tabulate(election.Candidates, election.AvailableSeats, rankings)
	if err != nil {
		return nil, fmt.Errorf("failed to tabulate election %s: %w", electionID, err)
	}
	elapsed := time.Since(start)
	s.metrics.ResultsTallied(elapsed)

	s.logger.Debug("election tallied",
		"election_id", electionID,
		"ballots", len(rankings),
		"rounds", len(result.Rounds),
		"elapsed", elapsed,
	)
	return result, nil
}
