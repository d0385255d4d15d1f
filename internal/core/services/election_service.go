package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/ports"
	"github.com/vncsmyrnk/stv/internal/core/stv"
	"golang.org/x/sync/errgroup"
)

const defaultMailConcurrency = 4

type ElectionConfig struct {
	// PublicURL prefixes ballot links, e.g. https://vote.example.org.
	PublicURL string
	// MailConcurrency bounds parallel deliveries per election.
	MailConcurrency int
}

func (c ElectionConfig) ballotLink(endpoint string) string {
	return strings.TrimRight(c.PublicURL, "/") + "/ballots/" + endpoint
}

type electionService struct {
	elections ports.ElectionRepository
	tally     ports.TallyService
	mailer    ports.Mailer
	metrics   ports.Metrics
	cfg       ElectionConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewElectionService(elections ports.ElectionRepository, tally ports.TallyService, mailer ports.Mailer, metrics ports.Metrics, cfg ElectionConfig, logger *slog.Logger) ports.ElectionService {
	if cfg.MailConcurrency <= 0 {
		cfg.MailConcurrency = defaultMailConcurrency
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &electionService{
		elections: elections,
		tally:     tally,
		mailer:    mailer,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores the election with one ballot per voter and mails each voter
// their link. Delivery failures are reported per recipient and do not undo
// the election.
func (s *electionService) Create(ctx context.Context, input ports.CreateElectionInput) (*domain.Election, *ports.DispatchReport, error) {
	election, err := domain.NewElection(input.OwnerID, input.Name, input.Type, input.Candidates, input.Seats)
	if err != nil {
		return nil, nil, err
	}

	recipients, err := normalizeRecipients(input.Voters)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	ballots := make([]*domain.Ballot, len(recipients))
	for i := range ballots {
		ballots[i] = domain.NewBallot(election.ID, now)
	}

	if err := s.elections.CreateWithBallots(ctx, election, ballots); err != nil {
		return nil, nil, fmt.Errorf("failed to save election: %w", err)
	}
	s.metrics.ElectionCreated(len(ballots))

	// storage order must not tell which voter holds which ballot
	rand.Shuffle(len(recipients), func(i, j int) {
		recipients[i], recipients[j] = recipients[j], recipients[i]
	})
	report := s.dispatch(ctx, election, recipients, ballots)

	s.logger.Info("election created",
		"election_id", election.ID,
		"owner_id", election.OwnerID,
		"ballots", len(ballots),
		"mail_failures", len(report.Failed),
	)
	return election, report, nil
}

func (s *electionService) dispatch(ctx context.Context, election *domain.Election, recipients []string, ballots []*domain.Ballot) *ports.DispatchReport {
	report := &ports.DispatchReport{Failed: []ports.DispatchFailure{}}
	subject := fmt.Sprintf("Your ballot for %s!", election.Name)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.MailConcurrency)

	for i, to := range recipients {
		to := to
		body := fmt.Sprintf("Go to %s to vote in %s.", s.cfg.ballotLink(ballots[i].Endpoint()), election.Name)
		g.Go(func() error {
			err := s.mailer.Send(ctx, to, subject, body)
			s.metrics.BallotDispatched(err == nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("failed to send ballot", "election_id", election.ID, "recipient", to, "error", err)
				report.Failed = append(report.Failed, ports.DispatchFailure{Recipient: to, Error: err.Error()})
				return nil
			}
			report.Sent++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].Recipient < report.Failed[j].Recipient
	})
	return report
}

func normalizeRecipients(voters []string) ([]string, error) {
	seen := make(map[string]struct{}, len(voters))
	out := make([]string, 0, len(voters))
	for _, v := range voters {
		addr, err := mail.ParseAddress(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid voter address %q", domain.ErrInvalidElection, v)
		}
		key := strings.ToLower(addr.Address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr.Address)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one voter is required", domain.ErrInvalidElection)
	}
	return out, nil
}

func (s *electionService) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Election, error) {
	elections, err := s.elections.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	return elections, nil
}

func (s *electionService) Get(ctx context.Context, ownerID, electionID uuid.UUID) (*ports.ElectionDetails, error) {
	election, err := s.owned(ctx, ownerID, electionID)
	if err != nil {
		return nil, err
	}

	counts, err := s.elections.CountBallots(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count ballots: %w", err)
	}
	return &ports.ElectionDetails{Election: election, Ballots: counts}, nil
}

func (s *electionService) Close(ctx context.Context, ownerID, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.owned(ctx, ownerID, electionID)
	if err != nil {
		return nil, err
	}
	if err := election.Close(); err != nil {
		return nil, err
	}

	if err := s.elections.Close(ctx, electionID); err != nil {
		if errors.Is(err, domain.ErrElectionClosed) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to close election: %w", err)
	}
	s.metrics.ElectionClosed()

	s.logger.Info("election closed", "election_id", electionID)
	return election, nil
}

// Results counts a closed election for its owner.
func (s *electionService) Results(ctx context.Context, ownerID, electionID uuid.UUID) (*stv.Result, error) {
	election, err := s.owned(ctx, ownerID, electionID)
	if err != nil {
		return nil, err
	}
	if !election.Closed {
		return nil, domain.ErrElectionOpen
	}
	return s.tally.Tally(ctx, electionID)
}

func (s *electionService) owned(ctx context.Context, ownerID, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.elections.GetByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	if !election.IsOwnedBy(ownerID) {
		return nil, domain.ErrUnauthorised
	}
	return election, nil
}
