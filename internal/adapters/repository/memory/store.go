// Package memory keeps accounts, elections and ballots in process memory.
// It honours the same atomicity contracts as the postgres repositories and
// is used by tests and by the server when no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

type Store struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]domain.Account
	usernames map[string]uuid.UUID
	elections map[uuid.UUID]domain.Election
	ballots   map[uuid.UUID]domain.Ballot
	byElect   map[uuid.UUID][]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		accounts:  make(map[uuid.UUID]domain.Account),
		usernames: make(map[string]uuid.UUID),
		elections: make(map[uuid.UUID]domain.Election),
		ballots:   make(map[uuid.UUID]domain.Ballot),
		byElect:   make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *Store) Accounts() ports.AccountRepository { return accountRepository{s} }
func (s *Store) Elections() ports.ElectionRepository { return electionRepository{s} }
func (s *Store) Ballots() ports.BallotRepository { return ballotRepository{s} }

type accountRepository struct{ s *Store }

func usernameKey(username string) string {
	return strings.ToLower(username)
}

func (r accountRepository) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := usernameKey(account.Username)
	if _, taken := r.s.usernames[key]; taken {
		return domain.ErrAccountExists
	}
	r.s.accounts[account.ID] = *account
	r.s.usernames[key] = account.ID
	return nil
}

func (r accountRepository) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usernames[usernameKey(username)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	account := r.s.accounts[id]
	return &account, nil
}

func (r accountRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

func (r accountRepository) SetLastTokenReset(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.LastTokenReset = at
	r.s.accounts[id] = account
	return nil
}

type electionRepository struct{ s *Store }

func copyElection(e domain.Election) *domain.Election {
	e.Candidates = append([]string(nil), e.Candidates...)
	return &e
}

func (r electionRepository) CreateWithBallots(_ context.Context, election *domain.Election, ballots []*domain.Ballot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.elections[election.ID] = *copyElection(*election)
	ids := make([]uuid.UUID, 0, len(ballots))
	for _, b := range ballots {
		stored := *b
		stored.Data = append([]string(nil), b.Data...)
		r.s.ballots[b.UUID] = stored
		ids = append(ids, b.UUID)
	}
	r.s.byElect[election.ID] = ids
	return nil
}

func (r electionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Election, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.elections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyElection(e), nil
}

func (r electionRepository) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Election, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Election{}
	for _, e := range r.s.elections {
		if e.OwnerID == ownerID {
			out = append(out, copyElection(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r electionRepository) Close(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.elections[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Closed {
		return domain.ErrElectionClosed
	}
	e.Closed = true
	r.s.elections[id] = e
	return nil
}

func (r electionRepository) CountBallots(_ context.Context, id uuid.UUID) (ports.BallotCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var counts ports.BallotCounts
	for _, bid := range r.s.byElect[id] {
		counts.Issued++
		if r.s.ballots[bid].Voted {
			counts.Voted++
		}
	}
	return counts, nil
}

type ballotRepository struct{ s *Store }

func (r ballotRepository) GetByUUID(_ context.Context, id uuid.UUID) (*domain.Ballot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.ballots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := domain.Ballot{
		UUID:       b.UUID,
		CreatedAt:  b.CreatedAt,
		Salt:       b.Salt,
		ElectionID: b.ElectionID,
		Voted:      b.Voted,
		Data:       append([]string(nil), b.Data...),
	}
	return &out, nil
}

func (r ballotRepository) CastVote(_ context.Context, id uuid.UUID, ranking []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.ballots[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Voted {
		return domain.ErrAlreadyVoted
	}
	if e, ok := r.s.elections[b.ElectionID]; !ok || e.Closed {
		return domain.ErrElectionClosed
	}
	b.Voted = true
	b.Data = append([]string(nil), ranking...)
	r.s.ballots[id] = b
	return nil
}

func (r ballotRepository) VotedRankings(_ context.Context, electionID uuid.UUID) ([][]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rankings := [][]string{}
	for _, bid := range r.s.byElect[electionID] {
		b := r.s.ballots[bid]
		if b.Voted {
			rankings = append(rankings, append([]string(nil), b.Data...))
		}
	}
	return rankings, nil
}
