package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/endpoint"
)

// Ballot is one voter's capability to rank the candidates of an election.
// It carries no reference to the voter it was sent to.
type Ballot struct {
	UUID       uuid.UUID `json:"-"`
	CreatedAt  int64     `json:"-"`
	Salt       uuid.UUID `json:"-"`
	ElectionID uuid.UUID `json:"election_id"`
	Voted      bool      `json:"voted"`
	Data       []string  `json:"data,omitempty"`

	hashed bool
	hash   endpoint.Hash
}

// NewBallot creates an unvoted ballot with a random uuid and an independent
// random salt.
func NewBallot(electionID uuid.UUID, now time.Time) *Ballot {
	return &Ballot{
		UUID:       uuid.New(),
		CreatedAt:  now.Unix(),
		Salt:       uuid.New(),
		ElectionID: electionID,
	}
}

// Hash returns the ballot hash, computing it on first use.
func (b *Ballot) Hash() endpoint.Hash {
	if !b.hashed {
		b.hash = endpoint.Derive(b.UUID, b.Salt, b.CreatedAt)
		b.hashed = true
	}
	return b.hash
}

func (b *Ballot) Endpoint() string {
	return endpoint.Encode(b.UUID, b.Hash())
}

// Matches reports whether hash is the one derived from this ballot.
func (b *Ballot) Matches(hash endpoint.Hash) bool {
	return endpoint.Verify(hash, b.Hash())
}

// Vote records ranking on an unvoted ballot of an open election. The ballot
// is not changed when an error is returned.
func (b *Ballot) Vote(e *Election, ranking []string) error {
	if b.ElectionID != e.ID {
		return fmt.Errorf("%w: ballot does not belong to election %s", ErrNotFound, e.ID)
	}
	if b.Voted {
		return ErrAlreadyVoted
	}
	if e.Closed {
		return ErrElectionClosed
	}
	if err := e.ValidateRanking(ranking); err != nil {
		return err
	}

	b.Data = append([]string(nil), ranking...)
	b.Voted = true
	return nil
}
