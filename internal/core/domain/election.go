package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ElectionType string

// STV is the only counting method supported.
const ElectionTypeSTV ElectionType = "stv"

const MaxElectionNameLength = 120

type Election struct {
	ID             uuid.UUID    `json:"id"`
	OwnerID        uuid.UUID    `json:"owner_id"`
	Name           string       `json:"name"`
	Type           ElectionType `json:"type"`
	Candidates     []string     `json:"candidates"`
	AvailableSeats int          `json:"available_seats"`
	Closed         bool         `json:"closed"`
	CreatedAt      time.Time    `json:"created_at"`
}

// NewElection builds a validated, open election owned by ownerID.
func NewElection(ownerID uuid.UUID, name string, typ ElectionType, candidates []string, seats int) (*Election, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidElection)
	}
	if len(name) > MaxElectionNameLength {
		return nil, fmt.Errorf("%w: name longer than %d characters", ErrInvalidElection, MaxElectionNameLength)
	}
	if typ == "" {
		typ = ElectionTypeSTV
	}
	if typ != ElectionTypeSTV {
		return nil, fmt.Errorf("%w: unsupported election type %q", ErrInvalidElection, typ)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: at least one candidate is required", ErrInvalidElection)
	}

	seen := make(map[string]struct{}, len(candidates))
	cleaned := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fmt.Errorf("%w: candidate names must not be empty", ErrInvalidElection)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: duplicate candidate %q", ErrInvalidElection, c)
		}
		seen[c] = struct{}{}
		cleaned = append(cleaned, c)
	}

	if seats < 1 || seats > len(cleaned) {
		return nil, fmt.Errorf("%w: available seats must be between 1 and %d", ErrInvalidElection, len(cleaned))
	}

	return &Election{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Name:           name,
		Type:           typ,
		Candidates:     cleaned,
		AvailableSeats: seats,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (e *Election) IsOwnedBy(accountID uuid.UUID) bool {
	return e.OwnerID == accountID
}

func (e *Election) HasCandidate(name string) bool {
	for _, c := range e.Candidates {
		if c == name {
			return true
		}
	}
	return false
}

// Close marks the election as closed. Closing twice is an error; an election
// never reopens.
func (e *Election) Close() error {
	if e.Closed {
		return ErrElectionClosed
	}
	e.Closed = true
	return nil
}

// ValidateRanking checks that ranking is a non-empty, duplicate-free ordered
// subset of the candidates. Partial rankings are allowed.
func (e *Election) ValidateRanking(ranking []string) error {
	if len(ranking) == 0 {
		return fmt.Errorf("%w: at least one preference is required", ErrInvalidRanking)
	}
	seen := make(map[string]struct{}, len(ranking))
	for _, name := range ranking {
		if !e.HasCandidate(name) {
			return fmt.Errorf("%w: unknown candidate %q", ErrInvalidRanking, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: candidate %q ranked twice", ErrInvalidRanking, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
