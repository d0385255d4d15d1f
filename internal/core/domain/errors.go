package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyVoted    = errors.New("ballot has already been cast")
	ErrUnauthorised    = errors.New("unauthorised")
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidRanking  = errors.New("invalid ranking")
	ErrInvalidElection = errors.New("invalid election")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrElectionClosed  = errors.New("election is closed")
	ErrElectionOpen    = errors.New("election is still open")
	ErrInternal        = errors.New("internal server error")
)
