package ports

import "time"

// Metrics receives counters from the services. Implementations must be safe
// for concurrent use.
type Metrics interface {
	ElectionCreated(ballots int)
	BallotDispatched(ok bool)
	VoteCast()
	VoteRejected(reason string)
	ElectionClosed()
	ResultsTallied(elapsed time.Duration)
}
