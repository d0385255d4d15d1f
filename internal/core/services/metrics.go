package services

import "time"

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ElectionCreated(int) {}
func (NopMetrics) BallotDispatched(bool) {}
func (NopMetrics) VoteCast() {}
func (NopMetrics) VoteRejected(string) {}
func (NopMetrics) ElectionClosed() {}
func (NopMetrics) ResultsTallied(time.Duration) {}
