package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg)

	m.ElectionCreated(3)
	m.BallotDispatched(true)
	m.BallotDispatched(true)
	m.BallotDispatched(false)
	m.VoteCast()
	m.VoteRejected("already_voted")
	m.VoteRejected("already_voted")
	m.ElectionClosed()
	m.ResultsTallied(2 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.electionsCreated))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ballotsIssued))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ballotsDispatched.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ballotsDispatched.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.votesCast))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.votesRejected.WithLabelValues("already_voted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.electionsClosed))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tallyDuration))
}

func TestPrometheusRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg)

	assert.Panics(t, func() { NewPrometheus(reg) })
}
