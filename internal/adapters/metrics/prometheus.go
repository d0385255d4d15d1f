// Package metrics exports election counters to prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

const namespace = "stv"

type Prometheus struct {
	electionsCreated  prometheus.Counter
	ballotsIssued     prometheus.Counter
	ballotsDispatched *prometheus.CounterVec
	votesCast         prometheus.Counter
	votesRejected     *prometheus.CounterVec
	electionsClosed   prometheus.Counter
	tallyDuration     prometheus.Histogram
}

// NewPrometheus registers the collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		electionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elections_created_total",
			Help:      "Elections created.",
		}),
		ballotsIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballots_issued_total",
			Help:      "Ballots issued across all elections.",
		}),
		ballotsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballots_dispatched_total",
			Help:      "Ballot link deliveries by outcome.",
		}, []string{"result"}),
		votesCast: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Votes accepted.",
		}),
		votesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_rejected_total",
			Help:      "Votes rejected by reason.",
		}, []string{"reason"}),
		electionsClosed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elections_closed_total",
			Help:      "Elections closed.",
		}),
		tallyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tally_duration_seconds",
			Help:      "Time spent tabulating results.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
}

var _ ports.Metrics = (*Prometheus)(nil)

func (p *Prometheus) ElectionCreated(ballots int) {
	p.electionsCreated.Inc()
	p.ballotsIssued.Add(float64(ballots))
}

func (p *Prometheus) BallotDispatched(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	p.ballotsDispatched.WithLabelValues(result).Inc()
}

func (p *Prometheus) VoteCast() { p.votesCast.Inc() }

func (p *Prometheus) VoteRejected(reason string) {
	p.votesRejected.WithLabelValues(reason).Inc()
}

func (p *Prometheus) ElectionClosed() { p.electionsClosed.Inc() }

func (p *Prometheus) ResultsTallied(elapsed time.Duration) {
	p.tallyDuration.Observe(elapsed.Seconds())
}
