package stv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(n int, ranking ...string) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = ranking
	}
	return out
}

func join(groups ...[][]string) [][]string {
	var out [][]string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func TestQuota(t *testing.T) {
	cases := []struct {
		ballots, seats, want int
	}{
		{3, 1, 2},
		{4, 1, 3},
		{6, 2, 3},
		{7, 2, 3},
		{100, 3, 26},
		{1, 1, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Quota(tc.ballots, tc.seats), "ballots=%d seats=%d", tc.ballots, tc.seats)
	}
}

func TestTabulate_NoBallots(t *testing.T) {
	result, err := Tabulate([]string{"A", "B", "C", "D", "E"}, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, result.Candidates)
	assert.Empty(t, result.Winners)
	assert.NotNil(t, result.Winners)
	assert.Nil(t, result.Quota)
	assert.Empty(t, result.Rounds)
}

func TestTabulate_OnlyUnknownPreferences(t *testing.T) {
	result, err := Tabulate([]string{"A", "B"}, 1, [][]string{{"Z"}, {}})
	require.NoError(t, err)

	assert.Nil(t, result.Quota)
	assert.Empty(t, result.Winners)
}

func TestTabulate_WinnerOnFirstRound(t *testing.T) {
	ballots := [][]string{{"A"}, {"A"}, {"B"}}

	result, err := Tabulate([]string{"A", "B", "C"}, 1, ballots)
	require.NoError(t, err)

	require.NotNil(t, result.Quota)
	assert.Equal(t, 2, *result.Quota)
	assert.Equal(t, []string{"A"}, result.Winners)

	require.Len(t, result.Rounds, 1)
	round := result.Rounds[0]
	assert.Equal(t, 1, round.Number)
	assert.Equal(t, ActionElected, round.Action)
	assert.Equal(t, []string{"A"}, round.Candidates)
	assert.Equal(t, map[string]float64{"A": 2, "B": 1, "C": 0}, round.Tallies)
	assert.Zero(t, round.Surplus)
	assert.Empty(t, round.Transfers)
}

func TestTabulate_SurplusTransfer(t *testing.T) {
	ballots := join(
		repeat(4, "A", "B"),
		repeat(1, "C"),
		repeat(1, "B"),
	)

	result, err := Tabulate([]string{"A", "B", "C"}, 2, ballots)
	require.NoError(t, err)

	require.NotNil(t, result.Quota)
	assert.Equal(t, 3, *result.Quota)
	assert.Equal(t, []string{"A", "B"}, result.Winners)
	require.Len(t, result.Rounds, 3)

	first := result.Rounds[0]
	assert.Equal(t, ActionElected, first.Action)
	assert.Equal(t, []string{"A"}, first.Candidates)
	assert.Equal(t, 1.0, first.Surplus)
	assert.Equal(t, map[string]float64{"B": 1}, first.Transfers)

	second := result.Rounds[1]
	assert.Equal(t, map[string]float64{"B": 2, "C": 1}, second.Tallies)
	assert.Equal(t, ActionEliminated, second.Action)
	assert.Equal(t, []string{"C"}, second.Candidates)
	assert.Empty(t, second.Transfers)
	assert.Equal(t, 1.0, second.Exhausted)

	third := result.Rounds[2]
	assert.Equal(t, ActionElectedRemaining, third.Action)
	assert.Equal(t, []string{"B"}, third.Candidates)
}

func TestTabulate_FractionalTransfer(t *testing.T) {
	// A holds 6 against a quota of 4, so a third of each A ballot moves on
	ballots := join(
		repeat(3, "A", "B"),
		repeat(3, "A", "C"),
		repeat(2, "B"),
		repeat(1, "C"),
	)

	result, err := Tabulate([]string{"A", "B", "C"}, 2, ballots)
	require.NoError(t, err)

	require.NotNil(t, result.Quota)
	assert.Equal(t, 4, *result.Quota)

	first := result.Rounds[0]
	assert.Equal(t, []string{"A"}, first.Candidates)
	assert.Equal(t, 2.0, first.Surplus)
	assert.InDelta(t, 1.0, first.Transfers["B"], 1e-9)
	assert.InDelta(t, 1.0, first.Transfers["C"], 1e-9)

	second := result.Rounds[1]
	assert.InDelta(t, 3.0, second.Tallies["B"], 1e-9)
	assert.InDelta(t, 2.0, second.Tallies["C"], 1e-9)
	assert.Equal(t, ActionEliminated, second.Action)
	assert.Equal(t, []string{"C"}, second.Candidates)

	assert.Equal(t, []string{"A", "B"}, result.Winners)
}

func TestTabulate_EliminationTieBreak(t *testing.T) {
	ballots := [][]string{
		{"A"},
		{"A"},
		{"B", "A"},
		{"C", "B"},
	}

	result, err := Tabulate([]string{"A", "B", "C"}, 1, ballots)
	require.NoError(t, err)

	require.NotNil(t, result.Quota)
	assert.Equal(t, 3, *result.Quota)
	require.Len(t, result.Rounds, 3)

	// B and C tie on 1, the name sorting last goes first
	assert.Equal(t, ActionEliminated, result.Rounds[0].Action)
	assert.Equal(t, []string{"C"}, result.Rounds[0].Candidates)
	assert.Equal(t, map[string]float64{"B": 1}, result.Rounds[0].Transfers)

	// A and B tie on 2
	assert.Equal(t, ActionEliminated, result.Rounds[1].Action)
	assert.Equal(t, []string{"B"}, result.Rounds[1].Candidates)
	assert.Equal(t, map[string]float64{"A": 1}, result.Rounds[1].Transfers)
	assert.Equal(t, 1.0, result.Rounds[1].Exhausted)

	assert.Equal(t, ActionElectedRemaining, result.Rounds[2].Action)
	assert.Equal(t, []string{"A"}, result.Winners)
}

func TestTabulate_ElectionTieBreak(t *testing.T) {
	ballots := join(
		repeat(3, "B"),
		repeat(3, "A"),
		repeat(1, "C"),
	)

	result, err := Tabulate([]string{"C", "B", "A"}, 2, ballots)
	require.NoError(t, err)

	require.Len(t, result.Rounds, 2)
	assert.Equal(t, []string{"A"}, result.Rounds[0].Candidates)
	assert.Equal(t, []string{"B"}, result.Rounds[1].Candidates)
	assert.Equal(t, ActionElected, result.Rounds[1].Action)

	// winners follow the order of the candidate list
	assert.Equal(t, []string{"B", "A"}, result.Winners)
}

func TestTabulate_AllSeatsFilledByDefault(t *testing.T) {
	result, err := Tabulate([]string{"A", "B"}, 2, [][]string{{"B"}})
	require.NoError(t, err)

	require.Len(t, result.Rounds, 1)
	assert.Equal(t, ActionElectedRemaining, result.Rounds[0].Action)
	assert.Equal(t, []string{"B", "A"}, result.Rounds[0].Candidates)
	assert.Equal(t, []string{"A", "B"}, result.Winners)
}

func TestTabulate_SkipsUnknownAndRepeatedPreferences(t *testing.T) {
	ballots := [][]string{
		{"X", "A", "A", "B"},
		{"B", "B"},
		{"B"},
	}

	result, err := Tabulate([]string{"A", "B"}, 1, ballots)
	require.NoError(t, err)

	require.NotNil(t, result.Quota)
	assert.Equal(t, 2, *result.Quota)
	assert.Equal(t, map[string]float64{"A": 1, "B": 2}, result.Rounds[0].Tallies)
	assert.Equal(t, []string{"B"}, result.Winners)
}

func TestTabulate_NoneElectedBelowQuota(t *testing.T) {
	candidates := []string{"Ada", "Brian", "Chloe", "Dmitri", "Eve"}
	ballots := join(
		repeat(7, "Ada", "Brian", "Chloe"),
		repeat(5, "Brian", "Ada"),
		repeat(4, "Chloe", "Eve", "Dmitri"),
		repeat(3, "Dmitri", "Chloe"),
		repeat(2, "Eve", "Dmitri"),
		repeat(1, "Eve"),
	)

	result, err := Tabulate(candidates, 3, ballots)
	require.NoError(t, err)
	require.NotNil(t, result.Quota)
	assert.Equal(t, 6, *result.Quota)
	assert.Len(t, result.Winners, 3)

	for _, round := range result.Rounds {
		if round.Action != ActionElected {
			continue
		}
		for _, name := range round.Candidates {
			assert.GreaterOrEqual(t, round.Tallies[name], float64(*result.Quota), "round %d", round.Number)
		}
	}
}

func TestTabulate_Deterministic(t *testing.T) {
	candidates := []string{"A", "B", "C", "D"}
	ballots := join(
		repeat(2, "A", "B"),
		repeat(2, "B", "A"),
		repeat(2, "C", "D"),
		repeat(2, "D", "C"),
	)

	first, err := Tabulate(candidates, 2, ballots)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Tabulate(candidates, 2, ballots)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTabulate_InvalidInput(t *testing.T) {
	_, err := Tabulate([]string{"A", "B"}, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidSeats)

	_, err = Tabulate([]string{"A", "B"}, 3, nil)
	assert.ErrorIs(t, err, ErrInvalidSeats)

	_, err = Tabulate([]string{"A", "A"}, 1, nil)
	assert.Error(t, err)
}
