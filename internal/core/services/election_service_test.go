package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/endpoint"
	"github.com/vncsmyrnk/stv/internal/core/ports"
	"github.com/vncsmyrnk/stv/internal/core/stv"
)

func createElection(t *testing.T, app *TestApp, owner uuid.UUID, recipients []string) *domain.Election {
	t.Helper()

	e, report, err := app.Elections.Create(context.Background(), ports.CreateElectionInput{
		OwnerID:    owner,
		Name:       "Board",
		Candidates: []string{"A", "B", "C"},
		Seats:      1,
		Voters:     recipients,
	})
	require.NoError(t, err)
	require.Empty(t, report.Failed)
	return e
}

func TestCreateElectionSendsOneBallotPerVoter(t *testing.T) {
	ctx := context.Background()
	app := setupTestApp(t)
	owner := uuid.New()

	recipients := append(voters(3), "VOTER0@example.org")
	e := createElection(t, app, owner, recipients)

	counts, err := app.Store.Elections().CountBallots(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Issued)
	assert.Equal(t, 0, counts.Voted)

	seen := map[string]bool{}
	for _, to := range voters(3) {
		msg := app.Mailer.sent[to]
		assert.True(t, strings.HasPrefix(msg, "Your ballot for Board!\nGo to https://vote.example.org/ballots/"), msg)
		assert.True(t, strings.HasSuffix(msg, " to vote in Board."), msg)

		ep := app.Mailer.endpoint(t, to)
		assert.Len(t, ep, endpoint.Length)
		assert.False(t, seen[ep], "endpoint reused")
		seen[ep] = true

		b, err := app.Ballots.FromEndpoint(ctx, ep)
		require.NoError(t, err)
		assert.Equal(t, e.ID, b.ElectionID)
	}
	assert.Equal(t, 1, app.Metrics.created)
	assert.Equal(t, 3, app.Metrics.sent)
}

func TestCreateElectionReportsMailFailures(t *testing.T) {
	ctx := context.Background()
	app := setupTestApp(t, "voter1@example.org")

	e, report, err := app.Elections.Create(ctx, ports.CreateElectionInput{
		OwnerID:    uuid.New(),
		Name:       "Board",
		Candidates: []string{"A", "B"},
		Seats:      1,
		Voters:     voters(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "voter1@example.org", report.Failed[0].Recipient)

	// the election and every ballot survive a failed delivery
	counts, err := app.Store.Elections().CountBallots(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Issued)
	assert.Equal(t, 1, app.Metrics.failed)
}

func TestCreateElectionValidation(t *testing.T) {
	app := setupTestApp(t)
	base := ports.CreateElectionInput{
		OwnerID:    uuid.New(),
		Name:       "Board",
		Candidates: []string{"A", "B"},
		Seats:      1,
		Voters:     voters(1),
	}

	tests := []struct {
		name   string
		modify func(*ports.CreateElectionInput)
	}{
		{"no voters", func(in *ports.CreateElectionInput) { in.Voters = nil }},
		{"bad address", func(in *ports.CreateElectionInput) { in.Voters = []string{"not an address"} }},
		{"too many seats", func(in *ports.CreateElectionInput) { in.Seats = 3 }},
		{"unknown type", func(in *ports.CreateElectionInput) { in.Type = "irv" }},
		{"duplicate candidate", func(in *ports.CreateElectionInput) { in.Candidates = []string{"A", "A"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.modify(&in)
			_, _, err := app.Elections.Create(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrInvalidElection)
		})
	}
	assert.Empty(t, app.Mailer.sent)
}

func TestOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	app := setupTestApp(t)
	owner, stranger := uuid.New(), uuid.New()
	e := createElection(t, app, owner, voters(1))

	_, err := app.Elections.Get(ctx, stranger, e.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorised)
	_, err = app.Elections.Close(ctx, stranger, e.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorised)
	_, err = app.Elections.Results(ctx, stranger, e.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorised)

	_, err = app.Elections.Get(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := app.Elections.ListForOwner(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = app.Elections.ListForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestElectionLifecycle(t *testing.T) {
	ctx := context.Background()
	app := setupTestApp(t)
	owner := uuid.New()
	e := createElection(t, app, owner, voters(3))

	_, err := app.Elections.Results(ctx, owner, e.ID)
	assert.ErrorIs(t, err, domain.ErrElectionOpen)

	rankings := [][]string{{"A"}, {"A"}, {"B"}}
	for i, to := range voters(3) {
		require.NoError(t, app.Ballots.Vote(ctx, app.Mailer.endpoint(t, to), rankings[i]))
	}

	details, err := app.Elections.Get(ctx, owner, e.ID)
	require.NoError(t, err)
	assert.Equal(t, ports.BallotCounts{Issued: 3, Voted: 3}, details.Ballots)

	closed, err := app.Elections.Close(ctx, owner, e.ID)
	require.NoError(t, err)
	assert.True(t, closed.Closed)

	_, err = app.Elections.Close(ctx, owner, e.ID)
	assert.ErrorIs(t, err, domain.ErrElectionClosed)

	result, err := app.Elections.Results(ctx, owner, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, result.Winners)
	require.NotNil(t, result.Quota)
	assert.Equal(t, 2, *result.Quota)
	require.NotEmpty(t, result.Rounds)
	assert.Equal(t, stv.ActionElected, result.Rounds[0].Action)

	assert.Equal(t, 3, app.Metrics.cast)
	assert.Equal(t, 1, app.Metrics.closed)
	assert.Equal(t, 1, app.Metrics.tallied)
}

func TestResultsWithoutVotes(t *testing.T) {
	ctx := context.Background()
	app := setupTestApp(t)
	owner := uuid.New()
	e := createElection(t, app, owner, voters(2))

	_, err := app.Elections.Close(ctx, owner, e.ID)
	require.NoError(t, err)

	result, err := app.Elections.Results(ctx, owner, e.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Winners)
	assert.Nil(t, result.Quota)
}

func TestCloseRacesWithVotes(t *testing.T) {
	ctx := context.Background()
	app := setupTestApp(t)
	owner := uuid.New()
	e := createElection(t, app, owner, voters(10))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, to := range voters(10) {
		ep := app.Mailer.endpoint(t, to)
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := app.Ballots.Vote(ctx, ep, []string{"B", "A"})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrElectionClosed)
		}()
	}
	_, err := app.Elections.Close(ctx, owner, e.ID)
	require.NoError(t, err)
	wg.Wait()

	// every accepted vote is counted, nothing after the close is
	details, err := app.Elections.Get(ctx, owner, e.ID)
	require.NoError(t, err)
	assert.Equal(t, accepted, details.Ballots.Voted)

	result, err := app.Elections.Results(ctx, owner, e.ID)
	require.NoError(t, err)
	if accepted > 0 {
		assert.Equal(t, []string{"B"}, result.Winners)
	}
}
