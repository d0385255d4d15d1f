package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/stv/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/stv/internal/core/credentials"
	"golang.org/x/crypto/bcrypt"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockMailer records every message and fails for addresses in fail.
type MockMailer struct {
	mu   sync.Mutex
	sent map[string]string
	fail map[string]bool
}

func NewMockMailer(fail ...string) *MockMailer {
	m := &MockMailer{sent: make(map[string]string), fail: make(map[string]bool)}
	for _, f := range fail {
		m.fail[f] = true
	}
	return m
}

func (m *MockMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[to] {
		return errors.New("mailbox unavailable")
	}
	m.sent[to] = subject + "\n" + body
	return nil
}

// endpoint extracts the ballot endpoint from the message sent to to.
func (m *MockMailer) endpoint(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.sent[to]
	require.True(t, ok, "no message for %s", to)
	_, rest, ok := strings.Cut(msg, "/ballots/")
	require.True(t, ok)
	ep, _, ok := strings.Cut(rest, " ")
	require.True(t, ok)
	return ep
}

type MockMetrics struct {
	mu       sync.Mutex
	created  int
	sent     int
	failed   int
	cast     int
	rejected map[string]int
	closed   int
	tallied  int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{rejected: make(map[string]int)}
}

func (m *MockMetrics) ElectionCreated(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *MockMetrics) BallotDispatched(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.sent++
	} else {
		m.failed++
	}
}

func (m *MockMetrics) VoteCast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cast++
}

func (m *MockMetrics) VoteRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *MockMetrics) ElectionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

func (m *MockMetrics) ResultsTallied(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tallied++
}

// clock is a settable time source shared by the services under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type TestApp struct {
	Store     *memory.Store
	Auth      *AuthService
	Elections *electionService
	Ballots   *ballotService
	Mailer    *MockMailer
	Metrics   *MockMetrics
	Clock     *clock
}

func setupTestApp(t *testing.T, failing ...string) *TestApp {
	t.Helper()

	privPEM, pubPEM, err := credentials.GenerateKeyPair(2048)
	require.NoError(t, err)
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	require.NoError(t, err)
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	require.NoError(t, err)

	store := memory.NewStore()
	mailer := NewMockMailer(failing...)
	metrics := NewMockMetrics()
	clk := &clock{t: time.Now().UTC()}

	auth := NewAuthService(store.Accounts(), credentials.NewPasswordHasher(bcrypt.MinCost),
		credentials.NewSigner(priv), credentials.NewVerifier(pub), time.Hour, discard)
	auth.now = clk.Now

	tally := NewTallyService(store.Elections(), store.Ballots(), metrics, discard)
	elections := NewElectionService(store.Elections(), tally, mailer, metrics,
		ElectionConfig{PublicURL: "https://vote.example.org/", MailConcurrency: 2}, discard).(*electionService)
	elections.now = clk.Now

	ballots := NewBallotService(store.Ballots(), store.Elections(), metrics, discard).(*ballotService)

	return &TestApp{
		Store:     store,
		Auth:      auth,
		Elections: elections,
		Ballots:   ballots,
		Mailer:    mailer,
		Metrics:   metrics,
		Clock:     clk,
	}
}

func voters(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("voter%d@example.org", i)
	}
	return out
}
