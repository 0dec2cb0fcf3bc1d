package redirect_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vowquiz/go-quiz-auth/authstate"
	"github.com/vowquiz/go-quiz-auth/profile"
	fakeprofilerepo "github.com/vowquiz/go-quiz-auth/profile/repofake"
	"github.com/vowquiz/go-quiz-auth/redirect"
	"github.com/vowquiz/go-quiz-auth/session"
	"github.com/vowquiz/go-quiz-auth/session/storefakes"
)

const (
	testUserID    = "user-1"
	testUserEmail = "john.doe@example.com"
)

type navCall struct {
	path string
	opts redirect.Options
}

// fakeNavigator records navigation commands.
type fakeNavigator struct {
	mu    sync.Mutex
	calls []navCall
}

func (n *fakeNavigator) Navigate(path string, opts redirect.Options) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, navCall{path: path, opts: opts})
}

func (n *fakeNavigator) all() []navCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]navCall, len(n.calls))
	copy(out, n.calls)
	return out
}

type testFixture struct {
	store       *storefakes.FakeStore
	machine     *authstate.Machine
	nav         *fakeNavigator
	coordinator *redirect.Coordinator
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	store := storefakes.NewFakeStore()
	resolver, err := profile.NewResolver(fakeprofilerepo.NewFakeProfileRepo())
	require.NoError(t, err)
	machine, err := authstate.NewMachine(store, resolver, authstate.WithInitTimeout(500*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(machine.Close)

	waitForSnapshot(t, machine, func(s authstate.Snapshot) bool { return s.Initialized && !s.Loading })

	nav := &fakeNavigator{}
	coordinator, err := redirect.NewCoordinator(machine, nav)
	require.NoError(t, err)
	t.Cleanup(coordinator.Close)

	return &testFixture{store: store, machine: machine, nav: nav, coordinator: coordinator}
}

func waitForSnapshot(t *testing.T, m *authstate.Machine, cond func(authstate.Snapshot) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond(m.GetSnapshot()) {
		select {
		case <-deadline:
			t.Fatalf("snapshot condition not met, last snapshot: %+v", m.GetSnapshot())
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func waitForNavCount(t *testing.T, nav *fakeNavigator, want int) []navCall {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for len(nav.all()) < want {
		select {
		case <-deadline:
			t.Fatalf("expected %d navigations, got %v", want, nav.all())
		case <-time.After(2 * time.Millisecond):
		}
	}
	return nav.all()
}

func TestUnauthenticatedOnProtectedPathRedirectsToLogin(t *testing.T) {
	f := setupTestFixture(t)

	f.coordinator.SetPath("/dashboard")

	calls := waitForNavCount(t, f.nav, 1)
	require.Equal(t, "/login", calls[0].path)
	require.True(t, calls[0].opts.Replace)
	require.Equal(t, "/dashboard", calls[0].opts.From, "the intended path is carried for restoration")
}

func TestAuthenticatedOnAuthPageRedirectsToDashboard(t *testing.T) {
	f := setupTestFixture(t)

	f.coordinator.SetPath("/login")
	f.store.Emit(&session.Session{UserID: testUserID, Email: testUserEmail})
	waitForSnapshot(t, f.machine, func(s authstate.Snapshot) bool { return s.User != nil && !s.Loading })

	calls := waitForNavCount(t, f.nav, 1)
	require.Equal(t, "/dashboard", calls[0].path)
	require.True(t, calls[0].opts.Replace)
}

// The full round trip: a signed-out visit to a protected page goes to login,
// and signing in restores the originally intended path.
func TestFromPathIsRestoredAfterLogin(t *testing.T) {
	f := setupTestFixture(t)

	f.coordinator.SetPath("/quiz/42/edit")
	waitForNavCount(t, f.nav, 1)

	// UI followed the redirect.
	f.coordinator.SetPath("/login")

	f.store.Emit(&session.Session{UserID: testUserID, Email: testUserEmail})
	waitForSnapshot(t, f.machine, func(s authstate.Snapshot) bool { return s.User != nil && !s.Loading })

	calls := waitForNavCount(t, f.nav, 2)
	require.Equal(t, "/quiz/42/edit", calls[1].path)
	require.True(t, calls[1].opts.Replace)
}

func TestRecordFromOverridesDefaultTarget(t *testing.T) {
	f := setupTestFixture(t)

	f.coordinator.SetPath("/login")
	f.coordinator.RecordFrom("/settings")

	f.store.Emit(&session.Session{UserID: testUserID, Email: testUserEmail})
	waitForSnapshot(t, f.machine, func(s authstate.Snapshot) bool { return s.User != nil && !s.Loading })

	calls := waitForNavCount(t, f.nav, 1)
	require.Equal(t, "/settings", calls[0].path)
}

func TestNoRedirectOnGuestPlay(t *testing.T) {
	f := setupTestFixture(t)

	f.coordinator.SetPath("/play/abc123")
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, f.nav.all())
}

func TestNoRedirectOnPublicPages(t *testing.T) {
	f := setupTestFixture(t)

	f.coordinator.SetPath("/pricing")
	f.coordinator.SetPath("/")
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, f.nav.all())

	// Signed-in users stay on public pages too.
	f.store.Emit(&session.Session{UserID: testUserID, Email: testUserEmail})
	waitForSnapshot(t, f.machine, func(s authstate.Snapshot) bool { return s.User != nil && !s.Loading })
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, f.nav.all())
}

func TestEvaluationIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)

	f.coordinator.SetPath("/dashboard")
	waitForNavCount(t, f.nav, 1)

	// Same (snapshot, path) pair again: no second navigation.
	f.coordinator.SetPath("/dashboard")
	time.Sleep(50 * time.Millisecond)
	require.Len(t, f.nav.all(), 1)
}

func TestNoRedirectBeforeInitialization(t *testing.T) {
	store := storefakes.NewFakeStore()
	hang := make(chan struct{})
	t.Cleanup(func() { close(hang) })
	store.GetCurrentSessionFn = func(ctx context.Context) (*session.Session, error) {
		<-hang
		return nil, nil
	}

	resolver, err := profile.NewResolver(fakeprofilerepo.NewFakeProfileRepo())
	require.NoError(t, err)
	machine, err := authstate.NewMachine(store, resolver, authstate.WithInitTimeout(time.Second))
	require.NoError(t, err)
	t.Cleanup(machine.Close)

	nav := &fakeNavigator{}
	coordinator, err := redirect.NewCoordinator(machine, nav)
	require.NoError(t, err)
	t.Cleanup(coordinator.Close)

	// Machine is still resolving: no redirect may fire yet.
	coordinator.SetPath("/dashboard")
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, nav.all())

	// Once the safety valve resolves to signed-out, the redirect applies.
	waitForSnapshot(t, machine, func(s authstate.Snapshot) bool { return s.Initialized })
	coordinator.SetPath("/dashboard")
	waitForNavCount(t, nav, 1)
}
