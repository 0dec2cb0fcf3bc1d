package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	autherrors "github.com/vowquiz/go-quiz-auth/internal/errors"
	"github.com/vowquiz/go-quiz-auth/profile"
	fakeprofilerepo "github.com/vowquiz/go-quiz-auth/profile/repofake"
	"github.com/vowquiz/go-quiz-auth/session"
)

const (
	testUserID    = "user-1"
	testUserEmail = "john.doe@example.com"
	testUserName  = "John Doe"
)

func testSession() *session.Session {
	return &session.Session{
		UserID: testUserID,
		Email:  testUserEmail,
		Name:   testUserName,
	}
}

func newResolver(t *testing.T, repo profile.Repo) *profile.Resolver {
	t.Helper()
	resolver, err := profile.NewResolver(repo, profile.WithNowTime(func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	require.NoError(t, err)
	return resolver
}

func TestResolveExistingRow(t *testing.T) {
	repo := fakeprofilerepo.NewFakeProfileRepo()
	repo.Seed(&profile.Profile{ID: testUserID, Email: testUserEmail, Name: "Existing", Plan: profile.PlanPro})

	p := newResolver(t, repo).Resolve(context.Background(), testSession())

	require.Equal(t, "Existing", p.Name)
	require.Equal(t, profile.PlanPro, p.Plan)
	require.False(t, p.Transient)
	require.Zero(t, repo.InsertCalls, "existing row must not trigger a create")
}

func TestResolveCreatesMissingRow(t *testing.T) {
	repo := fakeprofilerepo.NewFakeProfileRepo()

	p := newResolver(t, repo).Resolve(context.Background(), testSession())

	require.Equal(t, testUserID, p.ID)
	require.Equal(t, testUserName, p.Name)
	require.Equal(t, profile.PlanFree, p.Plan)
	require.False(t, p.Transient)
	require.Equal(t, 1, repo.InsertCalls)

	// The row is persisted for the next resolution.
	stored, err := repo.GetByID(context.Background(), testUserID)
	require.NoError(t, err)
	require.Equal(t, testUserName, stored.Name)
}

func TestResolveNameDefaultsToEmailLocalPart(t *testing.T) {
	repo := fakeprofilerepo.NewFakeProfileRepo()
	sess := testSession()
	sess.Name = ""

	p := newResolver(t, repo).Resolve(context.Background(), sess)

	require.Equal(t, "john.doe", p.Name)
}

// scriptedRepo lets a test control each call individually, for sequences the
// shared fake cannot express (e.g. a create race).
type scriptedRepo struct {
	getFn    func(ctx context.Context, id string) (*profile.Profile, error)
	insertFn func(ctx context.Context, p *profile.Profile) (*profile.Profile, error)
}

func (r *scriptedRepo) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	return r.getFn(ctx, id)
}

func (r *scriptedRepo) Insert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	return r.insertFn(ctx, p)
}

func TestResolveDuplicateInsertRefetches(t *testing.T) {
	winner := &profile.Profile{ID: testUserID, Email: testUserEmail, Name: "Winner", Plan: profile.PlanFree}
	gets := 0
	repo := &scriptedRepo{
		getFn: func(ctx context.Context, id string) (*profile.Profile, error) {
			gets++
			if gets == 1 {
				return nil, autherrors.ErrNotFound
			}
			return winner, nil
		},
		insertFn: func(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
			return nil, autherrors.ErrDuplicate
		},
	}

	p := newResolver(t, repo).Resolve(context.Background(), testSession())

	require.Equal(t, "Winner", p.Name, "the racing resolution's row is authoritative")
	require.False(t, p.Transient)
	require.Equal(t, 2, gets)
}

func TestResolveTransportFailureFallsBackToClaims(t *testing.T) {
	repo := fakeprofilerepo.NewFakeProfileRepo()
	repo.GetErr = autherrors.ErrUnexpected
	repo.InsertErr = autherrors.ErrUnexpected

	p := newResolver(t, repo).Resolve(context.Background(), testSession())

	require.NotNil(t, p, "a valid session must always produce a user")
	require.True(t, p.Transient)
	require.Equal(t, testUserID, p.ID)
	require.Equal(t, testUserEmail, p.Email)
	require.Equal(t, profile.PlanFree, p.Plan)
}

func TestResolveInsertFailureFallsBackToClaims(t *testing.T) {
	repo := fakeprofilerepo.NewFakeProfileRepo()
	repo.InsertErr = autherrors.ErrUnexpected

	p := newResolver(t, repo).Resolve(context.Background(), testSession())

	require.True(t, p.Transient)
	require.Equal(t, testUserID, p.ID)
}
