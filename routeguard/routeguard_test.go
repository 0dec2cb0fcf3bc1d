package routeguard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vowquiz/go-quiz-auth/profile"
	"github.com/vowquiz/go-quiz-auth/routeguard"
)

func testUser(id string) *profile.Profile {
	return &profile.Profile{
		ID:    id,
		Email: "john.doe@example.com",
		Name:  "John",
		Plan:  profile.PlanFree,
	}
}

func TestDecide(t *testing.T) {
	rules := routeguard.DefaultRules()
	user := testUser("user-id-1")

	tests := []struct {
		name string
		user *profile.Profile
		path string
		want routeguard.Decision
	}{
		{"protected path without user", nil, "/dashboard", routeguard.Decision{Allowed: false, RedirectTo: "/login"}},
		{"auth page with user", user, "/login", routeguard.Decision{Allowed: false, RedirectTo: "/dashboard"}},
		{"signup page with user", user, "/signup", routeguard.Decision{Allowed: false, RedirectTo: "/dashboard"}},
		{"guest play without user", nil, "/play/abc123", routeguard.Decision{Allowed: true}},
		{"protected path with user", user, "/dashboard", routeguard.Decision{Allowed: true}},
		{"public page without user", nil, "/pricing", routeguard.Decision{Allowed: true}},
		{"landing page without user", nil, "/", routeguard.Decision{Allowed: true}},
		{"auth page without user", nil, "/login", routeguard.Decision{Allowed: true}},
		{"parameterized edit without user", nil, "/quiz/42/edit", routeguard.Decision{Allowed: false, RedirectTo: "/login"}},
		{"parameterized results with user", user, "/quiz/42/results", routeguard.Decision{Allowed: true}},
		{"settings subpath without user", nil, "/settings/billing", routeguard.Decision{Allowed: false, RedirectTo: "/login"}},
		{"unknown path without user", nil, "/some/random/page", routeguard.Decision{Allowed: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, rules.Decide(tc.user, tc.path))
		})
	}
}

func TestDecideOwner(t *testing.T) {
	user := testUser("user-id-1")

	require.Equal(t,
		routeguard.Decision{Allowed: false, RedirectTo: "/login"},
		routeguard.DecideOwner(nil, "owner-id-99"))

	require.Equal(t,
		routeguard.Decision{Allowed: false, RedirectTo: "/dashboard"},
		routeguard.DecideOwner(user, "owner-id-99"))

	require.Equal(t,
		routeguard.Decision{Allowed: true},
		routeguard.DecideOwner(user, "user-id-1"))
}

// An ownership deny wins even when the path itself is allowed for any
// authenticated user.
func TestOwnershipPrecedence(t *testing.T) {
	rules := routeguard.DefaultRules()
	user := testUser("user-id-1")

	pathDecision := rules.Decide(user, "/quiz/42/edit")
	require.True(t, pathDecision.Allowed)

	ownerDecision := routeguard.DecideOwner(user, "owner-id-99")
	require.False(t, ownerDecision.Allowed)

	composed := routeguard.Compose(pathDecision, ownerDecision)
	require.Equal(t, routeguard.Decision{Allowed: false, RedirectTo: "/dashboard"}, composed)

	// Owner allow defers to the path decision.
	composed = routeguard.Compose(pathDecision, routeguard.DecideOwner(user, "user-id-1"))
	require.True(t, composed.Allowed)
}

func TestClassification(t *testing.T) {
	rules := routeguard.DefaultRules()

	require.True(t, rules.IsProtected("/quiz/42/customize"))
	require.False(t, rules.IsProtected("/quiz/42/unknown"))
	require.False(t, rules.IsProtected("/play/abc"))

	require.True(t, rules.IsAuthPage("/login"))
	require.False(t, rules.IsAuthPage("/loginish"))

	require.True(t, rules.IsGuestPlay("/play/abc123"))
	require.False(t, rules.IsGuestPlay("/play/abc/extra"))

	require.True(t, rules.IsPublic("/"))
	require.False(t, rules.IsPublic("/dashboard"))
	require.True(t, rules.IsPublic("/pricing"))
}

func TestParseRules(t *testing.T) {
	data := []byte(`
protected:
  - /admin
  - /reports/:id
auth_pages:
  - /signin
`)
	rules, err := routeguard.ParseRules(data)
	require.NoError(t, err)

	require.True(t, rules.IsProtected("/admin"))
	require.True(t, rules.IsProtected("/reports/7"))
	require.False(t, rules.IsProtected("/dashboard"))
	require.True(t, rules.IsAuthPage("/signin"))

	// Unlisted sections keep the defaults.
	require.True(t, rules.IsGuestPlay("/play/abc"))
	require.True(t, rules.IsPublic("/pricing"))
}

func TestParseRulesInvalidYAML(t *testing.T) {
	_, err := routeguard.ParseRules([]byte("protected: {not a list"))
	require.Error(t, err)
}
