// Package routeguard decides path-level access from the current user and the
// requested path. Decisions are pure and derived, never persisted.
package routeguard

import (
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vowquiz/go-quiz-auth/profile"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Decision is the result of a guard check.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// Rules is the static classification of paths. Patterns may contain
// parameterized segments (":id", ":slug") which match any single segment;
// plain entries match exactly or as a path prefix.
type Rules struct {
	Protected []string `yaml:"protected"`
	AuthPages []string `yaml:"auth_pages"`
	GuestPlay []string `yaml:"guest_play"`
	Public    []string `yaml:"public"`

	protected []matcher
	authPages []matcher
	guestPlay []matcher
	public    []matcher
}

// DefaultRules returns the application's route table.
func DefaultRules() *Rules {
	r := &Rules{
		Protected: []string{
			"/dashboard",
			"/quiz/new",
			"/quiz/:id/edit",
			"/quiz/:id/results",
			"/quiz/:id/customize",
			"/quiz/:id/preview",
			"/settings",
		},
		AuthPages: []string{"/login", "/signup"},
		GuestPlay: []string{"/play/:slug"},
		Public:    []string{"/", "/pricing", "/terms", "/privacy"},
	}
	if err := r.compile(); err != nil {
		// The built-in table is static; a compile failure is a programming error.
		panic(err)
	}
	return r
}

// LoadRules reads a YAML route table from disk. Sections left empty fall back
// to the defaults.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadRules] read rules file")
	}
	return ParseRules(data)
}

// ParseRules parses a YAML route table. Sections left empty fall back to the
// defaults.
func ParseRules(data []byte) (*Rules, error) {
	r := &Rules{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, errors.Wrap(err, "[ParseRules] unmarshal rules")
	}

	defaults := DefaultRules()
	if len(r.Protected) == 0 {
		r.Protected = defaults.Protected
	}
	if len(r.AuthPages) == 0 {
		r.AuthPages = defaults.AuthPages
	}
	if len(r.GuestPlay) == 0 {
		r.GuestPlay = defaults.GuestPlay
	}
	if len(r.Public) == 0 {
		r.Public = defaults.Public
	}

	if err := r.compile(); err != nil {
		return nil, errors.Wrap(err, "[ParseRules] compile rules")
	}
	return r, nil
}

// Decide maps (user, path) to an access decision:
//   - a protected path with no user redirects to the login page,
//   - an auth-only page with a signed-in user redirects to the dashboard,
//   - everything else is allowed.
func (r *Rules) Decide(user *profile.Profile, path string) Decision {
	if r.IsProtected(path) && user == nil {
		return Decision{Allowed: false, RedirectTo: LoginPath}
	}
	if r.IsAuthPage(path) && user != nil {
		return Decision{Allowed: false, RedirectTo: DashboardPath}
	}
	return Decision{Allowed: true}
}

// DecideOwner is the resource-scoped check layered on top of Decide: only the
// resource owner may proceed. It is composed by the caller, not merged into
// the path decision.
func DecideOwner(user *profile.Profile, resourceOwnerID string) Decision {
	if user == nil {
		return Decision{Allowed: false, RedirectTo: LoginPath}
	}
	if user.ID != resourceOwnerID {
		return Decision{Allowed: false, RedirectTo: DashboardPath}
	}
	return Decision{Allowed: true}
}

// Compose combines a path-level and an ownership decision. An ownership deny
// wins over a path allow: a protected-but-not-owned resource is never shown.
func Compose(path, owner Decision) Decision {
	if !owner.Allowed {
		return owner
	}
	return path
}

func (r *Rules) IsProtected(path string) bool { return anyMatch(r.protected, path) }
func (r *Rules) IsAuthPage(path string) bool  { return anyMatch(r.authPages, path) }
func (r *Rules) IsGuestPlay(path string) bool { return anyMatch(r.guestPlay, path) }

// IsPublic reports whether the path is in the public list. The root path only
// matches exactly so it does not swallow every route.
func (r *Rules) IsPublic(path string) bool { return anyMatch(r.public, path) }

type matcher func(path string) bool

var paramSegment = regexp.MustCompile(`:[^/]+`)

func (r *Rules) compile() error {
	var err error
	if r.protected, err = compilePatterns(r.Protected); err != nil {
		return err
	}
	if r.authPages, err = compilePatterns(r.AuthPages); err != nil {
		return err
	}
	if r.guestPlay, err = compilePatterns(r.GuestPlay); err != nil {
		return err
	}
	if r.public, err = compilePatterns(r.Public); err != nil {
		return err
	}
	return nil
}

func compilePatterns(patterns []string) ([]matcher, error) {
	out := make([]matcher, 0, len(patterns))
	for _, pattern := range patterns {
		m, err := compilePattern(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func compilePattern(pattern string) (matcher, error) {
	if strings.Contains(pattern, ":") {
		expr := "^" + paramSegment.ReplaceAllString(regexp.QuoteMeta(pattern), `[^/]+`) + "$"
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.Wrapf(err, "[compilePattern] %q", pattern)
		}
		return re.MatchString, nil
	}
	if pattern == "/" {
		return func(path string) bool { return path == "/" }, nil
	}
	return func(path string) bool {
		return path == pattern || strings.HasPrefix(path, pattern+"/")
	}, nil
}

func anyMatch(matchers []matcher, path string) bool {
	for _, m := range matchers {
		if m(path) {
			return true
		}
	}
	return false
}
