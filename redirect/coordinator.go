// Package redirect turns auth snapshot transitions plus the current path into
// navigation commands for the UI layer.
package redirect

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vowquiz/go-quiz-auth/authstate"
	"github.com/vowquiz/go-quiz-auth/routeguard"
)

// Options qualifies a navigation command. Replace-style navigation does not
// leave the current page in history; From carries the path the user
// originally intended so it can be restored after login.
type Options struct {
	Replace bool
	From    string
}

// Navigator is the navigation capability produced to the UI layer.
type Navigator interface {
	Navigate(path string, opts Options)
}

// Coordinator observes machine transitions and the current path, and triggers
// navigation when a state change implies a redirect. Evaluation is idempotent:
// re-evaluating an unchanged (snapshot, path) pair never re-navigates.
type Coordinator struct {
	machine *authstate.Machine
	rules   *routeguard.Rules
	nav     Navigator
	log     zerolog.Logger

	mu      sync.Mutex
	path    string
	from    string
	lastKey string

	unsubscribe func()
}

// CoordinatorOption defines a function type to modify the Coordinator instance.
type CoordinatorOption func(*Coordinator)

// WithLogger attaches a component logger.
func WithLogger(log zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.log = log
	}
}

// NewCoordinator subscribes to the machine and evaluates the redirect rule on
// every transition. Call SetPath whenever the UI's location changes.
func NewCoordinator(machine *authstate.Machine, nav Navigator, options ...CoordinatorOption) (*Coordinator, error) {
	if machine == nil {
		return nil, errors.New("[NewCoordinator] machine is required")
	}
	if nav == nil {
		return nil, errors.New("[NewCoordinator] navigator is required")
	}

	c := &Coordinator{
		machine: machine,
		rules:   machine.Rules(),
		nav:     nav,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}

	c.unsubscribe = machine.Subscribe(func(snap authstate.Snapshot) {
		c.evaluate(snap)
	})
	return c, nil
}

// Close cancels the machine subscription.
func (c *Coordinator) Close() {
	c.unsubscribe()
}

// SetPath records the UI's current location and re-evaluates the redirect
// rule against the latest snapshot.
func (c *Coordinator) SetPath(path string) {
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
	c.evaluate(c.machine.GetSnapshot())
}

// RecordFrom stores an externally-carried "from" path, for navigations to the
// login page that the coordinator did not issue itself.
func (c *Coordinator) RecordFrom(path string) {
	c.mu.Lock()
	c.from = path
	c.mu.Unlock()
}

func (c *Coordinator) evaluate(snap authstate.Snapshot) {
	// Never redirect mid-resolution.
	if !snap.Initialized || snap.Loading {
		return
	}

	c.mu.Lock()
	path := c.path
	key := evalKey(snap, path)
	if path == "" || key == c.lastKey {
		c.mu.Unlock()
		return
	}
	c.lastKey = key

	// Freshly authenticated user sitting on an auth page: restore the path
	// that originally sent them to login, or fall back to the dashboard.
	if snap.User != nil && c.rules.IsAuthPage(path) {
		target := c.from
		if target == "" {
			target = routeguard.DashboardPath
		}
		c.from = ""
		c.mu.Unlock()

		c.log.Debug().Str("from", path).Str("to", target).Msg("redirecting authenticated user off auth page")
		c.nav.Navigate(target, Options{Replace: true})
		return
	}

	// Signed-out user on a protected path (guest play stays open).
	if snap.User == nil && c.rules.IsProtected(path) && !c.rules.IsGuestPlay(path) {
		c.from = path
		c.mu.Unlock()

		c.log.Debug().Str("from", path).Msg("redirecting unauthenticated user to login")
		c.nav.Navigate(routeguard.LoginPath, Options{Replace: true, From: path})
		return
	}

	c.mu.Unlock()
}

func evalKey(snap authstate.Snapshot, path string) string {
	userID := ""
	if snap.User != nil {
		userID = snap.User.ID
	}
	return fmt.Sprintf("%s|%s", path, userID)
}
