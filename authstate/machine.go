// Package authstate owns the authentication snapshot and drives it from
// session-change events. Exactly one goroutine (the event consumer) ever sets
// the snapshot's user, so sign-in call paths and event paths cannot race.
package authstate

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	autherrors "github.com/vowquiz/go-quiz-auth/internal/errors"
	"github.com/vowquiz/go-quiz-auth/profile"
	"github.com/vowquiz/go-quiz-auth/routeguard"
	"github.com/vowquiz/go-quiz-auth/session"
)

// DefaultInitTimeout bounds the startup resolution: if neither the proactive
// session query nor a change event produces a result within this window, the
// machine reports "signed out" instead of blocking the UI forever.
const DefaultInitTimeout = 5 * time.Second

const eventQueueSize = 64

// Snapshot is the complete observable state of the machine.
type Snapshot struct {
	User        *profile.Profile `json:"user"`
	Loading     bool             `json:"loading"`
	Initialized bool             `json:"initialized"`
	Error       string           `json:"error,omitempty"`
}

// ActionResult is returned synchronously from SignIn/SignUp/SignOut so UI
// code can react without subscribing.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Listener receives snapshot transitions. A new subscriber is replayed the
// current snapshot immediately on subscribe.
type Listener func(Snapshot)

// Machine is the auth state machine.
type Machine struct {
	store    session.Store
	resolver *profile.Resolver
	rules    *routeguard.Rules
	log      zerolog.Logger

	initTimeout time.Duration

	mu           sync.Mutex
	snap         Snapshot
	listeners    map[int]Listener
	nextListener int
	sawEvent     bool
	seq          uint64 // delivery order of processed events

	events      chan *session.Session
	done        chan struct{}
	initTimer   *time.Timer
	unsubscribe func()
	closeOnce   sync.Once
}

// Option defines a function type to modify the Machine instance.
type Option func(*Machine)

// WithInitTimeout overrides the startup safety-valve timeout.
func WithInitTimeout(timeout time.Duration) Option {
	return func(m *Machine) {
		m.initTimeout = timeout
	}
}

// WithRules overrides the default route classification table.
func WithRules(rules *routeguard.Rules) Option {
	return func(m *Machine) {
		m.rules = rules
	}
}

// WithLogger attaches a component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Machine) {
		m.log = log
	}
}

// NewMachine initializes the machine and starts its startup protocol: it
// subscribes to session-change events, proactively queries the current
// session once, and arms the init timeout. Whichever resolves first wins the
// first publish; change events always take precedence afterwards.
func NewMachine(store session.Store, resolver *profile.Resolver, options ...Option) (*Machine, error) {
	if store == nil {
		return nil, errors.New("[NewMachine] session store is required")
	}
	if resolver == nil {
		return nil, errors.New("[NewMachine] profile resolver is required")
	}

	m := &Machine{
		store:       store,
		resolver:    resolver,
		rules:       routeguard.DefaultRules(),
		log:         zerolog.Nop(),
		initTimeout: DefaultInitTimeout,
		listeners:   make(map[int]Listener),
		events:      make(chan *session.Session, eventQueueSize),
		done:        make(chan struct{}),
	}
	for _, opt := range options {
		opt(m)
	}

	m.unsubscribe = store.OnSessionChange(m.enqueue)
	go m.processEvents()
	go m.bootstrap()
	m.initTimer = time.AfterFunc(m.initTimeout, m.forceInitialized)

	return m, nil
}

// Close cancels the session subscription and stops the event consumer. The
// machine must not be used afterwards.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		m.initTimer.Stop()
		close(m.done)
		m.mu.Lock()
		m.listeners = make(map[int]Listener)
		m.mu.Unlock()
	})
}

// GetSnapshot returns the current snapshot.
func (m *Machine) GetSnapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe registers a listener. It is invoked once with the current
// snapshot immediately, then again for every future transition. Listeners are
// independent: one panicking does not prevent notifying the others.
func (m *Machine) Subscribe(listener Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = listener
	snap := m.snap
	m.mu.Unlock()

	m.safeNotify(listener, snap)

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// SignIn authenticates with email/password. The snapshot's user is not set
// here: the session store's change event drives profile resolution, keeping a
// single writer for the user field.
func (m *Machine) SignIn(ctx context.Context, creds session.Credentials) ActionResult {
	m.beginAction()
	if _, err := m.store.SignInWithPassword(ctx, creds.Email, creds.Password); err != nil {
		return m.failAction("sign-in", err)
	}
	return m.endAction()
}

// SignUp registers a new account. Credential shape is checked before the
// backend call so obviously bad input fails without a round trip.
func (m *Machine) SignUp(ctx context.Context, creds session.SignupCredentials) ActionResult {
	m.beginAction()
	if err := session.ValidateEmail(creds.Email); err != nil {
		return m.failAction("sign-up", err)
	}
	if err := session.ValidatePassword(creds.Password); err != nil {
		return m.failAction("sign-up", err)
	}
	if _, err := m.store.SignUp(ctx, creds.Email, creds.Password, creds.Name); err != nil {
		return m.failAction("sign-up", err)
	}
	return m.endAction()
}

// SignOut terminates the session. Signing out while already signed out
// succeeds as a no-op.
func (m *Machine) SignOut(ctx context.Context) ActionResult {
	m.beginAction()
	if err := m.store.SignOut(ctx); err != nil && !autherrors.Is(err, autherrors.ErrNoSession) {
		return m.failAction("sign-out", err)
	}
	return m.endAction()
}

// ClearError resets the snapshot's error field.
func (m *Machine) ClearError() {
	m.mu.Lock()
	if m.snap.Error == "" {
		m.mu.Unlock()
		return
	}
	m.snap.Error = ""
	snap := m.snap
	m.mu.Unlock()
	m.notify(snap)
}

// CanAccessRoute applies the route guard to the current snapshot.
func (m *Machine) CanAccessRoute(path string) routeguard.Decision {
	return m.rules.Decide(m.GetSnapshot().User, path)
}

// Rules exposes the route table for composition (e.g. by the redirect
// coordinator).
func (m *Machine) Rules() *routeguard.Rules {
	return m.rules
}

// enqueue hands a change event to the single consumer. Events are queued in
// delivery order, never dropped or coalesced.
func (m *Machine) enqueue(sess *session.Session) {
	select {
	case m.events <- sess:
	case <-m.done:
	}
}

func (m *Machine) processEvents() {
	for {
		select {
		case <-m.done:
			return
		case sess := <-m.events:
			m.handleSessionChange(sess)
		}
	}
}

// handleSessionChange is the only code path that sets the snapshot's user.
func (m *Machine) handleSessionChange(sess *session.Session) {
	m.mu.Lock()
	m.sawEvent = true
	m.seq++
	seq := m.seq
	m.snap.Loading = true
	snap := m.snap
	m.mu.Unlock()
	m.notify(snap)

	var user *profile.Profile
	if sess != nil {
		user = m.resolver.Resolve(context.Background(), sess)
	}

	m.mu.Lock()
	m.snap.User = user
	m.snap.Loading = false
	m.snap.Initialized = true
	snap = m.snap
	m.mu.Unlock()

	m.log.Debug().
		Uint64("event_seq", seq).
		Bool("authenticated", user != nil).
		Msg("session change processed")
	m.notify(snap)
}

// bootstrap performs the one proactive session query. A session found here is
// routed through the event queue so the user field keeps its single writer; a
// stale result arriving after an event has already been processed is dropped.
func (m *Machine) bootstrap() {
	sess, err := m.store.GetCurrentSession(context.Background())
	if err != nil {
		// Startup errors never set the snapshot error; a transient network
		// blip on load must not look like a failed sign-in.
		m.log.Warn().Err(err).Msg("initial session check failed, continuing signed out")
		sess = nil
	}

	m.mu.Lock()
	if m.snap.Initialized || m.sawEvent {
		m.mu.Unlock()
		return
	}
	if sess == nil {
		m.snap.Loading = false
		m.snap.Initialized = true
		snap := m.snap
		m.mu.Unlock()
		m.notify(snap)
		return
	}
	m.mu.Unlock()

	m.enqueue(sess)
}

// forceInitialized is the startup safety valve. It does not cancel in-flight
// calls; it only stops blocking the UI. Change events still apply afterwards.
func (m *Machine) forceInitialized() {
	m.mu.Lock()
	if m.snap.Initialized {
		m.mu.Unlock()
		return
	}
	m.snap = Snapshot{Initialized: true}
	snap := m.snap
	m.mu.Unlock()

	m.log.Warn().Dur("timeout", m.initTimeout).Msg("session resolution timed out, continuing signed out")
	m.notify(snap)
}

func (m *Machine) beginAction() {
	m.mu.Lock()
	m.snap.Loading = true
	m.snap.Error = ""
	snap := m.snap
	m.mu.Unlock()
	m.notify(snap)
}

func (m *Machine) endAction() ActionResult {
	m.mu.Lock()
	m.snap.Loading = false
	snap := m.snap
	m.mu.Unlock()
	m.notify(snap)
	return ActionResult{Success: true}
}

func (m *Machine) failAction(action string, err error) ActionResult {
	msg := Message(err)
	m.mu.Lock()
	m.snap.Loading = false
	m.snap.Error = msg
	snap := m.snap
	m.mu.Unlock()

	m.log.Warn().Err(err).Str("action", action).Msg("auth action failed")
	m.notify(snap)
	return ActionResult{Success: false, Error: msg}
}

// notify delivers a snapshot to a copy of the listener set, so a listener
// unsubscribing itself mid-notification cannot disturb the iteration.
func (m *Machine) notify(snap Snapshot) {
	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for id := 0; id < m.nextListener; id++ {
		if l, ok := m.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	for _, l := range listeners {
		m.safeNotify(l, snap)
	}
}

func (m *Machine) safeNotify(listener Listener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("auth listener panicked")
		}
	}()
	listener(snap)
}
