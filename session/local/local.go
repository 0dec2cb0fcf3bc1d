// Package local implements session.Store against an in-process account table.
// It stands in for the hosted auth service in development and tests while
// honouring the same contract: password sign-in, sign-up with optional email
// confirmation, idempotent sign-out, and change-event fan-out.
package local

import (
	"context"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	autherrors "github.com/vowquiz/go-quiz-auth/internal/errors"
	"github.com/vowquiz/go-quiz-auth/session"
)

const defaultAccessTokenTTL = time.Hour

type account struct {
	id           string
	email        string
	name         string
	passwordHash string
	confirmed    bool
	createdAt    time.Time
}

// Store is an in-process session backend.
type Store struct {
	secret      []byte
	accessTTL   time.Duration
	autoConfirm bool
	nowTime     func() time.Time
	log         zerolog.Logger

	mu           sync.Mutex
	accounts     map[string]*account // keyed by email
	current      *session.Session
	listeners    map[int]session.ChangeListener
	nextListener int
}

var _ session.Store = (*Store)(nil)

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithAutoConfirm controls whether fresh sign-ups are signed in immediately
// or must confirm their email address first.
func WithAutoConfirm(autoConfirm bool) Option {
	return func(s *Store) {
		s.autoConfirm = autoConfirm
	}
}

// WithAccessTokenTTL overrides the default access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.accessTTL = ttl
	}
}

// WithLogger attaches a component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a Store signing access tokens with jwtSecret.
func New(jwtSecret string, options ...Option) *Store {
	s := &Store{
		secret:      []byte(jwtSecret),
		accessTTL:   defaultAccessTokenTTL,
		autoConfirm: true,
		nowTime:     time.Now,
		log:         zerolog.Nop(),
		accounts:    make(map[string]*account),
		listeners:   make(map[int]session.ChangeListener),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// GetCurrentSession returns a copy of the live session, or nil when signed
// out. An expired session is cleared and reported as a sign-out event.
func (s *Store) GetCurrentSession(ctx context.Context) (*session.Session, error) {
	s.mu.Lock()
	if s.current != nil && s.current.Expired(s.nowTime()) {
		s.current = nil
		listeners := s.listenersLocked()
		s.mu.Unlock()
		s.fanOut(listeners, nil)
		return nil, nil
	}
	sess := copySession(s.current)
	s.mu.Unlock()
	return sess, nil
}

// SignInWithPassword authenticates the email/password pair, replaces the
// current session and notifies listeners.
func (s *Store) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	s.mu.Lock()
	acc, ok := s.accounts[email]
	if !ok || !checkPasswordHash(password, acc.passwordHash) {
		s.mu.Unlock()
		return nil, autherrors.ErrInvalidCredentials
	}
	if !acc.confirmed {
		s.mu.Unlock()
		return nil, autherrors.ErrEmailNotConfirmed
	}

	sess, err := s.mintSessionLocked(acc)
	if err != nil {
		s.mu.Unlock()
		return nil, autherrors.Wrapf(err, "[SignInWithPassword] mint session")
	}
	s.current = sess
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.fanOut(listeners, copySession(sess))
	return copySession(sess), nil
}

// SignUp registers a new account. With auto-confirm enabled the account is
// signed in immediately; otherwise a nil session is returned and the caller
// must confirm the email before the first sign-in.
func (s *Store) SignUp(ctx context.Context, email, password, name string) (*session.Session, error) {
	if err := session.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := session.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, autherrors.Wrapf(err, "[SignUp] hash password")
	}

	if name == "" {
		name = session.LocalPart(email)
	}

	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		return nil, autherrors.ErrEmailInUse
	}
	acc := &account{
		id:           uuid.New().String(),
		email:        email,
		name:         name,
		passwordHash: hash,
		confirmed:    s.autoConfirm,
		createdAt:    s.nowTime(),
	}
	s.accounts[email] = acc

	if !s.autoConfirm {
		s.mu.Unlock()
		s.log.Info().Str("email", email).Msg("sign-up pending email confirmation")
		return nil, nil
	}

	sess, err := s.mintSessionLocked(acc)
	if err != nil {
		s.mu.Unlock()
		return nil, autherrors.Wrapf(err, "[SignUp] mint session")
	}
	s.current = sess
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.fanOut(listeners, copySession(sess))
	return copySession(sess), nil
}

// SignOut clears the current session. Signing out while already signed out
// is a successful no-op and emits no event.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	s.current = nil
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.fanOut(listeners, nil)
	return nil
}

// OnSessionChange registers a listener for session transitions.
func (s *Store) OnSessionChange(listener session.ChangeListener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ConfirmEmail marks an account as confirmed so it can sign in.
func (s *Store) ConfirmEmail(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return autherrors.ErrNotFound
	}
	acc.confirmed = true
	return nil
}

// Refresh re-mints the current session's tokens and emits a refresh event.
func (s *Store) Refresh(ctx context.Context) (*session.Session, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, autherrors.ErrNoSession
	}
	acc, ok := s.accounts[s.current.Email]
	if !ok {
		s.mu.Unlock()
		return nil, autherrors.ErrNoSession
	}
	sess, err := s.mintSessionLocked(acc)
	if err != nil {
		s.mu.Unlock()
		return nil, autherrors.Wrapf(err, "[Refresh] mint session")
	}
	sess.RefreshToken = s.current.RefreshToken
	s.current = sess
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.fanOut(listeners, copySession(sess))
	return copySession(sess), nil
}

// mintSessionLocked builds a session with a signed access token. Callers must
// hold s.mu.
func (s *Store) mintSessionLocked(acc *account) (*session.Session, error) {
	now := s.nowTime()
	expiresAt := now.Add(s.accessTTL)

	claims := jwtlib.MapClaims{
		"sub":   acc.id,
		"email": acc.email,
		"name":  acc.name,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"jti":   uuid.New().String(),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &session.Session{
		UserID:       acc.id,
		Email:        acc.email,
		Name:         acc.name,
		AccessToken:  signed,
		RefreshToken: uuid.New().String(),
		ExpiresAt:    expiresAt,
	}, nil
}

// listenersLocked snapshots the listener set in registration order so a
// listener unsubscribing mid-notification cannot disturb the iteration.
// Callers must hold s.mu.
func (s *Store) listenersLocked() []session.ChangeListener {
	out := make([]session.ChangeListener, 0, len(s.listeners))
	for id := 0; id < s.nextListener; id++ {
		if l, ok := s.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// fanOut delivers an event synchronously, preserving causal order between
// consecutive transitions.
func (s *Store) fanOut(listeners []session.ChangeListener, sess *session.Session) {
	for _, l := range listeners {
		l(copySession(sess))
	}
}

func copySession(sess *session.Session) *session.Session {
	if sess == nil {
		return nil
	}
	cp := *sess
	return &cp
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
