package session

import "context"

// ChangeListener is invoked on every session transition: sign-in, sign-out,
// token refresh, external expiry. A nil session means "signed out".
type ChangeListener func(*Session)

// Store wraps the backend's session primitives. It owns no business state;
// any backend offering these five operations satisfies the contract.
type Store interface {
	// GetCurrentSession returns the live session, or nil when signed out.
	// It fails only on transport errors, which are propagated, not swallowed.
	GetCurrentSession(ctx context.Context) (*Session, error)

	// SignInWithPassword authenticates the email/password pair and returns
	// the new session. Fails with ErrInvalidCredentials, ErrEmailNotConfirmed
	// or ErrUnexpected.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignUp registers a new account. The returned session is nil when the
	// backend requires email confirmation before first sign-in. Fails with
	// ErrEmailInUse, ErrWeakPassword or ErrUnexpected.
	SignUp(ctx context.Context, email, password, name string) (*Session, error)

	// SignOut terminates the current session. Signing out with no live
	// session succeeds as a no-op.
	SignOut(ctx context.Context) error

	// OnSessionChange registers a listener invoked on every session
	// transition. It may fire zero or more times after registration. The
	// returned function removes the listener.
	OnSessionChange(listener ChangeListener) (unsubscribe func())
}
