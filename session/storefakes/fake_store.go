package storefakes

import (
	"context"
	"sync"

	"github.com/vowquiz/go-quiz-auth/session"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is a scriptable session.Store for tests. Behaviour defaults to a
// plain in-memory session holder; individual operations can be overridden via
// the *Fn fields, and Emit drives the change-event path directly.
type FakeStore struct {
	lock sync.Mutex

	current      *session.Session
	listeners    map[int]session.ChangeListener
	nextListener int

	GetCurrentSessionFn func(ctx context.Context) (*session.Session, error)
	SignInFn            func(ctx context.Context, email, password string) (*session.Session, error)
	SignUpFn            func(ctx context.Context, email, password, name string) (*session.Session, error)
	SignOutFn           func(ctx context.Context) error

	SignInCalls  int
	SignUpCalls  int
	SignOutCalls int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		listeners: make(map[int]session.ChangeListener),
	}
}

// SetSession sets the session returned by the default GetCurrentSession.
func (fs *FakeStore) SetSession(sess *session.Session) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.current = sess
}

// Emit fires a session-change event to all registered listeners.
func (fs *FakeStore) Emit(sess *session.Session) {
	fs.lock.Lock()
	fs.current = sess
	listeners := make([]session.ChangeListener, 0, len(fs.listeners))
	for id := 0; id < fs.nextListener; id++ {
		if l, ok := fs.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	fs.lock.Unlock()

	for _, l := range listeners {
		l(sess)
	}
}

// ListenerCount reports how many listeners are currently registered.
func (fs *FakeStore) ListenerCount() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return len(fs.listeners)
}

func (fs *FakeStore) GetCurrentSession(ctx context.Context) (*session.Session, error) {
	if fs.GetCurrentSessionFn != nil {
		return fs.GetCurrentSessionFn(ctx)
	}
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.current, nil
}

func (fs *FakeStore) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	fs.lock.Lock()
	fs.SignInCalls++
	fs.lock.Unlock()
	if fs.SignInFn != nil {
		return fs.SignInFn(ctx, email, password)
	}
	return nil, nil
}

func (fs *FakeStore) SignUp(ctx context.Context, email, password, name string) (*session.Session, error) {
	fs.lock.Lock()
	fs.SignUpCalls++
	fs.lock.Unlock()
	if fs.SignUpFn != nil {
		return fs.SignUpFn(ctx, email, password, name)
	}
	return nil, nil
}

func (fs *FakeStore) SignOut(ctx context.Context) error {
	fs.lock.Lock()
	fs.SignOutCalls++
	fs.lock.Unlock()
	if fs.SignOutFn != nil {
		return fs.SignOutFn(ctx)
	}
	return nil
}

func (fs *FakeStore) OnSessionChange(listener session.ChangeListener) func() {
	fs.lock.Lock()
	id := fs.nextListener
	fs.nextListener++
	fs.listeners[id] = listener
	fs.lock.Unlock()

	return func() {
		fs.lock.Lock()
		delete(fs.listeners, id)
		fs.lock.Unlock()
	}
}
