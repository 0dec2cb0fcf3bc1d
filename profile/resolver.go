package profile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	autherrors "github.com/vowquiz/go-quiz-auth/internal/errors"
	"github.com/vowquiz/go-quiz-auth/session"
)

// Resolver turns an authenticated session into an application profile. Its
// Resolve method never fails: a valid session is never presented to the UI as
// "logged out", even when the profile store is unreachable.
type Resolver struct {
	repo    Repo
	log     zerolog.Logger
	nowTime func() time.Time
}

// ResolverOption defines a function type to modify the Resolver instance.
type ResolverOption func(*Resolver)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.nowTime = nowFunc
	}
}

// WithLogger attaches a component logger.
func WithLogger(log zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver initializes a new Resolver with the profile row storage.
func NewResolver(repo Repo, options ...ResolverOption) (*Resolver, error) {
	if repo == nil {
		return nil, autherrors.Wrapf(autherrors.ErrUnexpected, "[NewResolver] repo is required")
	}
	r := &Resolver{
		repo:    repo,
		log:     zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Resolve looks up the profile row keyed by the session subject, creating it
// with defaults when absent. A duplicate-key race on create re-fetches the
// winner's row. When both lookup and create fail for transport reasons a
// transient profile derived from session claims is returned instead, trading
// eventual consistency of the row for UI responsiveness.
func (r *Resolver) Resolve(ctx context.Context, sess *session.Session) *Profile {
	p, err := r.repo.GetByID(ctx, sess.UserID)
	if err == nil {
		return p
	}
	if !autherrors.Is(err, autherrors.ErrNotFound) {
		r.log.Warn().Err(err).Str("user_id", sess.UserID).Msg("profile lookup failed, using claims fallback")
		return r.fallback(sess)
	}

	created, err := r.repo.Insert(ctx, r.defaults(sess))
	if err == nil {
		r.log.Info().Str("user_id", sess.UserID).Msg("profile created on first resolution")
		return created
	}
	if autherrors.Is(err, autherrors.ErrDuplicate) {
		// Another resolution won the create race; its row is authoritative.
		existing, getErr := r.repo.GetByID(ctx, sess.UserID)
		if getErr == nil {
			return existing
		}
		r.log.Warn().Err(getErr).Str("user_id", sess.UserID).Msg("re-fetch after duplicate insert failed, using claims fallback")
		return r.fallback(sess)
	}

	r.log.Warn().Err(err).Str("user_id", sess.UserID).Msg("profile create failed, using claims fallback")
	return r.fallback(sess)
}

// defaults synthesizes the row to persist for a first-time subject.
func (r *Resolver) defaults(sess *session.Session) *Profile {
	now := r.nowTime()
	return &Profile{
		ID:        sess.UserID,
		Email:     sess.Email,
		Name:      displayName(sess),
		Plan:      PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// fallback builds the never-persisted profile from session claims alone.
func (r *Resolver) fallback(sess *session.Session) *Profile {
	p := r.defaults(sess)
	p.Transient = true
	return p
}

func displayName(sess *session.Session) string {
	if sess.Name != "" {
		return sess.Name
	}
	if local := session.LocalPart(sess.Email); local != "" {
		return local
	}
	return "User"
}
