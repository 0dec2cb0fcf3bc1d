package fakeprofilerepo

import (
	"context"
	"sync"

	autherrors "github.com/vowquiz/go-quiz-auth/internal/errors"
	"github.com/vowquiz/go-quiz-auth/profile"
)

var _ profile.Repo = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory profile.Repo. The *Err fields inject
// failures for resolver tests.
type FakeProfileRepo struct {
	profiles map[string]*profile.Profile
	lock     sync.RWMutex

	GetErr    error
	InsertErr error

	InsertCalls int
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{
		profiles: make(map[string]*profile.Profile),
	}
}

func (pr *FakeProfileRepo) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	if pr.GetErr != nil {
		return nil, pr.GetErr
	}
	p, ok := pr.profiles[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (pr *FakeProfileRepo) Insert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	pr.InsertCalls++
	if pr.InsertErr != nil {
		return nil, pr.InsertErr
	}
	if _, exists := pr.profiles[p.ID]; exists {
		return nil, autherrors.ErrDuplicate
	}
	cp := *p
	pr.profiles[p.ID] = &cp
	out := cp
	return &out, nil
}

// Seed stores a profile directly, bypassing duplicate checks.
func (pr *FakeProfileRepo) Seed(p *profile.Profile) {
	pr.lock.Lock()
	defer pr.lock.Unlock()
	cp := *p
	pr.profiles[p.ID] = &cp
}
