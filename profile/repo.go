package profile

import "context"

// Repo is the profile row storage. Implementations map their storage-level
// conditions onto the sentinel errors: a missing row is ErrNotFound and a
// unique-key violation on insert is ErrDuplicate.
type Repo interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	Insert(ctx context.Context, p *Profile) (*Profile, error)
}
