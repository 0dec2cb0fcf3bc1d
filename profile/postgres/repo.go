// Package postgres implements profile.Repo against a pgx connection pool.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	autherrors "github.com/vowquiz/go-quiz-auth/internal/errors"
	"github.com/vowquiz/go-quiz-auth/pkg/db"
	"github.com/vowquiz/go-quiz-auth/profile"
)

// uniqueViolation is the SQLSTATE for a unique-constraint failure.
const uniqueViolation = "23505"

type Repo struct {
	pool *pgxpool.Pool
}

var _ profile.Repo = (*Repo)(nil)

func New(pool *pgxpool.Pool) (*Repo, error) {
	if pool == nil {
		return nil, errors.New("[postgres.New] pool is required")
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	var p profile.Profile
	err := db.Get(ctx, r.pool, &p,
		`SELECT id, email, name, plan, created_at, updated_at FROM profiles WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherrors.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Repo.GetByID] select profile")
	}
	return &p, nil
}

func (r *Repo) Insert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	var created profile.Profile
	err := db.Get(ctx, r.pool, &created,
		`INSERT INTO profiles (id, email, name, plan, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, email, name, plan, created_at, updated_at`,
		p.ID, p.Email, p.Name, p.Plan, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, autherrors.ErrDuplicate
		}
		return nil, errors.Wrap(err, "[Repo.Insert] insert profile")
	}
	return &created, nil
}
