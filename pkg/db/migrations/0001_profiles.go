package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upProfiles, downProfiles)
}

func upProfiles(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS profiles (
	id         uuid PRIMARY KEY,
	email      text NOT NULL,
	name       text NOT NULL,
	plan       text NOT NULL DEFAULT 'free',
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS profiles_email_idx ON profiles (email);
`)
	return err
}

func downProfiles(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS profiles;`)
	return err
}
