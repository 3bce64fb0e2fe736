package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgPool is the subset of *pgxpool.Pool used by PgCredentialStore.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgCredentialStore implements CredentialStore on a PostgreSQL users table.
type PgCredentialStore struct {
	db pgPool
}

func NewPgCredentialStore(db pgPool) *PgCredentialStore {
	return &PgCredentialStore{db: db}
}

const (
	usersPKeyConstraint  = "users_pkey"
	usersEmailConstraint = "users_email_key"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGINT NOT NULL,
	first_name    VARCHAR(20) NOT NULL,
	last_name     VARCHAR(20) NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	CONSTRAINT ` + usersPKeyConstraint + ` PRIMARY KEY (id),
	CONSTRAINT ` + usersEmailConstraint + ` UNIQUE (email)
)`

// EnsureSchema creates the users table when it does not exist.
func (r *PgCredentialStore) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, usersSchema)
	return err
}

func (r *PgCredentialStore) Load(ctx context.Context) ([]UserRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, first_name, last_name, email, password_hash FROM users ORDER BY id`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()
	var out []UserRecord
	for rows.Next() {
		var u UserRecord
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgErr(err)
	}
	return out, nil
}

func (r *PgCredentialStore) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	const q = `SELECT id, first_name, last_name, email, password_hash FROM users WHERE email=$1`
	var u UserRecord
	if err := r.db.QueryRow(ctx, q, email).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPgErr(err)
	}
	return &u, nil
}

// Append assigns the id from the current row count inside the INSERT itself.
func (r *PgCredentialStore) Append(ctx context.Context, rec UserRecord) (UserRecord, error) {
	const q = `INSERT INTO users (id, first_name, last_name, email, password_hash)
SELECT COUNT(*), $1, $2, $3, $4 FROM users
RETURNING id`
	if err := r.db.QueryRow(ctx, q, rec.FirstName, rec.LastName, rec.Email, rec.PasswordHash).Scan(&rec.ID); err != nil {
		return UserRecord{}, mapPgErr(err)
	}
	return rec, nil
}

func (r *PgCredentialStore) UpdatePasswordHash(ctx context.Context, email, newHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash=$1 WHERE email=$2`, newHash, email)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	return nil
}

// mapPgErr translates PostgreSQL error codes into store errors.
func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UndefinedTable:
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, pgErr.Message)
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case usersEmailConstraint:
			return fmt.Errorf("%w: %s", ErrEmailTaken, pgErr.ConstraintName)
		case usersPKeyConstraint:
			return fmt.Errorf("%w: %s", ErrIDConflict, pgErr.Detail)
		}
		return err
	default:
		return err
	}
}
