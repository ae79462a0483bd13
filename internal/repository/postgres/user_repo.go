package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/pinboard/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// IdentityRepo implements IdentityRepository using PostgreSQL.
type IdentityRepo struct{ db *DB }

// NewIdentityRepo constructs an identity repository.
func NewIdentityRepo(db *DB) *IdentityRepo { return &IdentityRepo{db: db} }

// CreateWithUser inserts the identity and the public users row atomically.
func (r *IdentityRepo) CreateWithUser(ctx context.Context, id *model.Identity, u *model.User) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const insIdentity = `
INSERT INTO identities (id, email, pwd_hash, salt)
VALUES ($1, $2, $3, $4)
RETURNING created_at`
	if err = tx.QueryRow(ctx, insIdentity, id.ID, id.Email, id.PwdHash, id.Salt).Scan(&id.CreatedAt); err != nil {
		return fmt.Errorf("identity: %w", mapErr(err))
	}

	const insUser = `
INSERT INTO users (id, username, first_name, last_name)
VALUES ($1, $2, $3, $4)`
	if _, err = tx.Exec(ctx, insUser, u.ID, u.Username, u.FirstName, u.LastName); err != nil {
		return fmt.Errorf("user: %w", mapErr(err))
	}
	return nil
}

// GetByEmail selects an identity by email.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	const q = `
SELECT id, email, pwd_hash, salt, created_at
FROM identities WHERE email=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, email))
}

// GetByID selects an identity by ID.
func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Identity, error) {
	const q = `
SELECT id, email, pwd_hash, salt, created_at
FROM identities WHERE id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *IdentityRepo) scanOne(row pgx.Row) (*model.Identity, error) {
	var i model.Identity
	if err := row.Scan(&i.ID, &i.Email, &i.PwdHash, &i.Salt, &i.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &i, nil
}

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Get selects a user by ID.
func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `
SELECT id, username, first_name, last_name
FROM users WHERE id=$1`
	var u model.User
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// GetByIDs selects the users whose IDs are in ids.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.User, error) {
	out := make(map[uuid.UUID]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `
SELECT id, username, first_name, last_name
FROM users WHERE id = ANY($1)`
	rows, err := r.db.Pool.Query(ctx, q, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, mapErr(rows.Err())
}
