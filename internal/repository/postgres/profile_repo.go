package postgres

import (
	"context"

	"github.com/and161185/pinboard/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// GetByUserID returns errs.ErrNotFound when no profile row exists.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	const q = `
SELECT id, user_id, description, COALESCE(avatar_url, ''), updated_at
FROM profiles WHERE user_id=$1`
	var p model.Profile
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&p.ID, &p.UserID, &p.Description, &p.AvatarURL, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// GetByUserIDs selects profiles for the given users, keyed by user ID.
func (r *ProfileRepo) GetByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]model.Profile, error) {
	out := make(map[uuid.UUID]model.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	const q = `
SELECT id, user_id, description, COALESCE(avatar_url, ''), updated_at
FROM profiles WHERE user_id = ANY($1)`
	rows, err := r.db.Pool.Query(ctx, q, userIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Description, &p.AvatarURL, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.UserID] = p
	}
	return out, mapErr(rows.Err())
}

// Upsert writes the profile, replacing description and avatar of an existing row.
func (r *ProfileRepo) Upsert(ctx context.Context, p *model.Profile) error {
	const q = `
INSERT INTO profiles (id, user_id, description, avatar_url, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), now())
ON CONFLICT (user_id) DO UPDATE
SET description = EXCLUDED.description, avatar_url = EXCLUDED.avatar_url, updated_at = now()
RETURNING id, updated_at`
	return mapErr(r.db.Pool.QueryRow(ctx, q, p.ID, p.UserID, p.Description, p.AvatarURL).Scan(&p.ID, &p.UpdatedAt))
}
