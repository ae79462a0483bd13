package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ImageRepo implements ImageRepository using PostgreSQL.
type ImageRepo struct{ db *DB }

// NewImageRepo constructs an image repository.
func NewImageRepo(db *DB) *ImageRepo { return &ImageRepo{db: db} }

const imageColumns = `id, user_id, storage_path, original_filename, title, COALESCE(description, ''), is_public, created_at`

// List returns all images, newest first.
func (r *ImageRepo) List(ctx context.Context) ([]model.Image, error) {
	q := `SELECT ` + imageColumns + ` FROM images ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectImages(rows)
}

// ListByUser returns the images of one owner, newest first.
func (r *ImageRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Image, error) {
	q := `SELECT ` + imageColumns + ` FROM images WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectImages(rows)
}

// Get selects one image by ID.
func (r *ImageRepo) Get(ctx context.Context, id uuid.UUID) (*model.Image, error) {
	q := `SELECT ` + imageColumns + ` FROM images WHERE id=$1`
	var img model.Image
	if err := scanImage(r.db.Pool.QueryRow(ctx, q, id), &img); err != nil {
		return nil, mapErr(err)
	}
	return &img, nil
}

// Insert stores a new row. A zero ID is replaced with a fresh UUID.
func (r *ImageRepo) Insert(ctx context.Context, img *model.Image) error {
	if img.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		img.ID = id
	}
	const q = `
INSERT INTO images (id, user_id, storage_path, original_filename, title, description, is_public)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q,
		img.ID, img.UserID, img.StoragePath, img.OriginalFilename, img.Title, img.Description, img.IsPublic,
	).Scan(&img.CreatedAt)
	return mapErr(err)
}

// Delete removes the image if userID owns it. Zero affected rows means not found.
func (r *ImageRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM images WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("image %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func scanImage(row pgx.Row, img *model.Image) error {
	return row.Scan(&img.ID, &img.UserID, &img.StoragePath, &img.OriginalFilename,
		&img.Title, &img.Description, &img.IsPublic, &img.CreatedAt)
}

func collectImages(rows pgx.Rows) ([]model.Image, error) {
	defer rows.Close()
	var out []model.Image
	for rows.Next() {
		var img model.Image
		if err := scanImage(rows, &img); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, mapErr(rows.Err())
}
