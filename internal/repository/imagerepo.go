package repository

import (
	"context"

	"github.com/and161185/pinboard/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ImageRepository provides access to image rows.
type ImageRepository interface {
	// List returns every visible image, newest first.
	List(ctx context.Context) ([]model.Image, error)
	// ListByUser returns the images owned by userID, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Image, error)
	// Get loads a single image.
	Get(ctx context.Context, id uuid.UUID) (*model.Image, error)
	// Insert stores a new image row and fills in server-assigned fields.
	Insert(ctx context.Context, img *model.Image) error
	// Delete removes the image only if it belongs to userID.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// SetupRPC exposes the idempotent storage setup procedures and the table probe.
type SetupRPC interface {
	EnsureRLSOnStorageBuckets(ctx context.Context) (model.SetupResult, error)
	ManageImagesBucketPublicity(ctx context.Context) (model.SetupResult, error)
	// ProbeImages checks the images table is reachable.
	ProbeImages(ctx context.Context) error
}
