// Package storage abstracts the object store holding uploaded images and avatars.
package storage

import (
	"context"
	"io"

	"github.com/and161185/pinboard/internal/model"
)

// UploadOptions mirror the headers stored with an object.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	// Upsert allows overwriting an existing key. Without it an existing key yields errs.ErrAlreadyExists.
	Upsert bool
}

// ObjectStore is the bucket the application writes to.
type ObjectStore interface {
	// Bucket returns the bucket name.
	Bucket() string
	// BucketInfo reports whether the bucket exists and allows anonymous reads.
	BucketInfo(ctx context.Context) (model.BucketInfo, error)
	// CreateBucket creates the bucket, optionally public.
	CreateBucket(ctx context.Context, public bool) error
	// SetPublic grants anonymous read access to every object in the bucket.
	SetPublic(ctx context.Context) error
	// Upload writes size bytes from r under path.
	Upload(ctx context.Context, path string, r io.Reader, size int64, opts UploadOptions) error
	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, paths ...string) error
	// PublicURL returns the address objects are served from, or "" when the store cannot tell.
	PublicURL(path string) string
}

// CacheControlSeconds is the max-age written with uploaded images.
const CacheControlSeconds = "3600"
