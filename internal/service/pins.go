// Package service contains the mutation services for pins and profiles.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/feed"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/repository"
	"github.com/and161185/pinboard/internal/storage"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Readiness gates writes on the storage setup having succeeded.
type Readiness interface {
	Ready(ctx context.Context) error
}

// UploadRequest is a submitted create-pin form.
type UploadRequest struct {
	File        io.Reader
	Filename    string
	ContentType string
	Size        int64
	Title       string
	Description string
	IsPublic    bool
}

// PinService defines the pin mutations.
type PinService interface {
	// Upload stores the file and its row and returns the new feed item. The item is nil
	// when the row was saved but its URL could not be resolved yet.
	Upload(ctx context.Context, s *model.Session, req UploadRequest) (*model.FeedItem, error)
	// Delete removes the caller's pin from storage and the images table.
	Delete(ctx context.Context, s *model.Session, id uuid.UUID) error
}

// PinServiceImpl implements PinService over the images table and the object store.
type PinServiceImpl struct {
	images repository.ImageRepository
	store  storage.ObjectStore
	ready  Readiness
	feed   *feed.Service
	log    *zap.Logger
	now    func() time.Time
}

// NewPinService constructs PinService.
func NewPinService(images repository.ImageRepository, store storage.ObjectStore, ready Readiness, fs *feed.Service, log *zap.Logger) *PinServiceImpl {
	return &PinServiceImpl{images: images, store: store, ready: ready, feed: fs, log: log, now: time.Now}
}

const cleanupTimeout = 10 * time.Second

// Upload validates the form, writes the object, then inserts the row.
// If the row insert fails the object is removed again; a failing removal is only logged.
func (p *PinServiceImpl) Upload(ctx context.Context, s *model.Session, req UploadRequest) (*model.FeedItem, error) {
	if err := validateUpload(&req); err != nil {
		return nil, err
	}
	if s == nil || s.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrAuth, errs.ErrUnauthorized)
	}
	if err := p.ready.Ready(ctx); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d.%s", p.now().UnixMilli(), extension(req.Filename, req.ContentType))
	opts := storage.UploadOptions{ContentType: req.ContentType, CacheControl: storage.CacheControlSeconds}
	if err := p.store.Upload(ctx, key, req.File, req.Size, opts); err != nil {
		return nil, fmt.Errorf("%w: storing file: %w", errs.ErrUpload, err)
	}

	img := &model.Image{
		UserID:           s.UserID,
		StoragePath:      key,
		OriginalFilename: req.Filename,
		Title:            req.Title,
		Description:      req.Description,
		IsPublic:         req.IsPublic,
	}
	if err := p.images.Insert(ctx, img); err != nil {
		p.compensate(ctx, key)
		if errors.Is(err, errs.ErrPermissionDenied) {
			return nil, fmt.Errorf("%w: permission denied saving pin, row-level security rejected the insert: %w", errs.ErrUpload, err)
		}
		return nil, fmt.Errorf("%w: saving pin: %w", errs.ErrUpload, err)
	}
	p.log.Info("pin uploaded", zap.String("image_id", img.ID.String()), zap.String("path", key))

	item, err := p.feed.Pin(ctx, s.UserID, img.ID)
	if err != nil {
		// the pin exists; the page picks it up on the next load
		p.log.Warn("new pin not assembled", zap.String("image_id", img.ID.String()), zap.Error(err))
		return nil, nil
	}
	p.feed.Views().Prepend(s.UserID, *item)
	return item, nil
}

func (p *PinServiceImpl) compensate(ctx context.Context, key string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := p.store.Remove(cctx, key); err != nil {
		p.log.Error("orphaned upload not removed", zap.String("path", key), zap.Error(err))
		return
	}
	p.log.Info("orphaned upload removed", zap.String("path", key))
}

// Delete removes the object and the row concurrently. The row deletion decides the outcome;
// a storage failure is logged and the pin still leaves every list.
func (p *PinServiceImpl) Delete(ctx context.Context, s *model.Session, id uuid.UUID) error {
	if s == nil || s.UserID == uuid.Nil {
		return fmt.Errorf("%w: %w", errs.ErrAuth, errs.ErrUnauthorized)
	}
	img, err := p.images.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: loading pin: %w", errs.ErrDatabase, err)
	}
	if img.UserID != s.UserID {
		return fmt.Errorf("%w: %w: pin belongs to another user", errs.ErrDatabase, errs.ErrPermissionDenied)
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := p.store.Remove(ctx, img.StoragePath); err != nil {
			p.log.Warn("storage removal failed", zap.String("path", img.StoragePath), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		return p.images.Delete(ctx, s.UserID, id)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: deleting pin: %w", errs.ErrDatabase, err)
	}

	p.feed.Views().Remove(id)
	p.log.Info("pin deleted", zap.String("image_id", id.String()))
	return nil
}

func validateUpload(req *UploadRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	switch {
	case req.File == nil || req.Size <= 0:
		return fmt.Errorf("%w: %w: please select an image", errs.ErrUpload, errs.ErrValidation)
	case !strings.HasPrefix(req.ContentType, "image/"):
		return fmt.Errorf("%w: %w: file must be an image", errs.ErrUpload, errs.ErrValidation)
	case req.Title == "":
		return fmt.Errorf("%w: %w: title is required", errs.ErrUpload, errs.ErrValidation)
	}
	return nil
}

// extension prefers the filename suffix and falls back to the image subtype.
func extension(filename, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		return ext
	}
	sub := strings.TrimPrefix(contentType, "image/")
	if i := strings.IndexAny(sub, "+;"); i >= 0 {
		sub = sub[:i]
	}
	if sub == "" {
		return "bin"
	}
	return sub
}
