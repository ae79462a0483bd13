package feed

import (
	"context"
	"fmt"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Batch is one load of image rows with the owner rows they reference.
type Batch struct {
	Images   []model.Image
	Users    map[uuid.UUID]model.User
	Profiles map[uuid.UUID]model.Profile
}

// Fetcher reads image, user and profile rows.
type Fetcher struct {
	images   repository.ImageRepository
	users    repository.UserRepository
	profiles repository.ProfileRepository
}

// NewFetcher constructs a Fetcher.
func NewFetcher(images repository.ImageRepository, users repository.UserRepository, profiles repository.ProfileRepository) *Fetcher {
	return &Fetcher{images: images, users: users, profiles: profiles}
}

// Load returns every image, newest first, with its owners.
func (f *Fetcher) Load(ctx context.Context) (Batch, error) {
	imgs, err := f.images.List(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: images: %w", errs.ErrDatabase, err)
	}
	return f.join(ctx, imgs)
}

// LoadByUser returns the images of one owner.
func (f *Fetcher) LoadByUser(ctx context.Context, userID uuid.UUID) (Batch, error) {
	imgs, err := f.images.ListByUser(ctx, userID)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: images: %w", errs.ErrDatabase, err)
	}
	return f.join(ctx, imgs)
}

// LoadOne returns a single image. errs.ErrNotFound is preserved for a missing row.
func (f *Fetcher) LoadOne(ctx context.Context, id uuid.UUID) (Batch, error) {
	img, err := f.images.Get(ctx, id)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: image %s: %w", errs.ErrDatabase, id, err)
	}
	return f.join(ctx, []model.Image{*img})
}

// join loads users and profiles concurrently, restricted to the owners in imgs.
func (f *Fetcher) join(ctx context.Context, imgs []model.Image) (Batch, error) {
	b := Batch{Images: imgs}
	owners := lo.Uniq(lo.Map(imgs, func(img model.Image, _ int) uuid.UUID { return img.UserID }))
	if len(owners) == 0 {
		b.Users = map[uuid.UUID]model.User{}
		b.Profiles = map[uuid.UUID]model.Profile{}
		return b, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := f.users.GetByIDs(gctx, owners)
		if err != nil {
			return fmt.Errorf("%w: users: %w", errs.ErrDatabase, err)
		}
		b.Users = users
		return nil
	})
	g.Go(func() error {
		profiles, err := f.profiles.GetByUserIDs(gctx, owners)
		if err != nil {
			return fmt.Errorf("%w: profiles: %w", errs.ErrDatabase, err)
		}
		b.Profiles = profiles
		return nil
	})
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}
	return b, nil
}
