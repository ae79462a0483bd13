// Package feed assembles image rows into display-ready feed items and keeps each page's list.
package feed

import (
	"context"

	"github.com/and161185/pinboard/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Service answers the feed, profile and single pin reads.
type Service struct {
	fetcher   *Fetcher
	assembler *Assembler
	views     *Views
}

// NewService wires the read path.
func NewService(f *Fetcher, a *Assembler, v *Views) *Service {
	return &Service{fetcher: f, assembler: a, views: v}
}

// Views exposes the list store for mutations.
func (s *Service) Views() *Views { return s.views }

// Assembler exposes the item assembler for mutations that build a single item.
func (s *Service) Assembler() *Assembler { return s.assembler }

// Feed returns the viewer's home feed filtered by term. A load without a term always refetches
// and replaces the base list. A search is derived from the stored base unless refresh is set.
func (s *Service) Feed(ctx context.Context, viewer uuid.UUID, term string, refresh bool) ([]model.FeedItem, error) {
	if term != "" && !refresh {
		if items, ok := s.views.Search(viewer, PageFeed, term); ok {
			return items, nil
		}
	}
	base, err := s.views.Load(ctx, viewer, PageFeed, func(ctx context.Context) ([]model.FeedItem, error) {
		b, err := s.fetcher.Load(ctx)
		if err != nil {
			return nil, err
		}
		return s.assembler.Assemble(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return Search(base, term), nil
}

// Profile returns the pins owned by owner as seen by viewer. Every call refetches; the
// viewer's own profile list is stored for later surgery.
func (s *Service) Profile(ctx context.Context, viewer, owner uuid.UUID) ([]model.FeedItem, error) {
	load := func(ctx context.Context) ([]model.FeedItem, error) {
		b, err := s.fetcher.LoadByUser(ctx, owner)
		if err != nil {
			return nil, err
		}
		return s.assembler.Assemble(ctx, b)
	}
	if viewer != owner {
		ctx, release := s.views.Begin(ctx, viewer)
		defer release()
		return load(ctx)
	}
	return s.views.Load(ctx, viewer, PageProfile, load)
}

// Pin returns one item. A row whose URL cannot be resolved is reported as not found.
func (s *Service) Pin(ctx context.Context, viewer, id uuid.UUID) (*model.FeedItem, error) {
	ctx, release := s.views.Begin(ctx, viewer)
	defer release()

	b, err := s.fetcher.LoadOne(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.assembler.Assemble(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errNotResolved(id)
	}
	return &items[0], nil
}
