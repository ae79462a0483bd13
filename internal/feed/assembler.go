package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UnknownUser is shown for images whose owner row is missing.
const UnknownUser = "Unknown User"

// DefaultResolveTimeout bounds a single URL resolution.
const DefaultResolveTimeout = 2 * time.Second

const maxParallelResolves = 16

// Assembler joins a Batch into display-ready feed items.
type Assembler struct {
	resolver URLResolver
	timeout  time.Duration
	log      *zap.Logger
}

// NewAssembler constructs an Assembler. A non-positive timeout selects DefaultResolveTimeout.
func NewAssembler(r URLResolver, timeout time.Duration, log *zap.Logger) *Assembler {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &Assembler{resolver: r, timeout: timeout, log: log}
}

// Assemble resolves every image URL concurrently and returns the items in batch order.
// Images that fail to resolve within the timeout are dropped and logged.
// The list is returned only after every resolution has settled; a cancelled ctx discards it.
func (a *Assembler) Assemble(ctx context.Context, b Batch) ([]model.FeedItem, error) {
	urls := make([]string, len(b.Images))
	avatars := make(map[string]string)
	for _, p := range b.Profiles {
		avatars[p.AvatarURL] = ""
	}

	var g errgroup.Group
	g.SetLimit(maxParallelResolves)
	for i, img := range b.Images {
		g.Go(func() error {
			u, err := a.resolve(ctx, img.StoragePath)
			if err != nil {
				a.log.Warn("dropping feed item",
					zap.String("image_id", img.ID.String()),
					zap.String("path", img.StoragePath),
					zap.Error(err))
				return nil
			}
			urls[i] = u
			return nil
		})
	}
	_ = g.Wait()

	for raw := range avatars {
		avatars[raw] = AvatarURL(ctx, a.resolver, raw)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]model.FeedItem, 0, len(b.Images))
	for i, img := range b.Images {
		if urls[i] == "" {
			continue
		}
		username := UnknownUser
		if u, ok := b.Users[img.UserID]; ok && u.Username != "" {
			username = u.Username
		}
		avatar := ""
		if p, ok := b.Profiles[img.UserID]; ok {
			avatar = avatars[p.AvatarURL]
		}
		alt := img.Title
		if alt == "" {
			alt = img.OriginalFilename
		}
		items = append(items, model.FeedItem{
			ID:          img.ID,
			URL:         urls[i],
			Alt:         alt,
			Title:       img.Title,
			Description: img.Description,
			Username:    username,
			AvatarURL:   avatar,
			Height:      HeightFor(img.ID.String()),
			Image:       img,
		})
	}
	return items, nil
}

func (a *Assembler) resolve(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		url string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		u, err := a.resolver.Resolve(ctx, path)
		ch <- result{url: u, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && r.url == "" {
			return "", fmt.Errorf("%w: empty url", errs.ErrResolution)
		}
		return r.url, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", errs.ErrResolution, ctx.Err())
	}
}
