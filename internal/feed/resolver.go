package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/storage"
)

// URLResolver turns a storage path into a publicly fetchable URL.
type URLResolver interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// StoreResolver asks the object store first and falls back to base/bucket/path.
type StoreResolver struct {
	store storage.ObjectStore
	base  string
}

// NewStoreResolver returns a resolver. An empty base disables the fallback.
func NewStoreResolver(store storage.ObjectStore, base string) *StoreResolver {
	return &StoreResolver{store: store, base: strings.TrimSuffix(base, "/")}
}

// Resolve returns errs.ErrResolution when neither tier yields a URL.
func (r *StoreResolver) Resolve(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", fmt.Errorf("%w: empty path", errs.ErrResolution)
	}
	if u := r.store.PublicURL(path); u != "" {
		return u, nil
	}
	if r.base != "" {
		return r.base + "/" + r.store.Bucket() + "/" + path, nil
	}
	return "", fmt.Errorf("%w: no public url for %q", errs.ErrResolution, path)
}

// AvatarURL passes absolute http(s) and root-relative URLs through and resolves bucket paths.
// Failures yield "".
func AvatarURL(ctx context.Context, r URLResolver, raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "/"):
		return raw
	}
	u, err := r.Resolve(ctx, raw)
	if err != nil {
		return ""
	}
	return u
}

func errNotResolved(id fmt.Stringer) error {
	return fmt.Errorf("pin %s: %w: %w", id, errs.ErrNotFound, errs.ErrResolution)
}
