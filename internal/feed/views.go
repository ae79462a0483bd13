package feed

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/session"
	"github.com/dgraph-io/ristretto"
	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Page names a list owned by a page.
type Page string

const (
	PageFeed    Page = "feed"
	PageProfile Page = "profile"
)

// Views holds the assembled list each user's pages last loaded. Lists are changed by
// local surgery after mutations instead of refetching. A missing list means "load again".
type Views struct {
	cache *ristretto.Cache
	ttl   time.Duration
	log   *zap.Logger

	mu     sync.Mutex
	seq    uint64
	tokens map[uuid.UUID]map[uint64]context.CancelFunc
	pages  map[uuid.UUID]map[Page]struct{}
	// image id -> seq of its removal, kept while an older token is still open
	removed map[uuid.UUID]uint64
}

// NewViews creates the store. maxLists bounds the number of cached lists.
func NewViews(maxLists int64, ttl time.Duration, log *zap.Logger) (*Views, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxLists * 10,
		MaxCost:     maxLists,
		BufferItems: 64,
		// cost counts lists, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Views{
		cache:  cache,
		ttl:    ttl,
		log:    log,
		tokens:  make(map[uuid.UUID]map[uint64]context.CancelFunc),
		pages:   make(map[uuid.UUID]map[Page]struct{}),
		removed: make(map[uuid.UUID]uint64),
	}, nil
}

// Close releases the cache goroutines.
func (v *Views) Close() { v.cache.Close() }

func key(uid uuid.UUID, p Page) string { return uid.String() + "/" + string(p) }

// Begin opens a view token for uid. The returned context is cancelled by the release func
// or when the user signs out.
func (v *Views) Begin(ctx context.Context, uid uuid.UUID) (context.Context, func()) {
	ctx, _, release := v.begin(ctx, uid)
	return ctx, release
}

func (v *Views) begin(ctx context.Context, uid uuid.UUID) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(ctx)
	v.mu.Lock()
	v.seq++
	id := v.seq
	if v.tokens[uid] == nil {
		v.tokens[uid] = make(map[uint64]context.CancelFunc)
	}
	v.tokens[uid][id] = cancel
	v.mu.Unlock()

	return ctx, id, func() {
		v.mu.Lock()
		delete(v.tokens[uid], id)
		if len(v.tokens[uid]) == 0 {
			delete(v.tokens, uid)
		}
		v.pruneLocked()
		v.mu.Unlock()
		cancel()
	}
}

// Load runs fn under a view token and stores its result as the page's base list.
// A result produced after the token was cancelled is discarded and the cancellation error returned.
// Images removed while fn was running are dropped from its result.
func (v *Views) Load(ctx context.Context, uid uuid.UUID, p Page, fn func(context.Context) ([]model.FeedItem, error)) ([]model.FeedItem, error) {
	tctx, started, release := v.begin(ctx, uid)
	defer release()

	items, err := fn(tctx)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := tctx.Err(); err != nil {
		v.log.Debug("discarding cancelled load", zap.String("user_id", uid.String()), zap.String("page", string(p)))
		return nil, err
	}
	items = lo.Reject(items, func(it model.FeedItem, _ int) bool { return v.removed[it.ID] > started })
	v.setLocked(uid, p, items)
	return items, nil
}

// List returns the stored base list for the page.
func (v *Views) List(uid uuid.UUID, p Page) ([]model.FeedItem, bool) {
	val, ok := v.cache.Get(key(uid, p))
	if !ok {
		return nil, false
	}
	items, ok := val.([]model.FeedItem)
	return items, ok
}

// Search derives a filtered view from the current base list.
func (v *Views) Search(uid uuid.UUID, p Page, term string) ([]model.FeedItem, bool) {
	base, ok := v.List(uid, p)
	if !ok {
		return nil, false
	}
	return Search(base, term), true
}

// Remove drops the image from every stored list and from loads still in flight.
func (v *Views) Remove(imageID uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.tokens) > 0 {
		v.seq++
		v.removed[imageID] = v.seq
	}
	for uid, pages := range v.pages {
		for p := range pages {
			items, ok := v.List(uid, p)
			if !ok {
				continue
			}
			kept := lo.Reject(items, func(it model.FeedItem, _ int) bool { return it.ID == imageID })
			if len(kept) != len(items) {
				v.setLocked(uid, p, kept)
			}
		}
	}
}

// Prepend puts a freshly uploaded item at the top of the uploader's lists.
func (v *Views) Prepend(uid uuid.UUID, item model.FeedItem) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range []Page{PageFeed, PageProfile} {
		items, ok := v.List(uid, p)
		if !ok {
			continue
		}
		next := make([]model.FeedItem, 0, len(items)+1)
		next = append(next, item)
		next = append(next, items...)
		v.setLocked(uid, p, next)
	}
}

// CancelUser cancels every in-flight load of uid and forgets its lists.
func (v *Views) CancelUser(uid uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, cancel := range v.tokens[uid] {
		cancel()
	}
	delete(v.tokens, uid)
	for p := range v.pages[uid] {
		v.cache.Del(key(uid, p))
	}
	delete(v.pages, uid)
	v.cache.Wait()
}

// OnAuthEvent cancels a user's loads when they sign out.
func (v *Views) OnAuthEvent(e session.Event) {
	if e.Type == session.SignedOut && e.Session != nil {
		v.CancelUser(e.Session.UserID)
	}
}

// InFlight reports the number of open view tokens for uid.
func (v *Views) InFlight(uid uuid.UUID) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.tokens[uid])
}

// pruneLocked forgets removals that no open token can have fetched.
func (v *Views) pruneLocked() {
	if len(v.removed) == 0 {
		return
	}
	if len(v.tokens) == 0 {
		clear(v.removed)
		return
	}
	oldest := v.seq
	for _, toks := range v.tokens {
		for id := range toks {
			oldest = min(oldest, id)
		}
	}
	for img, at := range v.removed {
		if at < oldest {
			delete(v.removed, img)
		}
	}
}

func (v *Views) setLocked(uid uuid.UUID, p Page, items []model.FeedItem) {
	stored := append([]model.FeedItem(nil), items...)
	if !v.cache.SetWithTTL(key(uid, p), stored, 1, v.ttl) {
		v.log.Debug("view list dropped by cache", zap.String("user_id", uid.String()))
	}
	v.cache.Wait()
	if v.pages[uid] == nil {
		v.pages[uid] = make(map[Page]struct{})
	}
	v.pages[uid][p] = struct{}{}
}
