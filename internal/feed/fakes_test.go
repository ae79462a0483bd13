package feed

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type fakeImages struct {
	mu    sync.Mutex
	rows  []model.Image
	err   error
	calls int
}

var _ repository.ImageRepository = (*fakeImages)(nil)

func (f *fakeImages) List(context.Context) ([]model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.Image(nil), f.rows...), nil
}

func (f *fakeImages) ListByUser(_ context.Context, uid uuid.UUID) ([]model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []model.Image
	for _, r := range f.rows {
		if r.UserID == uid {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeImages) Get(_ context.Context, id uuid.UUID) (*model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			c := r
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeImages) Insert(_ context.Context, img *model.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append([]model.Image{*img}, f.rows...)
	return nil
}

func (f *fakeImages) Delete(_ context.Context, uid, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id && r.UserID == uid {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeUsers struct {
	rows  map[uuid.UUID]model.User
	err   error
	asked []uuid.UUID
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.User, error) {
	f.asked = ids
	if f.err != nil {
		return nil, f.err
	}
	out := map[uuid.UUID]model.User{}
	for _, id := range ids {
		if u, ok := f.rows[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeProfiles struct {
	rows  map[uuid.UUID]model.Profile
	err   error
	asked []uuid.UUID
}

func (f *fakeProfiles) GetByUserID(_ context.Context, uid uuid.UUID) (*model.Profile, error) {
	p, ok := f.rows[uid]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) GetByUserIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Profile, error) {
	f.asked = ids
	if f.err != nil {
		return nil, f.err
	}
	out := map[uuid.UUID]model.Profile{}
	for _, id := range ids {
		if p, ok := f.rows[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, p *model.Profile) error {
	f.rows[p.UserID] = *p
	return nil
}

// pathResolver resolves "<path>" to "https://cdn.test/<path>", fails for paths containing
// "broken" and blocks until ctx is done for paths containing "slow".
type pathResolver struct{}

func (pathResolver) Resolve(ctx context.Context, path string) (string, error) {
	switch {
	case strings.Contains(path, "broken"):
		return "", errs.ErrResolution
	case strings.Contains(path, "slow"):
		<-ctx.Done()
		return "", ctx.Err()
	case strings.Contains(path, "empty"):
		return "", nil
	}
	return "https://cdn.test/" + path, nil
}

func image(owner uuid.UUID, path, title string, age time.Duration) model.Image {
	return model.Image{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      owner,
		StoragePath: path,
		Title:       title,
		IsPublic:    true,
		CreatedAt:   time.Now().Add(-age),
	}
}
