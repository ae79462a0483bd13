package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/repository"
	"github.com/and161185/pinboard/internal/storage"
	"github.com/gofrs/uuid/v5"
)

type fakeImageRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]model.Image
	insertErr error
	deleteErr error
	inserts   int
}

var _ repository.ImageRepository = (*fakeImageRepo)(nil)

func newFakeImageRepo() *fakeImageRepo { return &fakeImageRepo{rows: map[uuid.UUID]model.Image{}} }

func (f *fakeImageRepo) List(context.Context) ([]model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Image, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeImageRepo) ListByUser(ctx context.Context, uid uuid.UUID) ([]model.Image, error) {
	all, _ := f.List(ctx)
	var out []model.Image
	for _, r := range all {
		if r.UserID == uid {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeImageRepo) Get(_ context.Context, id uuid.UUID) (*model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &r, nil
}

func (f *fakeImageRepo) Insert(_ context.Context, img *model.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return f.insertErr
	}
	if img.ID == uuid.Nil {
		img.ID = uuid.Must(uuid.NewV4())
	}
	img.CreatedAt = time.Now()
	f.rows[img.ID] = *img
	return nil
}

func (f *fakeImageRepo) Delete(_ context.Context, uid, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	r, ok := f.rows[id]
	if !ok || r.UserID != uid {
		return errs.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeUserRepo struct{ rows map[uuid.UUID]model.User }

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.User, error) {
	out := map[uuid.UUID]model.User{}
	for _, id := range ids {
		if u, ok := f.rows[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeProfileRepo struct {
	rows      map[uuid.UUID]model.Profile
	getErr    error
	upsertErr error
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, uid uuid.UUID) (*model.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.rows[uid]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfileRepo) GetByUserIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Profile, error) {
	out := map[uuid.UUID]model.Profile{}
	for _, id := range ids {
		if p, ok := f.rows[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) Upsert(_ context.Context, p *model.Profile) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if old, ok := f.rows[p.UserID]; ok {
		p.ID = old.ID
	}
	p.UpdatedAt = time.Now()
	f.rows[p.UserID] = *p
	return nil
}

type fakeReady struct {
	err   error
	calls int
}

func (r *fakeReady) Ready(context.Context) error { r.calls++; return r.err }

// flakyStore fails removals while removeErr is set.
type flakyStore struct {
	*storage.MemoryStore
	removeErr error
	removes   int
}

func (s *flakyStore) Remove(ctx context.Context, paths ...string) error {
	s.removes++
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.MemoryStore.Remove(ctx, paths...)
}

var errBoom = errors.New("boom")
