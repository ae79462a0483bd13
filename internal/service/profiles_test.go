package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/feed"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/storage"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
)

func newProfileFixture(t *testing.T) (*ProfileServiceImpl, *fakeProfileRepo, *storage.MemoryStore, uuid.UUID) {
	t.Helper()
	uid := uuid.Must(uuid.NewV4())
	users := &fakeUserRepo{rows: map[uuid.UUID]model.User{uid: {ID: uid, Username: "ann", FirstName: "Ann"}}}
	profiles := &fakeProfileRepo{rows: map[uuid.UUID]model.Profile{}}
	store := storage.NewMemoryStore("images", "")
	if err := store.CreateBucket(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	svc := NewProfileService(users, profiles, store, feed.NewStoreResolver(store, "https://cdn.test"), zaptest.NewLogger(t))
	svc.now = func() time.Time { return time.UnixMilli(42) }
	return svc, profiles, store, uid
}

func TestProfile_GetMissingRowIsEmptyState(t *testing.T) {
	t.Parallel()
	svc, profiles, _, uid := newProfileFixture(t)

	v, err := svc.Get(context.Background(), uid)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Exists || v.User.Username != "ann" || v.Profile.UserID != uid {
		t.Fatalf("view: %+v", v)
	}

	profiles.getErr = errBoom
	if _, err := svc.Get(context.Background(), uid); !errors.Is(err, errs.ErrDatabase) {
		t.Fatalf("want ErrDatabase, got %v", err)
	}
}

func TestProfile_FinishValidatesAvatarURL(t *testing.T) {
	t.Parallel()
	svc, profiles, _, uid := newProfileFixture(t)
	ctx := context.Background()

	if _, err := svc.Finish(ctx, uid, "hi", "ftp://x/a.png"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if _, err := svc.Finish(ctx, uid, " hi ", "https://x.test/a.png"); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	first := profiles.rows[uid]
	if first.Description != "hi" || first.AvatarURL != "https://x.test/a.png" {
		t.Fatalf("saved: %+v", first)
	}

	if _, err := svc.Finish(ctx, uid, "again", ""); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(profiles.rows) != 1 || profiles.rows[uid].ID != first.ID {
		t.Fatalf("upsert must keep one row per user")
	}
}

func TestProfile_EditUploadsAvatar(t *testing.T) {
	t.Parallel()
	svc, profiles, store, uid := newProfileFixture(t)
	ctx := context.Background()

	_, err := svc.Edit(ctx, uid, EditRequest{Description: "d", Avatar: strings.NewReader("gif"), AvatarName: "a.gif", AvatarType: "image/gif", AvatarSize: 3})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation for gif, got %v", err)
	}

	p, err := svc.Edit(ctx, uid, EditRequest{Description: "d", Avatar: strings.NewReader("jpg"), AvatarName: "me.jpg", AvatarType: "image/jpeg", AvatarSize: 3})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	path := "avatars/" + uid.String() + "-42.jpg"
	if _, ok := store.Get(path); !ok {
		t.Fatalf("avatar not stored at %s", path)
	}
	if p.AvatarURL != "https://cdn.test/images/"+path {
		t.Fatalf("avatar url: %s", p.AvatarURL)
	}

	// same millisecond overwrites
	if _, err := svc.Edit(ctx, uid, EditRequest{Avatar: strings.NewReader("png"), AvatarName: "me.jpg", AvatarType: "image/jpeg", AvatarSize: 3}); err != nil {
		t.Fatalf("upsert avatar: %v", err)
	}

	// no file keeps the current avatar
	p, err = svc.Edit(ctx, uid, EditRequest{Description: "only text"})
	if err != nil {
		t.Fatal(err)
	}
	if p.AvatarURL != profiles.rows[uid].AvatarURL || p.AvatarURL == "" {
		t.Fatalf("avatar lost: %+v", p)
	}
}

func TestProfile_EditMissingBucket(t *testing.T) {
	t.Parallel()
	uid := uuid.Must(uuid.NewV4())
	store := storage.NewMemoryStore("images", "")
	svc := NewProfileService(&fakeUserRepo{}, &fakeProfileRepo{rows: map[uuid.UUID]model.Profile{}}, store,
		feed.NewStoreResolver(store, ""), zaptest.NewLogger(t))

	_, err := svc.Edit(context.Background(), uid, EditRequest{Avatar: strings.NewReader("x"), AvatarName: "a.png", AvatarType: "image/png", AvatarSize: 1})
	if !errors.Is(err, errs.ErrStorageSetup) {
		t.Fatalf("want ErrStorageSetup, got %v", err)
	}
}
