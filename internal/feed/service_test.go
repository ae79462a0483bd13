package feed

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T, imgs *fakeImages) *Service {
	t.Helper()
	users := &fakeUsers{rows: map[uuid.UUID]model.User{}}
	profiles := &fakeProfiles{rows: map[uuid.UUID]model.Profile{}}
	return NewService(
		NewFetcher(imgs, users, profiles),
		NewAssembler(pathResolver{}, time.Second, zaptest.NewLogger(t)),
		newViews(t),
	)
}

func TestService_SearchReusesBaseUntilRefresh(t *testing.T) {
	t.Parallel()
	owner := uuid.Must(uuid.NewV4())
	imgs := &fakeImages{rows: []model.Image{image(owner, "1.png", "Red fox", 0), image(owner, "2.png", "Blue sky", 1)}}
	s := newService(t, imgs)
	ctx := context.Background()

	all, err := s.Feed(ctx, owner, "", false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	fox, err := s.Feed(ctx, owner, "FOX", false)
	require.NoError(t, err)
	require.Equal(t, []string{"Red fox"}, titles(fox))
	require.Equal(t, 1, imgs.calls)

	_, err = s.Feed(ctx, owner, "fox", true)
	require.NoError(t, err)
	require.Equal(t, 2, imgs.calls)
}

func TestService_FeedLoadSeesOtherUsersUploads(t *testing.T) {
	t.Parallel()
	ann, bob := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	old := image(ann, "1.png", "old", 1)
	imgs := &fakeImages{rows: []model.Image{old}}
	s := newService(t, imgs)
	ctx := context.Background()

	first, err := s.Feed(ctx, ann, "", false)
	require.NoError(t, err)
	require.Equal(t, []string{"old"}, titles(first))

	fresh := image(bob, "2.png", "fresh", 0)
	require.NoError(t, imgs.Insert(ctx, &fresh))
	s.Views().Prepend(bob, model.FeedItem{ID: fresh.ID, Title: fresh.Title})

	next, err := s.Feed(ctx, ann, "", false)
	require.NoError(t, err)
	require.Equal(t, []string{"fresh", "old"}, titles(next))

	// a search right after the load is derived from the new base
	found, err := s.Feed(ctx, ann, "fresh", false)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, 2, imgs.calls)
}

func TestService_DeleteSurgeryWithoutRefetch(t *testing.T) {
	t.Parallel()
	owner := uuid.Must(uuid.NewV4())
	first := image(owner, "1.png", "a cat", 0)
	imgs := &fakeImages{rows: []model.Image{first, image(owner, "2.png", "b cat", 1)}}
	s := newService(t, imgs)
	ctx := context.Background()

	_, err := s.Feed(ctx, owner, "", false)
	require.NoError(t, err)
	s.Views().Remove(first.ID)

	after, err := s.Feed(ctx, owner, "cat", false)
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.NotEqual(t, first.ID, after[0].ID)
	require.Equal(t, 1, imgs.calls)
}

func TestService_ProfileRefetchesEveryLoad(t *testing.T) {
	t.Parallel()
	ann := uuid.Must(uuid.NewV4())
	imgs := &fakeImages{rows: []model.Image{image(ann, "1.png", "one", 1)}}
	s := newService(t, imgs)
	ctx := context.Background()

	_, err := s.Profile(ctx, ann, ann)
	require.NoError(t, err)
	second := image(ann, "2.png", "two", 0)
	require.NoError(t, imgs.Insert(ctx, &second))

	got, err := s.Profile(ctx, ann, ann)
	require.NoError(t, err)
	require.Equal(t, []string{"two", "one"}, titles(got))
	require.Equal(t, 2, imgs.calls)
}

func TestService_ProfileAndPin(t *testing.T) {
	t.Parallel()
	ann, bob := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	mine := image(ann, "1.png", "mine", 0)
	broken := image(bob, "broken.png", "theirs", 1)
	s := newService(t, &fakeImages{rows: []model.Image{mine, broken}})
	ctx := context.Background()

	own, err := s.Profile(ctx, ann, ann)
	require.NoError(t, err)
	require.Len(t, own, 1)
	_, ok := s.Views().List(ann, PageProfile)
	require.True(t, ok)

	other, err := s.Profile(ctx, ann, bob)
	require.NoError(t, err)
	require.Empty(t, other)

	pin, err := s.Pin(ctx, bob, mine.ID)
	require.NoError(t, err)
	require.Equal(t, "mine", pin.Title)

	_, err = s.Pin(ctx, ann, broken.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
