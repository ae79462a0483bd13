package httpserver

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/service"
	"github.com/and161185/pinboard/internal/session"
	"github.com/and161185/pinboard/internal/setup"
	"github.com/gofrs/uuid/v5"
)

var (
	alice = uuid.Must(uuid.FromString("aaaaaaaa-0000-0000-0000-000000000001"))
	bob   = uuid.Must(uuid.FromString("bbbbbbbb-0000-0000-0000-000000000002"))
)

type fakeSessions struct {
	mu        sync.Mutex
	byToken   map[string]*model.Session
	checkErr  error
	signIn    error
	signedOut []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]*model.Session{
		"alice-token": {AccessToken: "alice-token", TokenID: "j1", UserID: alice, Email: "alice@example.com", ExpiresAt: time.Now().Add(time.Hour)},
	}}
}

func (f *fakeSessions) SignUp(_ context.Context, req session.SignUpRequest) (*model.Session, error) {
	if req.Email == "taken@example.com" {
		return nil, errs.ErrAlreadyExists
	}
	s := &model.Session{AccessToken: "new-token", TokenID: "j2", UserID: bob, Email: req.Email, ExpiresAt: time.Now().Add(time.Hour)}
	f.mu.Lock()
	f.byToken[s.AccessToken] = s
	f.mu.Unlock()
	return s, nil
}

func (f *fakeSessions) SignIn(_ context.Context, email, password, _ string) (*model.Session, error) {
	if f.signIn != nil {
		return nil, f.signIn
	}
	if email != "alice@example.com" || password != "secret1" {
		return nil, errs.ErrUnauthorized
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byToken["alice-token"], nil
}

func (f *fakeSessions) SignOut(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, s.AccessToken)
	f.signedOut = append(f.signedOut, s.AccessToken)
	return nil
}

func (f *fakeSessions) Refresh(_ context.Context, s *model.Session) (*model.Session, error) { return s, nil }

func (f *fakeSessions) Current(_ context.Context, token string) (*model.Session, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byToken[token], nil
}

type fakeFeed struct {
	items []model.FeedItem
	err   error
	terms []string
}

func (f *fakeFeed) Feed(_ context.Context, _ uuid.UUID, term string, _ bool) ([]model.FeedItem, error) {
	f.terms = append(f.terms, term)
	return f.items, f.err
}

func (f *fakeFeed) Profile(_ context.Context, _, owner uuid.UUID) ([]model.FeedItem, error) {
	var out []model.FeedItem
	for _, it := range f.items {
		if it.Image.UserID == owner {
			out = append(out, it)
		}
	}
	return out, f.err
}

func (f *fakeFeed) Pin(_ context.Context, _, id uuid.UUID) (*model.FeedItem, error) {
	for _, it := range f.items {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, errs.ErrNotFound
}

func feedItem(n int, owner uuid.UUID, title string) model.FeedItem {
	id := uuid.Must(uuid.FromString("00000000-0000-0000-0000-00000000000" + string(rune('0'+n))))
	return model.FeedItem{
		ID: id, URL: "/media/images/" + id.String() + ".png", Alt: title, Title: title, Username: "user", Height: 300,
		Image: model.Image{ID: id, UserID: owner, Title: title, OriginalFilename: title + ".png"},
	}
}

type fakePins struct {
	uploads []service.UploadRequest
	body    []byte
	err     error
	deleted []uuid.UUID
}

func (f *fakePins) Upload(_ context.Context, s *model.Session, req service.UploadRequest) (*model.FeedItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	if req.File == nil || req.Title == "" {
		return nil, errs.ErrValidation
	}
	f.body, _ = io.ReadAll(req.File)
	f.uploads = append(f.uploads, req)
	it := feedItem(9, s.UserID, req.Title)
	return &it, nil
}

func (f *fakePins) Delete(_ context.Context, s *model.Session, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeProfiles struct {
	view     service.ProfileView
	finished []string
	err      error
}

func (f *fakeProfiles) Get(context.Context, uuid.UUID) (*service.ProfileView, error) {
	v := f.view
	return &v, nil
}

func (f *fakeProfiles) Finish(_ context.Context, _ uuid.UUID, description, avatarURL string) (*model.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.finished = append(f.finished, description+"|"+avatarURL)
	f.view.Exists = true
	f.view.Profile.Description = description
	return &f.view.Profile, nil
}

func (f *fakeProfiles) Edit(_ context.Context, id uuid.UUID, req service.EditRequest) (*model.Profile, error) {
	return f.Finish(context.Background(), id, req.Description, "")
}

type fakeSetup struct {
	err error
}

func (f *fakeSetup) Status() setup.Status {
	if f.err != nil {
		return setup.Status{Message: f.err.Error()}
	}
	return setup.Status{Ready: true}
}

func (f *fakeSetup) Ready(context.Context) error { return f.err }

func serviceView() service.ProfileView {
	return service.ProfileView{User: model.User{ID: alice, Username: "alice", FirstName: "Alice", LastName: "Smith"}}
}
