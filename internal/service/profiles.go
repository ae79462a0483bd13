package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/feed"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/repository"
	"github.com/and161185/pinboard/internal/storage"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// ProfileView is a user with their profile. Exists is false until the first save.
type ProfileView struct {
	User      model.User
	Profile   model.Profile
	AvatarURL string
	Exists    bool
}

// EditRequest is the edit-profile form. Avatar is optional.
type EditRequest struct {
	Description string
	Avatar      io.Reader
	AvatarName  string
	AvatarType  string
	AvatarSize  int64
}

// ProfileService defines profile reads and writes.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*ProfileView, error)
	// Finish saves the description and an optional absolute avatar URL.
	Finish(ctx context.Context, userID uuid.UUID, description, avatarURL string) (*model.Profile, error)
	// Edit saves the description and, when given, uploads a new avatar image.
	Edit(ctx context.Context, userID uuid.UUID, req EditRequest) (*model.Profile, error)
}

// ProfileServiceImpl implements ProfileService over the users and profiles tables.
type ProfileServiceImpl struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	store    storage.ObjectStore
	resolver feed.URLResolver
	log      *zap.Logger
	now      func() time.Time
}

// NewProfileService constructs ProfileService.
func NewProfileService(users repository.UserRepository, profiles repository.ProfileRepository, store storage.ObjectStore, r feed.URLResolver, log *zap.Logger) *ProfileServiceImpl {
	return &ProfileServiceImpl{users: users, profiles: profiles, store: store, resolver: r, log: log, now: time.Now}
}

// Get treats a missing profile row as an empty profile. Any other failure is a database error.
func (s *ProfileServiceImpl) Get(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading user: %w", errs.ErrDatabase, err)
	}
	view := &ProfileView{User: *u, Profile: model.Profile{UserID: userID}}
	p, err := s.profiles.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return view, nil
	case err != nil:
		return nil, fmt.Errorf("%w: loading profile: %w", errs.ErrDatabase, err)
	}
	view.Profile = *p
	view.Exists = true
	view.AvatarURL = feed.AvatarURL(ctx, s.resolver, p.AvatarURL)
	return view, nil
}

// Finish upserts the profile keyed by user id.
func (s *ProfileServiceImpl) Finish(ctx context.Context, userID uuid.UUID, description, avatarURL string) (*model.Profile, error) {
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL != "" && !strings.HasPrefix(avatarURL, "http") {
		return nil, fmt.Errorf("%w: avatar URL must be a valid URL (e.g., start with http or https)", errs.ErrValidation)
	}
	return s.save(ctx, userID, description, avatarURL)
}

// Edit accepts JPEG or PNG avatars, stored under avatars/ in the image bucket with overwrite allowed.
func (s *ProfileServiceImpl) Edit(ctx context.Context, userID uuid.UUID, req EditRequest) (*model.Profile, error) {
	avatar := ""
	current, err := s.profiles.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		avatar = current.AvatarURL
	case !errors.Is(err, errs.ErrNotFound):
		return nil, fmt.Errorf("%w: loading profile: %w", errs.ErrDatabase, err)
	}

	if req.Avatar != nil && req.AvatarSize > 0 {
		if req.AvatarType != "image/jpeg" && req.AvatarType != "image/png" {
			return nil, fmt.Errorf("%w: please select a valid JPG or PNG image", errs.ErrValidation)
		}
		path := fmt.Sprintf("avatars/%s-%d.%s", userID, s.now().UnixMilli(), extension(req.AvatarName, req.AvatarType))
		opts := storage.UploadOptions{ContentType: req.AvatarType, CacheControl: storage.CacheControlSeconds, Upsert: true}
		if err := s.store.Upload(ctx, path, req.Avatar, req.AvatarSize, opts); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, fmt.Errorf("%w: could not upload profile picture, the storage bucket does not exist", errs.ErrStorageSetup)
			}
			return nil, fmt.Errorf("%w: uploading avatar: %w", errs.ErrUpload, err)
		}
		u, err := s.resolver.Resolve(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("could not generate a public URL for the uploaded avatar: %w", err)
		}
		avatar = u
	}
	return s.save(ctx, userID, req.Description, avatar)
}

func (s *ProfileServiceImpl) save(ctx context.Context, userID uuid.UUID, description, avatarURL string) (*model.Profile, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	p := &model.Profile{ID: id, UserID: userID, Description: strings.TrimSpace(description), AvatarURL: avatarURL}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: saving profile: %w", errs.ErrDatabase, err)
	}
	s.log.Info("profile saved", zap.String("user_id", userID.String()))
	return p, nil
}
