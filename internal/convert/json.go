// Package convert maps domain values to the JSON shapes served under /api.
package convert

import (
	"time"

	"github.com/and161185/pinboard/internal/layout"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/service"
	"github.com/samber/lo"
)

// --- helpers ---

func ts(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// --- feed ---

// FeedItem is one card in the masonry grid.
type FeedItem struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Alt         string     `json:"alt"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Username    string     `json:"username"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Height      int        `json:"height"`
	OwnerID     string     `json:"owner_id"`
	Public      bool       `json:"public"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// ToFeedItem converts an assembled item.
func ToFeedItem(it model.FeedItem) FeedItem {
	return FeedItem{
		ID:          it.ID.String(),
		URL:         it.URL,
		Alt:         it.Alt,
		Title:       it.Title,
		Description: it.Description,
		Username:    it.Username,
		AvatarURL:   it.AvatarURL,
		Height:      it.Height,
		OwnerID:     it.Image.UserID.String(),
		Public:      it.Image.IsPublic,
		CreatedAt:   ts(it.Image.CreatedAt),
	}
}

// ToFeedItems converts a list; nil becomes an empty slice so it encodes as [].
func ToFeedItems(items []model.FeedItem) []FeedItem {
	return lo.Map(items, func(it model.FeedItem, _ int) FeedItem { return ToFeedItem(it) })
}

// Feed is the /api/feed response. Columns is set when the caller sent a viewport width.
type Feed struct {
	Items   []FeedItem   `json:"items"`
	Columns [][]FeedItem `json:"columns,omitempty"`
	Query   string       `json:"query,omitempty"`
}

// ToFeed converts a list and, for width > 0, arranges it into masonry columns.
func ToFeed(items []model.FeedItem, query string, width int) Feed {
	out := Feed{Items: ToFeedItems(items), Query: query}
	if width > 0 {
		out.Columns = layout.Distribute(out.Items, layout.Columns(width))
	}
	return out
}

// --- pin ---

// Pin is the detail view of a single image. Deletable is true for the owner.
type Pin struct {
	FeedItem
	OriginalFilename string `json:"original_filename"`
	Deletable        bool   `json:"deletable"`
}

// ToPin converts a pin as seen by viewer.
func ToPin(it model.FeedItem, viewer *model.Session) Pin {
	return Pin{
		FeedItem:         ToFeedItem(it),
		OriginalFilename: it.Image.OriginalFilename,
		Deletable:        viewer != nil && viewer.UserID == it.Image.UserID,
	}
}

// --- profile ---

// Profile is the /api/profile response.
type Profile struct {
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Description string     `json:"description"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Exists      bool       `json:"exists"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ToProfile converts a profile view.
func ToProfile(v service.ProfileView) Profile {
	return Profile{
		UserID:      v.User.ID.String(),
		Username:    v.User.Username,
		DisplayName: v.User.DisplayName(),
		FirstName:   v.User.FirstName,
		LastName:    v.User.LastName,
		Description: v.Profile.Description,
		AvatarURL:   v.AvatarURL,
		Exists:      v.Exists,
		UpdatedAt:   ts(v.Profile.UpdatedAt),
	}
}

// --- session ---

// Session is returned by sign in and sign up. Token is omitted from /api/auth/session.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToSession converts s, including the token only when withToken is set.
func ToSession(s *model.Session, withToken bool) Session {
	out := Session{UserID: s.UserID.String(), Email: s.Email, ExpiresAt: s.ExpiresAt.UTC()}
	if withToken {
		out.Token = s.AccessToken
	}
	return out
}

// --- errors ---

// Error is the body of every non-2xx API response.
type Error struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
