// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Identity is the authentication record behind a user. Credentials are never stored in plaintext.
type Identity struct {
	ID        uuid.UUID // PK, equals users.id
	Email     string    // unique, lower-cased
	PwdHash   []byte    // Argon2id(password, Salt)
	Salt      []byte    // per-identity salt
	CreatedAt time.Time
}

// Session is an authenticated identity together with its access token.
type Session struct {
	AccessToken string
	TokenID     string    // jti claim, unique per issued token
	ExpiresAt   time.Time // access token expiry
	UserID      uuid.UUID
	Email       string
}

// User is the public account row joined into feed and profile views.
type User struct {
	ID        uuid.UUID
	Username  string
	FirstName string
	LastName  string
}

// DisplayName joins first and last name, falling back to the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Profile is the optional, user-editable part of an account. Absent until first save.
type Profile struct {
	ID          uuid.UUID
	UserID      uuid.UUID // unique, 1:1 with users.id
	Description string
	AvatarURL   string // empty when unset; absolute URL or a path inside the image bucket
	UpdatedAt   time.Time
}

// Image is an uploaded pin. Immutable after insert except for deletion.
type Image struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	StoragePath      string // object key inside the image bucket
	OriginalFilename string
	Title            string
	Description      string
	IsPublic         bool
	CreatedAt        time.Time
}

// FeedItem is the display-ready form of an Image. Derived on every load, never persisted.
type FeedItem struct {
	ID          uuid.UUID
	URL         string
	Alt         string
	Title       string
	Description string
	Username    string
	AvatarURL   string
	Height      int
	Image       Image
}

// SetupResult is the shape reported by the storage setup RPCs.
type SetupResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BucketInfo describes the image bucket as seen by the object store.
type BucketInfo struct {
	Name   string
	Exists bool
	Public bool
}
