// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/pinboard/internal/model"
	"github.com/gofrs/uuid/v5"
)

// IdentityRepository stores the credentials behind user accounts.
type IdentityRepository interface {
	// CreateWithUser inserts the identity and its users row in one transaction.
	CreateWithUser(ctx context.Context, id *model.Identity, u *model.User) error
	// GetByEmail loads an identity by its lower-cased email.
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	// GetByID loads an identity by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Identity, error)
}

// UserRepository reads public account rows.
type UserRepository interface {
	// Get loads a single user.
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByIDs loads the users whose IDs are listed. Missing IDs are absent from the map.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.User, error)
}

// ProfileRepository reads and writes the optional profile row of a user.
type ProfileRepository interface {
	// GetByUserID returns errs.ErrNotFound when the user has no profile yet.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	// GetByUserIDs loads profiles keyed by user ID.
	GetByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]model.Profile, error)
	// Upsert inserts or replaces the profile keyed by user ID.
	Upsert(ctx context.Context, p *model.Profile) error
}
