// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist (the "no rows" condition).
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary sign-in lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken, object key taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrPermissionDenied indicates a row-level security rejection (SQLSTATE 42501).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation indicates bad input rejected before any backend call.
	ErrValidation = errors.New("validation")
)

// Failure classes surfaced to pages and API clients.
var (
	// ErrAuth covers session and credential failures. Blocks the dependent page.
	ErrAuth = errors.New("auth error")

	// ErrStorageSetup covers a missing or misconfigured bucket and failed setup RPCs. Blocks uploads.
	ErrStorageSetup = errors.New("storage setup error")

	// ErrUpload covers upload validation and write failures. Rendered inline on the form.
	ErrUpload = errors.New("upload error")

	// ErrDatabase covers row-level failures: RLS, constraints, unexpected not-found.
	ErrDatabase = errors.New("database error")

	// ErrResolution means no public URL could be produced for a stored object.
	ErrResolution = errors.New("resolution error")
)
