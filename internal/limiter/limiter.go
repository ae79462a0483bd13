// Package limiter throttles sign-in attempts per (email, client address).
package limiter

import (
	"context"
	"time"
)

// Limiter controls sign-in attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a sign-in may be attempted and, if not, how long to wait.
	Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
	// Success clears the failure history after a successful sign-in.
	Success(ctx context.Context, email string, ipHash []byte) error
	// Failure records a failed attempt and reports whether it triggered a lockout.
	Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
}

// Policy is the sliding window configuration.
type Policy struct {
	Window   time.Duration // failures older than this restart the count
	MaxFails int           // failures within Window that trigger a lockout
	BlockFor time.Duration // lockout length
}

// DefaultPolicy allows five failures per fifteen minutes.
var DefaultPolicy = Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}

// Nop never throttles. Used when no database is configured for the limiter.
type Nop struct{}

func (Nop) Allow(context.Context, string, []byte) (bool, time.Duration, error)   { return true, 0, nil }
func (Nop) Success(context.Context, string, []byte) error                        { return nil }
func (Nop) Failure(context.Context, string, []byte) (bool, time.Duration, error) { return false, 0, nil }
