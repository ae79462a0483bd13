package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of a pgx pool the limiter needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG stores attempt counters in the auth_limiter table.
type PG struct {
	q      Querier
	policy Policy
	now    func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q Querier, p Policy) *PG {
	return &PG{q: q, policy: p, now: time.Now}
}

// HashIP hashes the host part of a client address so raw addresses are never stored.
func HashIP(addr string) []byte {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	sum := sha256.Sum256([]byte(host))
	return sum[:]
}

// Allow reports whether the pair is currently unblocked.
func (l *PG) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE email=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, email, ipHash).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	if wait := blockedUntil.Sub(l.now()); wait > 0 {
		return false, wait, nil
	}
	return true, 0, nil
}

// Success resets the counters for the pair.
func (l *PG) Success(ctx context.Context, email string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 0, 'epoch', now())
ON CONFLICT (email, ip_hash)
DO UPDATE SET fail_count = 0, blocked_until = 'epoch', updated_at = now()`
	_, err := l.q.Exec(ctx, q, email, ipHash)
	return err
}

// Failure bumps the counter, restarting it when the previous failure is outside the window.
func (l *PG) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_limiter (email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', now())
ON CONFLICT (email, ip_hash) DO UPDATE
SET fail_count = CASE WHEN now() - auth_limiter.updated_at > $3::interval THEN 1 ELSE auth_limiter.fail_count + 1 END,
    updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, email, ipHash, l.policy.Window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.policy.MaxFails {
		return false, 0, nil
	}
	const upd = `UPDATE auth_limiter SET blocked_until = $3 WHERE email = $1 AND ip_hash = $2`
	if _, err := l.q.Exec(ctx, upd, email, ipHash, l.now().Add(l.policy.BlockFor)); err != nil {
		return false, 0, err
	}
	return true, l.policy.BlockFor, nil
}
