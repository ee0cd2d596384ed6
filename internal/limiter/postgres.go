package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of a pgx pool the limiter needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG is a PostgreSQL-backed limiter with a sliding failure window and lockout.
type PG struct {
	db       Querier
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(db Querier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{db: db, window: window, maxFails: maxFails, blockFor: blockFor, now: time.Now}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM login_attempts WHERE subject=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.db.QueryRow(ctx, q, subject, ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if now := l.now(); blockedUntil.After(now) {
			return false, blockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (subject, ip).
func (l *PG) Success(ctx context.Context, subject string, ipHash []byte) error {
	const q = `
DELETE FROM login_attempts
WHERE subject=$1 AND ip_hash=$2`
	_, err := l.db.Exec(ctx, q, subject, ipHash)
	return err
}

// Failure records a failed attempt. Attempts older than the window, or following an
// expired block, restart the count; reaching maxFails blocks the pair for blockFor.
func (l *PG) Failure(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO login_attempts (subject, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', $4)
ON CONFLICT (subject, ip_hash) DO UPDATE
SET
  fail_count = CASE
    WHEN $4::timestamptz - login_attempts.updated_at > $3::interval THEN 1
    WHEN login_attempts.blocked_until > 'epoch' AND login_attempts.blocked_until <= $4::timestamptz THEN 1
    ELSE login_attempts.fail_count + 1
  END,
  blocked_until = CASE
    WHEN login_attempts.blocked_until <= $4::timestamptz THEN 'epoch'
    ELSE login_attempts.blocked_until
  END,
  updated_at = $4
RETURNING fail_count`
	now := l.now()
	var fails int
	if err := l.db.QueryRow(ctx, q, subject, ipHash, l.window, now).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}

	const upd = `UPDATE login_attempts SET blocked_until=$3 WHERE subject=$1 AND ip_hash=$2`
	if _, err := l.db.Exec(ctx, upd, subject, ipHash, now.Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}
