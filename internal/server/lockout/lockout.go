// Package lockout implements the failed-login lockout policy. State lives
// on the user record; the guard only computes transitions, so callers
// persist the result with the rest of the login outcome.
package lockout

import (
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
)

const (
	DefaultThreshold = 5
	DefaultWindow    = 15 * time.Minute
)

// Config holds the lockout policy.
type Config struct {
	Threshold int
	Window    time.Duration
}

type Guard struct {
	cfg Config
}

// NewGuard falls back to the defaults for non-positive values.
func NewGuard(cfg Config) *Guard {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Guard{cfg: cfg}
}

// Locked reports whether u is locked at now.
func (g *Guard) Locked(u *models.User, now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// Check returns common.ErrAccountLocked while the lock is active. A lock
// that has elapsed is cleared in place together with the attempt counter.
func (g *Guard) Check(u *models.User, now time.Time) error {
	if g.Locked(u, now) {
		return common.ErrAccountLocked
	}
	if u.LockUntil != nil {
		u.LockUntil = nil
		u.LoginAttempts = 0
	}
	return nil
}

// Failure records one failed attempt on u and reports whether it locked the
// account. Concurrent failures are last-write-wins.
func (g *Guard) Failure(u *models.User, now time.Time) bool {
	u.LoginAttempts++
	if u.LoginAttempts >= g.cfg.Threshold {
		until := now.Add(g.cfg.Window)
		u.LockUntil = &until
		return true
	}
	return false
}

// Success clears the lockout state of u.
func (g *Guard) Success(u *models.User) {
	u.LoginAttempts = 0
	u.LockUntil = nil
}
