package lockout

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGuard_Defaults(t *testing.T) {
	g := NewGuard(Config{})
	assert.Equal(t, DefaultThreshold, g.cfg.Threshold)
	assert.Equal(t, DefaultWindow, g.cfg.Window)
}

func TestGuard_LocksAfterThresholdForExactlyWindow(t *testing.T) {
	g := NewGuard(Config{Threshold: 5, Window: 15 * time.Minute})
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	u := &models.User{}

	for i := 1; i <= 4; i++ {
		require.NoError(t, g.Check(u, now))
		assert.False(t, g.Failure(u, now))
		assert.Equal(t, i, u.LoginAttempts)
	}
	require.NoError(t, g.Check(u, now))
	assert.True(t, g.Failure(u, now))
	require.NotNil(t, u.LockUntil)
	assert.Equal(t, now.Add(15*time.Minute), *u.LockUntil)

	assert.ErrorIs(t, g.Check(u, now), common.ErrAccountLocked)
	assert.ErrorIs(t, g.Check(u, now.Add(15*time.Minute-time.Nanosecond)), common.ErrAccountLocked)
	assert.Equal(t, 5, u.LoginAttempts, "locked checks consume no attempt")

	require.NoError(t, g.Check(u, now.Add(15*time.Minute)))
	assert.Nil(t, u.LockUntil)
	assert.Equal(t, 0, u.LoginAttempts, "elapsed lock restarts the counter")
}

func TestGuard_Success(t *testing.T) {
	g := NewGuard(Config{})
	until := time.Now()
	u := &models.User{LoginAttempts: 3, LockUntil: &until}

	g.Success(u)
	assert.Zero(t, u.LoginAttempts)
	assert.Nil(t, u.LockUntil)
}
