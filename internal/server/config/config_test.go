package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, time.Hour, c.VerificationTokenValidityDuration)
	assert.Equal(t, 5*time.Minute, c.ShortVerificationTokenValidityDuration)
	assert.Equal(t, 3*24*time.Hour, c.ResetTokenValidityDuration)
	assert.Equal(t, 5, c.LockoutThreshold)
	assert.Equal(t, 15*time.Minute, c.LockoutWindow)
	assert.Equal(t, time.Minute, c.VerificationCooldown)
	assert.Equal(t, 30*24*time.Hour, c.ShareValidityDuration)
	assert.Equal(t, time.Hour, c.SignedURLValidityDuration)
	assert.False(t, c.RevokeSessionsOnPasswordChange)

	secrets := map[string]bool{
		c.AccessTokenSecret: true, c.RefreshTokenSecret: true,
		c.VerificationTokenSecret: true, c.ResetTokenSecret: true,
	}
	assert.Len(t, secrets, 4, "default secrets must be distinct")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}
	t.Setenv("DOCVAULT_CONFIG", "")

	c := LoadConfig()
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestBrokers(t *testing.T) {
	c := Config{KafkaBrokers: " k1:9092, ,k2:9092 "}
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Brokers())

	c.KafkaBrokers = ""
	assert.Nil(t, c.Brokers())
}
