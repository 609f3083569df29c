package node

import (
	"testing"
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack/stacktest"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(2), cfg.LPNQueueLength)
	assert.Equal(t, 5*time.Second, cfg.LPNPollTimeout)
	assert.False(t, cfg.EnterLPNOnProvisioned)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name prefix", func(c *Config) { c.NamePrefix = "" }},
		{"queue too short", func(c *Config) { c.LPNQueueLength = 1 }},
		{"queue too long", func(c *Config) { c.LPNQueueLength = 129 }},
		{"poll timeout too short", func(c *Config) { c.LPNPollTimeout = 500 * time.Millisecond }},
		{"poll timeout too long", func(c *Config) { c.LPNPollTimeout = 100 * time.Hour }},
		{"no friend retry delay", func(c *Config) { c.FriendRetryDelay = 0 }},
		{"no reboot delay", func(c *Config) { c.RebootDelay = 0 }},
		{"no blink period", func(c *Config) { c.BlinkPeriod = 0 }},
		{"friend retry beyond timer range", func(c *Config) { c.FriendRetryDelay = 50 * 24 * time.Hour }},
		{"reboot delay beyond timer range", func(c *Config) { c.RebootDelay = MaxTimerDelay + time.Millisecond }},
		{"blink period beyond timer range", func(c *Config) { c.BlinkPeriod = 37 * time.Hour }},
		{"no models", func(c *Config) { c.MaxModels = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigAcceptsLongestTimerDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RebootDelay = MaxTimerDelay
	assert.NoError(t, cfg.Validate())
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoStack)

	_, err = New(stacktest.New(), Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewStartsBooting(t *testing.T) {
	n, err := New(stacktest.New(), DefaultConfig())
	assert.NoError(t, err)

	st := n.Status()
	assert.Equal(t, StateBooting, st.State)
	assert.False(t, st.Identity.Assigned())
	assert.Equal(t, ElementUnassigned, st.Identity.ElementIndex)
	assert.NotEmpty(t, n.SessionID())
}

func TestStateNames(t *testing.T) {
	for s := StateBooting; s <= StateFactoryReset; s++ {
		got, ok := ParseState(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseState("SLEEPING")
	assert.False(t, ok)
}
