package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("requires signing key", func(t *testing.T) {
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("CUSTODIA_JWT_SIGNING_KEY", "test-key")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 30*time.Minute, cfg.DefaultExpectedTravel)
		assert.Equal(t, 5*time.Minute, cfg.ScheduleCacheTTL)
		assert.False(t, cfg.DeviceBindingBypass)
	})

	t.Run("bypass only on explicit true", func(t *testing.T) {
		t.Setenv("CUSTODIA_JWT_SIGNING_KEY", "test-key")
		t.Setenv("CUSTODIA_DEVICE_BINDING_BYPASS", "1")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.False(t, cfg.DeviceBindingBypass)

		t.Setenv("CUSTODIA_DEVICE_BINDING_BYPASS", "true")
		cfg, err = FromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.DeviceBindingBypass)
	})

	t.Run("rejects bad travel time", func(t *testing.T) {
		t.Setenv("CUSTODIA_JWT_SIGNING_KEY", "test-key")
		t.Setenv("CUSTODIA_EXPECTED_TRAVEL_MINUTES", "-5")

		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("parses overrides", func(t *testing.T) {
		t.Setenv("CUSTODIA_JWT_SIGNING_KEY", "test-key")
		t.Setenv("CUSTODIA_EXPECTED_TRAVEL_MINUTES", "45")
		t.Setenv("CUSTODIA_SCHEDULE_CACHE_TTL", "90s")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, 45*time.Minute, cfg.DefaultExpectedTravel)
		assert.Equal(t, 90*time.Second, cfg.ScheduleCacheTTL)
	})
}
