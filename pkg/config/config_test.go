package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "iphone13", cfg.Pool.DeviceKey)
	assert.Equal(t, 10, cfg.Pool.MaxInstances)
	assert.True(t, cfg.Pool.AutoArrange)
	assert.Equal(t, 0.05, cfg.Automation.FollowTrialProbability)
	assert.Equal(t, 30*time.Second, cfg.Stagger.MinDelay)
	assert.Equal(t, 120*time.Second, cfg.Stagger.MaxDelay)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max instances", func(c *Config) { c.Pool.MaxInstances = 0 }},
		{"empty device key", func(c *Config) { c.Pool.DeviceKey = "" }},
		{"negative spacing", func(c *Config) { c.Pool.Spacing = -1 }},
		{"zero screen", func(c *Config) { c.Screen.Width = 0 }},
		{"follow probability above one", func(c *Config) { c.Automation.FollowTrialProbability = 1.5 }},
		{"inverted break range", func(c *Config) { c.Automation.BreakAfterMax = c.Automation.BreakAfterMin - 1 }},
		{"load timeout below settle", func(c *Config) { c.Automation.LoadTimeout = time.Second; c.Automation.SettleDelay = 2 * time.Second }},
		{"canvas fraction above one", func(c *Config) { c.Fingerprint.CanvasNoiseFraction = 1.1 }},
		{"inverted stagger range", func(c *Config) { c.Stagger.MaxDelay = c.Stagger.MinDelay - time.Second }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("TOKFLEET_DEVICE_KEY", "pixel6")
	t.Setenv("TOKFLEET_MAX_INSTANCES", "4")
	t.Setenv("TOKFLEET_AUTO_ARRANGE", "false")
	t.Setenv("TOKFLEET_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "pixel6", cfg.Pool.DeviceKey)
	assert.Equal(t, 4, cfg.Pool.MaxInstances)
	assert.False(t, cfg.Pool.AutoArrange)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("TOKFLEET_MAX_INSTANCES", "-3")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 10, cfg.Pool.MaxInstances)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Pool.MaxInstances = 7
	cfg.Pool.DeviceKey = "galaxys22"
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 7, loaded.Pool.MaxInstances)
	assert.Equal(t, "galaxys22", loaded.Pool.DeviceKey)
}

func TestLoadFromFileMissingPath(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool: ["), 0600))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}
