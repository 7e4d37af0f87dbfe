package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the tokfleet controller
type Config struct {
	// Instance pool settings
	Pool PoolConfig `yaml:"pool" json:"pool"`

	// Usable screen area for grid placement
	Screen ScreenConfig `yaml:"screen" json:"screen"`

	// Behavioral automation tuning
	Automation AutomationConfig `yaml:"automation" json:"automation"`

	// Fingerprint randomization tuning
	Fingerprint FingerprintConfig `yaml:"fingerprint" json:"fingerprint"`

	// Staggered bulk start timing
	Stagger StaggerConfig `yaml:"stagger" json:"stagger"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PoolConfig holds instance pool settings
type PoolConfig struct {
	DeviceKey       string `yaml:"device_key" json:"device_key"`
	InstancesPerRow int    `yaml:"instances_per_row" json:"instances_per_row"`
	Spacing         int    `yaml:"spacing" json:"spacing"`
	MaxInstances    int    `yaml:"max_instances" json:"max_instances"`
	AutoArrange     bool   `yaml:"auto_arrange" json:"auto_arrange"`
}

// ScreenConfig describes the usable work area used for packed placement
type ScreenConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// AutomationConfig holds behavioral automation tuning knobs
type AutomationConfig struct {
	// FollowTrialProbability caps follow attempts per tick even when
	// follows are enabled for the account
	FollowTrialProbability float64 `yaml:"follow_trial_probability" json:"follow_trial_probability"`

	// Videos watched between human-like breaks, drawn per break
	BreakAfterMin int `yaml:"break_after_min" json:"break_after_min"`
	BreakAfterMax int `yaml:"break_after_max" json:"break_after_max"`

	// Duration of a break, drawn per break
	BreakPauseMin time.Duration `yaml:"break_pause_min" json:"break_pause_min"`
	BreakPauseMax time.Duration `yaml:"break_pause_max" json:"break_pause_max"`

	// Settle delay after an instance reports ready, and the fallback
	// ceiling when the ready signal never fires
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
	LoadTimeout time.Duration `yaml:"load_timeout" json:"load_timeout"`
}

// FingerprintConfig holds fingerprint randomization tuning knobs
type FingerprintConfig struct {
	// ViewportJitter is the maximum per-axis viewport offset in pixels
	ViewportJitter int `yaml:"viewport_jitter" json:"viewport_jitter"`

	// CanvasNoiseFraction is the fraction of canvas pixels perturbed
	CanvasNoiseFraction float64 `yaml:"canvas_noise_fraction" json:"canvas_noise_fraction"`

	// CanvasNoiseAmplitude is the per-channel perturbation in [-n, +n]
	CanvasNoiseAmplitude int `yaml:"canvas_noise_amplitude" json:"canvas_noise_amplitude"`
}

// StaggerConfig holds the randomized delay range between bulk starts
type StaggerConfig struct {
	MinDelay time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			DeviceKey:       "iphone13",
			InstancesPerRow: 3,
			Spacing:         20,
			MaxInstances:    10,
			AutoArrange:     true,
		},
		Screen: ScreenConfig{
			Width:  1920,
			Height: 1080,
		},
		Automation: AutomationConfig{
			FollowTrialProbability: 0.05,
			BreakAfterMin:          5,
			BreakAfterMax:          15,
			BreakPauseMin:          10 * time.Second,
			BreakPauseMax:          60 * time.Second,
			SettleDelay:            2 * time.Second,
			LoadTimeout:            10 * time.Second,
		},
		Fingerprint: FingerprintConfig{
			ViewportJitter:       5,
			CanvasNoiseFraction:  0.01,
			CanvasNoiseAmplitude: 1,
		},
		Stagger: StaggerConfig{
			MinDelay: 30 * time.Second,
			MaxDelay: 120 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if deviceKey := os.Getenv("TOKFLEET_DEVICE_KEY"); deviceKey != "" {
		c.Pool.DeviceKey = deviceKey
	}
	if maxInstances := os.Getenv("TOKFLEET_MAX_INSTANCES"); maxInstances != "" {
		var val int
		fmt.Sscanf(maxInstances, "%d", &val)
		if val > 0 {
			c.Pool.MaxInstances = val
		}
	}
	if perRow := os.Getenv("TOKFLEET_INSTANCES_PER_ROW"); perRow != "" {
		var val int
		fmt.Sscanf(perRow, "%d", &val)
		if val > 0 {
			c.Pool.InstancesPerRow = val
		}
	}
	if autoArrange := os.Getenv("TOKFLEET_AUTO_ARRANGE"); autoArrange != "" {
		c.Pool.AutoArrange = strings.ToLower(autoArrange) == "true"
	}
	if screenWidth := os.Getenv("TOKFLEET_SCREEN_WIDTH"); screenWidth != "" {
		var val int
		fmt.Sscanf(screenWidth, "%d", &val)
		if val > 0 {
			c.Screen.Width = val
		}
	}
	if screenHeight := os.Getenv("TOKFLEET_SCREEN_HEIGHT"); screenHeight != "" {
		var val int
		fmt.Sscanf(screenHeight, "%d", &val)
		if val > 0 {
			c.Screen.Height = val
		}
	}
	if logLevel := os.Getenv("TOKFLEET_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("TOKFLEET_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".tokfleet.yaml",
		".tokfleet.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "tokfleet", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "tokfleet", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".tokfleet.yaml"),
		filepath.Join(os.Getenv("HOME"), ".tokfleet.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Validate pool settings
	if c.Pool.MaxInstances <= 0 {
		errs = append(errs, errors.New("max instances must be positive"))
	}
	if c.Pool.InstancesPerRow <= 0 {
		errs = append(errs, errors.New("instances per row must be positive"))
	}
	if c.Pool.Spacing < 0 {
		errs = append(errs, errors.New("spacing cannot be negative"))
	}
	if c.Pool.DeviceKey == "" {
		errs = append(errs, errors.New("device key is required"))
	}

	// Validate screen area
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		errs = append(errs, errors.New("screen dimensions must be positive"))
	}

	// Validate automation tuning
	if c.Automation.FollowTrialProbability <= 0 || c.Automation.FollowTrialProbability > 1 {
		errs = append(errs, errors.New("follow trial probability must be in (0, 1]"))
	}
	if c.Automation.BreakAfterMin <= 0 || c.Automation.BreakAfterMax < c.Automation.BreakAfterMin {
		errs = append(errs, errors.New("break-after range is invalid"))
	}
	if c.Automation.BreakPauseMin <= 0 || c.Automation.BreakPauseMax < c.Automation.BreakPauseMin {
		errs = append(errs, errors.New("break-pause range is invalid"))
	}
	if c.Automation.SettleDelay <= 0 {
		errs = append(errs, errors.New("settle delay must be positive"))
	}
	if c.Automation.LoadTimeout <= c.Automation.SettleDelay {
		errs = append(errs, errors.New("load timeout must exceed settle delay"))
	}

	// Validate fingerprint tuning
	if c.Fingerprint.ViewportJitter < 0 {
		errs = append(errs, errors.New("viewport jitter cannot be negative"))
	}
	if c.Fingerprint.CanvasNoiseFraction < 0 || c.Fingerprint.CanvasNoiseFraction > 1 {
		errs = append(errs, errors.New("canvas noise fraction must be in [0, 1]"))
	}

	// Validate stagger range
	if c.Stagger.MinDelay <= 0 || c.Stagger.MaxDelay < c.Stagger.MinDelay {
		errs = append(errs, errors.New("stagger delay range is invalid"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tokfleet.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
