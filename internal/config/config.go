// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Executor ExecutorConfig `mapstructure:"executor" yaml:"executor"`
	Abort    AbortConfig    `mapstructure:"abort" yaml:"abort"`
	Content  ContentConfig  `mapstructure:"content" yaml:"content"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	// Session gets its marching orders from CLI flags, not the config file.
	Session SessionConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DetectorConfig tunes the remote visual-grounding client.
type DetectorConfig struct {
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	HealthTimeout  time.Duration `mapstructure:"health_timeout" yaml:"health_timeout"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial" yaml:"backoff_initial"`
	BackoffFactor  float64       `mapstructure:"backoff_factor" yaml:"backoff_factor"`
	Iterations     int           `mapstructure:"iterations" yaml:"iterations"`
}

// ResolverConfig controls acceptance of detection results.
type ResolverConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	ClampTolerance      int     `mapstructure:"clamp_tolerance" yaml:"clamp_tolerance"`
}

// ExecutorConfig tunes the physical input sequence.
type ExecutorConfig struct {
	MoveDuration   time.Duration `mapstructure:"move_duration" yaml:"move_duration"`
	SettleDelay    time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	FocusTimeout   time.Duration `mapstructure:"focus_timeout" yaml:"focus_timeout"`
	FocusPoll      time.Duration `mapstructure:"focus_poll" yaml:"focus_poll"`
	EventsPerSec   float64       `mapstructure:"events_per_sec" yaml:"events_per_sec"`
	VerifyRetries  int           `mapstructure:"verify_retries" yaml:"verify_retries"`
	VerifyInterval time.Duration `mapstructure:"verify_interval" yaml:"verify_interval"`
	Humanoid       bool          `mapstructure:"humanoid" yaml:"humanoid"`
}

// AbortConfig configures the emergency stop listener.
type AbortConfig struct {
	Hotkey       []string      `mapstructure:"hotkey" yaml:"hotkey"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ContentConfig points at the JSON API supplying the text to save.
type ContentConfig struct {
	PostsURL string        `mapstructure:"posts_url" yaml:"posts_url"`
	Limit    int           `mapstructure:"limit" yaml:"limit"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OutputConfig controls where session artifacts land.
type OutputConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	PreviewName string `mapstructure:"preview_name" yaml:"preview_name"`
}

// SessionMode selects between confirmation-gated and unattended runs.
type SessionMode string

const (
	ModeConfirm SessionMode = "confirm"
	ModeAuto    SessionMode = "auto"
)

// SessionConfig holds settings populated from CLI flags for a single run.
type SessionConfig struct {
	AppName        string
	Mode           SessionMode
	ScreenshotPath string
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "clickpilot")
	v.SetDefault("logger.log_file", "clickpilot.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Detector --
	v.SetDefault("detector.request_timeout", "60s")
	v.SetDefault("detector.health_timeout", "10s")
	v.SetDefault("detector.max_retries", 2)
	v.SetDefault("detector.backoff_initial", "1s")
	v.SetDefault("detector.backoff_factor", 2.0)
	v.SetDefault("detector.iterations", 1)

	// -- Resolver --
	v.SetDefault("resolver.confidence_threshold", 0.5)
	v.SetDefault("resolver.clamp_tolerance", 8)

	// -- Executor --
	v.SetDefault("executor.move_duration", "300ms")
	v.SetDefault("executor.settle_delay", "250ms")
	v.SetDefault("executor.focus_timeout", "5s")
	v.SetDefault("executor.focus_poll", "200ms")
	v.SetDefault("executor.events_per_sec", 4.0)
	v.SetDefault("executor.verify_retries", 3)
	v.SetDefault("executor.verify_interval", "400ms")
	v.SetDefault("executor.humanoid", true)

	// -- Abort --
	v.SetDefault("abort.hotkey", []string{"q", "ctrl", "shift"})
	v.SetDefault("abort.poll_interval", "100ms")

	// -- Content --
	v.SetDefault("content.posts_url", "https://dummyjson.com/posts")
	v.SetDefault("content.limit", 10)
	v.SetDefault("content.timeout", "10s")

	// -- Output --
	v.SetDefault("output.dir", "")
	v.SetDefault("output.preview_name", "detection_preview.png")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ResolveOutputDir expands the configured output directory, defaulting to a
// folder on the user's desktop when unset.
func (c *Config) ResolveOutputDir() (string, error) {
	if c.Output.Dir != "" {
		return homedir.Expand(c.Output.Dir)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, "Desktop", "clickpilot"), nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Detector.MaxRetries < 0 {
		return fmt.Errorf("detector.max_retries must not be negative")
	}
	if c.Detector.BackoffFactor < 1.0 {
		return fmt.Errorf("detector.backoff_factor must be at least 1.0")
	}
	if c.Detector.Iterations < 1 {
		return fmt.Errorf("detector.iterations must be at least 1")
	}
	if c.Resolver.ConfidenceThreshold < 0.0 || c.Resolver.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("resolver.confidence_threshold must be between 0.0 and 1.0")
	}
	if c.Resolver.ClampTolerance < 0 {
		return fmt.Errorf("resolver.clamp_tolerance must not be negative")
	}
	if c.Executor.FocusTimeout <= 0 {
		return fmt.Errorf("executor.focus_timeout must be a positive duration")
	}
	if c.Executor.EventsPerSec <= 0 {
		return fmt.Errorf("executor.events_per_sec must be positive")
	}
	if len(c.Abort.Hotkey) == 0 {
		return fmt.Errorf("abort.hotkey must name at least one key")
	}
	if c.Abort.PollInterval <= 0 || c.Abort.PollInterval > 200*time.Millisecond {
		return fmt.Errorf("abort.poll_interval must be positive and at most 200ms")
	}
	if c.Content.Limit <= 0 {
		return fmt.Errorf("content.limit must be positive")
	}
	return nil
}

// Validate checks the per-run session settings supplied via CLI flags.
func (s *SessionConfig) Validate() error {
	if s.AppName == "" {
		return fmt.Errorf("an application name to detect is required")
	}
	switch s.Mode {
	case ModeConfirm, ModeAuto:
	default:
		return fmt.Errorf("unknown session mode %q", s.Mode)
	}
	return nil
}
