// Package config loads the bot configuration from a YAML file with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvToken is the environment variable that overrides the configured token.
const EnvToken = "WREN_DISCORD_TOKEN"

// Config is the bot configuration.
type Config struct {
	// Token is the bot token. Prefer setting it via WREN_DISCORD_TOKEN
	// (or a .env file) over the config file.
	Token string `yaml:"token"`

	// Prefix is the primary command prefix.
	Prefix string `yaml:"prefix"`

	// AdditionalPrefixes are extra literal prefixes, tried in order.
	AdditionalPrefixes []string `yaml:"additional_prefixes"`

	MentionAsPrefix         bool `yaml:"mention_as_prefix"`
	CaseInsensitiveCommands bool `yaml:"case_insensitive_commands"`
	ExecuteSelfMessages     bool `yaml:"execute_self_messages"`

	// Owners are user IDs allowed to run owners-only commands.
	Owners []string `yaml:"owners"`

	EditTracking EditTrackingConfig `yaml:"edit_tracking"`
	Typing       TypingConfig       `yaml:"typing"`

	Logging LoggingConfig `yaml:"logging"`
}

// EditTrackingConfig controls the edit tracker.
type EditTrackingConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionMinutes is how long exchanges stay tracked, measured from
	// the trigger's last edit.
	RetentionMinutes int `yaml:"retention_minutes"`
}

// Retention returns the retention window as a duration.
func (c EditTrackingConfig) Retention() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

// TypingConfig controls the typing-indicator broadcast.
type TypingConfig struct {
	Enabled bool `yaml:"enabled"`

	// DelayMs is how long a command must run before typing is broadcast.
	DelayMs int `yaml:"delay_ms"`
}

// Delay returns the broadcast delay as a duration.
func (c TypingConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration defaults: "!" prefix, mention prefix
// on, case-insensitive matching, 60 minute edit retention.
func Default() *Config {
	return &Config{
		Prefix:                  "!",
		MentionAsPrefix:         true,
		CaseInsensitiveCommands: true,
		EditTracking: EditTrackingConfig{
			Enabled:          true,
			RetentionMinutes: 60,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config file at path into the defaults. A missing file is
// fine when the token comes from the environment; a .env file is honored if
// present.
func Load(path string) (*Config, error) {
	// Best effort: absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env-only config
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if token := os.Getenv(EnvToken); token != "" {
		cfg.Token = token
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Token == "" {
		return fmt.Errorf("no bot token configured: set %s or the token field", EnvToken)
	}
	if cfg.EditTracking.Enabled && cfg.EditTracking.RetentionMinutes <= 0 {
		return fmt.Errorf("edit_tracking.retention_minutes must be positive, got %d", cfg.EditTracking.RetentionMinutes)
	}
	return nil
}
