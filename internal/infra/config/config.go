// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Assets   AssetsConfig   `yaml:"assets"`
	Game     GameConfig     `yaml:"game"`
	Audio    AudioConfig    `yaml:"audio"`
	Messages MessagesConfig `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr         string      `yaml:"addr" default:":8080"`
	ControlToken string      `yaml:"control_token"`
	Hooks        HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Output string `yaml:"output" default:"stdout"`
}

// AssetsConfig describes where the audio files live.
type AssetsConfig struct {
	Root       string `yaml:"root" default:"assets/music" validate:"required"`
	Extension  string `yaml:"extension" default:"mp3" validate:"required"`
	Randomiser string `yaml:"randomiser" default:"randomiser" validate:"required"`
	Cells      string `yaml:"cells" default:"cells" validate:"required"`
	Full       string `yaml:"full" default:"full" validate:"required"`
}

// GameConfig represents the dice game configuration.
type GameConfig struct {
	Positions int      `yaml:"positions" default:"12" validate:"gte=1,lte=99"`
	Labels    []string `yaml:"labels" validate:"required,min=1,dive,len=1,alpha"`
	// Enabled lists the groups enabled at startup; empty enables every label.
	Enabled     []string `yaml:"enabled" validate:"dive,len=1,alpha"`
	Seed        uint64   `yaml:"seed"`
	EventBuffer int      `yaml:"event_buffer" default:"64" validate:"gte=1"`
}

// AudioConfig selects the audio backend.
type AudioConfig struct {
	Backend  string         `yaml:"backend" default:"speaker" validate:"oneof=speaker silent"`
	Settings map[string]any `yaml:"settings"`
}

// MessagesConfig represents user-facing control labels.
type MessagesConfig struct {
	Play       string `yaml:"play" default:"Play Minuetto"`
	Stop       string `yaml:"stop" default:"Stop Minuetto"`
	PlayAgain  string `yaml:"play_again" default:"Play Again!"`
	StopPiece  string `yaml:"stop_piece" default:"Stop"`
	LoadFailed string `yaml:"load_failed" default:"Unable to play"`
}

var defaultLabels = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses, defaults and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.overrideFromEnv()
	// defaults.Set only fails on malformed struct tags.
	_ = cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if len(c.Game.Labels) == 0 {
		c.Game.Labels = append([]string(nil), defaultLabels...)
	}
	if c.Audio.Settings == nil {
		c.Audio.Settings = make(map[string]any)
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DICEBOX_ASSET_ROOT"); v != "" {
		c.Assets.Root = v
	}
	if v := os.Getenv("DICEBOX_CONTROL_TOKEN"); v != "" {
		c.Server.ControlToken = v
	}
	if v := os.Getenv("DICEBOX_AUDIO_BACKEND"); v != "" {
		c.Audio.Backend = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateEnabled(); err != nil {
		return err
	}

	return nil
}

// validateEnabled checks that every enabled group is a configured label.
func (c *Config) validateEnabled() error {
	known := make(map[string]bool, len(c.Game.Labels))
	for _, l := range c.Game.Labels {
		known[strings.ToLower(l)] = true
	}
	for _, e := range c.Game.Enabled {
		if !known[strings.ToLower(e)] {
			return errors.Newf("enabled group %q is not one of the configured labels %v", e, c.Game.Labels)
		}
	}
	return nil
}

// EnabledLabels returns the groups enabled at startup.
func (c *Config) EnabledLabels() []string {
	if len(c.Game.Enabled) == 0 {
		return c.Game.Labels
	}
	return c.Game.Enabled
}

// IsControlProtected reports whether mutating RPCs require a control token.
func (c *Config) IsControlProtected() bool {
	return c.Server.ControlToken != ""
}
