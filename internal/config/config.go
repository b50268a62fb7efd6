// Package config loads viewer settings from a TOML file with environment
// overrides, and persists the color-category blob alongside it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the viewer configuration.
type Config struct {
	Theme          string          `toml:"theme"`           // mocha only for now, reserved
	AnimationSpeed float64         `toml:"animation_speed"` // playback multiplier
	UnitSeconds    float64         `toml:"unit_seconds"`    // timeline unit per interpolation step
	Playback       PlaybackConfig  `toml:"playback"`
	Highlight      HighlightConfig `toml:"highlight"`
	MSA            MSAConfig       `toml:"msa"`
}

// PlaybackConfig holds playback defaults.
type PlaybackConfig struct {
	AutoPlay bool    `toml:"auto_play"` // start playing on load
	Speed    float64 `toml:"speed"`     // deprecated alias of animation_speed
}

// HighlightConfig holds highlighting defaults.
type HighlightConfig struct {
	PivotColor     string  `toml:"pivot_color"`
	MarkedColor    string  `toml:"marked_color"`
	DimFactor      float64 `toml:"dim_factor"`
	Monophyletic   bool    `toml:"monophyletic"`
	Dimming        bool    `toml:"dimming"`
	PivotEdges     bool    `toml:"pivot_edges"`
	MarkedSubtrees bool    `toml:"marked_subtrees"`
}

// MSAConfig holds alignment window defaults used when the payload does
// not carry them.
type MSAConfig struct {
	WindowSize int `toml:"window_size"`
	StepSize   int `toml:"step_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Theme:          "mocha",
		AnimationSpeed: 1.0,
		UnitSeconds:    1.0,
		Playback: PlaybackConfig{
			AutoPlay: false,
		},
		Highlight: HighlightConfig{
			PivotColor:     "#2196f3",
			MarkedColor:    "#e53935",
			DimFactor:      0.25,
			Monophyletic:   false,
			Dimming:        true,
			PivotEdges:     true,
			MarkedSubtrees: true,
		},
		MSA: MSAConfig{
			WindowSize: 100,
			StepSize:   20,
		},
	}
}

// DefaultPath returns the config file path, honoring PHYLOMOVIE_CONFIG
// and XDG_CONFIG_HOME.
func DefaultPath() string {
	if env := os.Getenv("PHYLOMOVIE_CONFIG"); env != "" {
		return env
	}
	return filepath.Join(Dir(), "config.toml")
}

// Dir returns the configuration directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "phylomovie")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "phylomovie")
}

// Load reads the config at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if cfg.Playback.Speed > 0 {
		cfg.AnimationSpeed = cfg.Playback.Speed
	}

	if speed := os.Getenv("PHYLOMOVIE_SPEED"); speed != "" {
		if v, err := strconv.ParseFloat(speed, 64); err == nil && v > 0 {
			cfg.AnimationSpeed = v
		}
	}
	if dim := os.Getenv("PHYLOMOVIE_DIM_FACTOR"); dim != "" {
		if v, err := strconv.ParseFloat(dim, 64); err == nil && v >= 0 && v <= 1 {
			cfg.Highlight.DimFactor = v
		}
	}
	if mono := os.Getenv("PHYLOMOVIE_MONOPHYLETIC"); mono != "" {
		cfg.Highlight.Monophyletic = mono == "1" || mono == "true"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AnimationSpeed <= 0 {
		return fmt.Errorf("animation_speed must be positive, got %v", c.AnimationSpeed)
	}
	if c.UnitSeconds <= 0 {
		return fmt.Errorf("unit_seconds must be positive, got %v", c.UnitSeconds)
	}
	if c.Highlight.DimFactor < 0 || c.Highlight.DimFactor > 1 {
		return fmt.Errorf("dim_factor must be in [0, 1], got %v", c.Highlight.DimFactor)
	}
	return nil
}
