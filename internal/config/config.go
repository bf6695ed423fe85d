// Package config loads keysynth settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"keysynth/input"
	"keysynth/internal/logging"
	"keysynth/internal/tag"
)

const DefaultFileName = "keysynth.yaml"

// Modes accepted for the long-running transports.
const (
	ModeServer = "server"
	ModePeer   = "peer"
)

type Config struct {
	Mode    string        `yaml:"mode"`
	Server  ServerConfig  `yaml:"server"`
	Peer    PeerConfig    `yaml:"peer"`
	Typing  TypingConfig  `yaml:"typing"`
	Logging LoggingConfig `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadLimit           int64  `yaml:"read_limit"`
	PongTimeoutSeconds  int    `yaml:"pong_timeout_seconds"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_seconds"`
}

type PeerConfig struct {
	STUNURLs           []string `yaml:"stun_urls"`
	OpenTimeoutSeconds int      `yaml:"open_timeout_seconds"`
}

// TypingConfig holds the fixed delays between injected events.
type TypingConfig struct {
	CharDelayMS  int `yaml:"char_delay_ms"`
	ChordDelayMS int `yaml:"chord_delay_ms"`
	HoldDelayMS  int `yaml:"hold_delay_ms"`
	TagDelayMS   int `yaml:"tag_delay_ms"`
	StartDelayMS int `yaml:"start_delay_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Mode: ModeServer,
		Server: ServerConfig{
			Addr:                ":8080",
			ReadLimit:           8 << 20,
			PongTimeoutSeconds:  60,
			ShutdownTimeoutSecs: 5,
		},
		Peer: PeerConfig{
			STUNURLs:           []string{"stun:stun.l.google.com:19302"},
			OpenTimeoutSeconds: 30,
		},
		Typing: TypingConfig{
			CharDelayMS:  10,
			ChordDelayMS: 10,
			TagDelayMS:   int(tag.DefaultDelay / time.Millisecond),
			StartDelayMS: 100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./keysynth.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	file, err := os.Open(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()
	return cfg, nil
}

// ApplyEnv overlays the MODE, ADDR and LOG_LEVEL environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("MODE")); v != "" {
		c.Mode = v
	}
	if v := strings.TrimSpace(getenv("ADDR")); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	c.normalize()
}

func (c *Config) normalize() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeServer, ModePeer:
	default:
		return fmt.Errorf("mode %q must be %q or %q", c.Mode, ModeServer, ModePeer)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.ReadLimit <= 0 {
		return errors.New("server.read_limit must be positive")
	}
	if c.Server.PongTimeoutSeconds <= 0 {
		return errors.New("server.pong_timeout_seconds must be positive")
	}
	if c.Server.ShutdownTimeoutSecs <= 0 {
		return errors.New("server.shutdown_timeout_seconds must be positive")
	}
	if c.Peer.OpenTimeoutSeconds <= 0 {
		return errors.New("peer.open_timeout_seconds must be positive")
	}
	t := c.Typing
	if t.CharDelayMS < 0 || t.ChordDelayMS < 0 || t.HoldDelayMS < 0 || t.TagDelayMS < 0 || t.StartDelayMS < 0 {
		return errors.New("typing delays must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Delays converts the typing section into keyboard delays.
func (t TypingConfig) Delays() input.Delays {
	return input.Delays{
		Char:  ms(t.CharDelayMS),
		Chord: ms(t.ChordDelayMS),
		Hold:  ms(t.HoldDelayMS),
	}
}

func (t TypingConfig) TagDelay() time.Duration { return ms(t.TagDelayMS) }

func (t TypingConfig) StartDelay() time.Duration { return ms(t.StartDelayMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
