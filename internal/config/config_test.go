package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)
	require.NoError(t, os.Chdir(dir))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "<defaults>", cfg.Source)
	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Millisecond, cfg.Typing.Delays().Char)
	assert.Equal(t, 80*time.Millisecond, cfg.Typing.TagDelay())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keysynth.yaml")
	content := `mode: PEER
server:
  addr: 127.0.0.1:9000
peer:
  stun_urls:
    - stun:stun.example.org:3478
typing:
  char_delay_ms: 25
  chord_delay_ms: 0
logging:
  level: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, ModePeer, cfg.Mode)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, int64(8<<20), cfg.Server.ReadLimit)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, cfg.Peer.STUNURLs)
	assert.Equal(t, 25*time.Millisecond, cfg.Typing.Delays().Char)
	assert.Equal(t, time.Duration(0), cfg.Typing.Delays().Chord)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keysynth.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keysynth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("typing:\n  speed: 3\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "daemon" }},
		{"addr", func(c *Config) { c.Server.Addr = " " }},
		{"read limit", func(c *Config) { c.Server.ReadLimit = 0 }},
		{"negative delay", func(c *Config) { c.Typing.CharDelayMS = -1 }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, test := range tests {
		cfg := Default()
		test.mutate(&cfg)
		assert.Error(t, cfg.Validate(), test.name)
	}
	assert.NoError(t, Default().Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{"MODE": " Peer ", "ADDR": ":9999"}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, ModePeer, cfg.Mode)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadDefersValidationToOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keysynth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: daemon\nlogging:\n  level: loud\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	env := map[string]string{"MODE": "server", "LOG_LEVEL": "warn"}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.NoError(t, cfg.Validate())
}
