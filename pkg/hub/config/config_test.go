package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Contains(t, cfg.Backends, "gemini")
	assert.Contains(t, cfg.Backends, "codex")
	assert.Contains(t, cfg.Backends, "claude")
	for id, b := range cfg.Backends {
		assert.NotEmpty(t, b.Command, id)
		assert.Equal(t, 30*time.Second, b.StartupTimeout, id)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenthub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: "127.0.0.1:9999"
backends:
  gemini:
    port: 50000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)

	// The file's gemini overrides sit on top of the defaults: a backend
	// stanza that only sets the port keeps its default command and timeout.
	gemini := cfg.Backends["gemini"]
	assert.Equal(t, 50000, gemini.Port)
	assert.Equal(t, "gemini", gemini.Command)
	assert.Equal(t, 30*time.Second, gemini.StartupTimeout)
	assert.NotEmpty(t, gemini.Args)

	// Backends the file never mentions come from the defaults.
	assert.Contains(t, cfg.Backends, "codex")
	assert.Contains(t, cfg.Backends, "claude")
}

func TestLoadParsesDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenthub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backends:
  codex:
    command: codex
    startupTimeout: 45s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Backends["codex"].StartupTimeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
}

func TestValidateRejectsZeroPort(t *testing.T) {
	cfg := Default()
	cfg.Backends["custom"] = BackendConfig{Command: "custom-agent"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
	assert.Contains(t, err.Error(), "invalid port")
}

func TestValidateRejectsEmptyCommand(t *testing.T) {
	cfg := Default()
	b := cfg.Backends["gemini"]
	b.Command = ""
	cfg.Backends["gemini"] = b

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid))
}
