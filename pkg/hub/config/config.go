// Package config loads the hub's configuration from YAML and the
// environment, with defaults merged underneath whatever the file provides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/spf13/viper"

	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
)

// BackendConfig describes how to launch and reach one backend CLI server.
type BackendConfig struct {
	// Command is the executable that serves the backend locally. Args may
	// reference {host} and {port}, substituted at launch time.
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`

	// Port is the preferred listen port. A busy port is not an error: the
	// adapter advances to the next free one.
	Port int `mapstructure:"port" yaml:"port"`

	StartupTimeout time.Duration `mapstructure:"startupTimeout" yaml:"startupTimeout"`
}

// Config is the hub's full configuration.
type Config struct {
	// Listen is the bind address of the local ops surface.
	Listen string `mapstructure:"listen" yaml:"listen"`

	LogLevel string `mapstructure:"logLevel" yaml:"logLevel"`

	Backends map[string]BackendConfig `mapstructure:"backends" yaml:"backends"`
}

// Default returns the built-in configuration: the three known backend CLIs
// on their conventional ports.
func Default() *Config {
	return &Config{
		Listen:   "127.0.0.1:8190",
		LogLevel: "info",
		Backends: map[string]BackendConfig{
			"gemini": {
				Command:        "gemini",
				Args:           []string{"--experimental-acp", "--port", "{port}"},
				Port:           41242,
				StartupTimeout: 30 * time.Second,
			},
			"codex": {
				Command:        "codex",
				Args:           []string{"serve", "--port", "{port}"},
				Port:           41252,
				StartupTimeout: 30 * time.Second,
			},
			"claude": {
				Command:        "claude",
				Args:           []string{"serve", "--port", "{port}"},
				Port:           41262,
				StartupTimeout: 30 * time.Second,
			},
		},
	}
}

// Load reads configuration from the given file path, or from the standard
// locations when path is empty. Defaults fill anything the file leaves out;
// a missing file is not an error, an unreadable one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AGENTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agenthub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "agenthub"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return Default(), nil
		}
		if path != "" {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
					fmt.Sprintf("config file %s does not exist", path), err)
			}
		}
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to read config", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to parse config", err)
	}
	defaults := Default()
	if err := mergo.Merge(cfg, defaults); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to merge defaults", err)
	}
	// mergo does not descend into entries already present in cfg.Backends,
	// so a partially-specified backend must be merged against its default
	// one by one.
	for id, def := range defaults.Backends {
		b, ok := cfg.Backends[id]
		if !ok {
			continue
		}
		if err := mergo.Merge(&b, def); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
				fmt.Sprintf("failed to merge defaults for backend %q", id), err)
		}
		cfg.Backends[id] = b
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the hub cannot run with.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, "no backends configured", nil)
	}
	for id, b := range c.Backends {
		if b.Command == "" {
			return apperrors.New(apperrors.ErrCodeConfigInvalid,
				fmt.Sprintf("backend %q has no command", id), nil)
		}
		if b.Port < 1 || b.Port > 65535 {
			return apperrors.New(apperrors.ErrCodeConfigInvalid,
				fmt.Sprintf("backend %q has invalid port %d", id, b.Port), nil)
		}
	}
	return nil
}
