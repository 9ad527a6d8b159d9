package adapter

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
)

// Default A2A ports for the local backend servers. When a default port is
// occupied the probe advances until a free one is found.
const (
	DefaultGeminiPort = 41242
	DefaultCodexPort  = 41252
	DefaultClaudePort = 41262
)

// GeminiDescriptor is the static description of the Gemini CLI backend.
func GeminiDescriptor() backend.Descriptor {
	return backend.Descriptor{
		ID:          "gemini",
		DisplayName: "Gemini CLI",
		Kind:        backend.KindGemini,
		Capabilities: backend.Capabilities{
			Streaming:         true,
			PushNotifications: true,
			OrderedHistory:    true,
		},
	}
}

// CodexDescriptor is the static description of the Codex CLI backend.
func CodexDescriptor() backend.Descriptor {
	return backend.Descriptor{
		ID:          "codex",
		DisplayName: "Codex CLI",
		Kind:        backend.KindCodex,
		Capabilities: backend.Capabilities{
			Streaming:      true,
			OrderedHistory: true,
		},
	}
}

// ClaudeDescriptor is the static description of the Claude Code backend.
func ClaudeDescriptor() backend.Descriptor {
	return backend.Descriptor{
		ID:          "claude",
		DisplayName: "Claude Code",
		Kind:        backend.KindClaude,
		Capabilities: backend.Capabilities{
			Streaming:      true,
			OrderedHistory: true,
			ToolAllowlist: []string{
				"Bash", "Read", "Write", "Edit", "Glob", "Grep", "WebSearch", "TodoWrite",
			},
		},
	}
}

// NewGemini returns the adapter variant for the Gemini CLI backend.
func NewGemini(launcher Launcher, defaultPort int, startupTimeout time.Duration, log logr.Logger) *LocalAdapter {
	return newVariant(GeminiDescriptor(), launcher, defaultPort, DefaultGeminiPort, startupTimeout, log)
}

// NewCodex returns the adapter variant for the Codex CLI backend.
func NewCodex(launcher Launcher, defaultPort int, startupTimeout time.Duration, log logr.Logger) *LocalAdapter {
	return newVariant(CodexDescriptor(), launcher, defaultPort, DefaultCodexPort, startupTimeout, log)
}

// NewClaude returns the adapter variant for the Claude Code backend.
func NewClaude(launcher Launcher, defaultPort int, startupTimeout time.Duration, log logr.Logger) *LocalAdapter {
	return newVariant(ClaudeDescriptor(), launcher, defaultPort, DefaultClaudePort, startupTimeout, log)
}

func newVariant(desc backend.Descriptor, launcher Launcher, port, fallbackPort int, startupTimeout time.Duration, log logr.Logger) *LocalAdapter {
	if port == 0 {
		port = fallbackPort
	}
	return NewLocalAdapter(Options{
		Descriptor:     desc,
		DefaultPort:    port,
		StartupTimeout: startupTimeout,
		Launcher:       launcher,
		Log:            log,
	})
}
