// Package hub implements the agenthub CLI command tree: an interactive chat
// over the hub runtime, backend management, and the local ops server.
package hub

import (
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	agenthub "github.com/agenthub-dev/agenthub/go/pkg/hub"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/config"
)

// NewHubCmd creates the root hub command.
func NewHubCmd(log logr.Logger) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "agenthub",
		Short: "Multi-backend coding assistant hub",
		Long: `agenthub runs coding-assistant CLIs (Gemini CLI, Codex, Claude Code) as
local servers and talks to all of them through one normalized chat interface.

Available subcommands:
  chat        Chat with a backend interactively
  backends    List and connect backends
  serve       Run the local ops surface

Examples:
  agenthub chat gemini
  agenthub backends
  agenthub backends connect claude
  agenthub serve`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./agenthub.yaml)")

	loadHub := func() (*agenthub.Hub, *config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		h, err := agenthub.FromConfig(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return h, cfg, nil
	}

	cmd.AddCommand(NewChatCmd(loadHub))
	cmd.AddCommand(NewBackendsCmd(loadHub))
	cmd.AddCommand(NewServeCmd(loadHub, log))

	return cmd
}

// hubLoader defers hub construction until a subcommand actually runs, so
// flag parsing never launches processes.
type hubLoader func() (*agenthub.Hub, *config.Config, error)
