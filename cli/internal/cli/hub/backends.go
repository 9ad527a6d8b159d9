package hub

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	agenthub "github.com/agenthub-dev/agenthub/go/pkg/hub"
)

// NewBackendsCmd creates the backends command group.
func NewBackendsCmd(load hubLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List configured backends and their connection state",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := load()
			if err != nil {
				return err
			}
			defer h.Close()
			return listBackends(h)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "connect [backend-id]",
		Short: "Launch a backend's server and wait for it to come up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := load()
			if err != nil {
				return err
			}
			defer h.Close()
			return connectBackend(cmd, h, args[0])
		},
	})

	return cmd
}

func listBackends(h *agenthub.Hub) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "NAME", "KIND", "STATE", "ADDRESS"})
	for _, a := range h.Adapters() {
		desc := a.Descriptor()
		conn := a.Connection()
		state := string(conn.State())
		if conn.LastError() != "" {
			state = state + ": " + conn.LastError()
		}
		t.AppendRow(table.Row{desc.ID, desc.DisplayName, desc.Kind, state, conn.Address()})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func connectBackend(cmd *cobra.Command, h *agenthub.Hub, id string) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" connecting %s...", id)
	s.Start()

	err := h.Connect(cmd.Context(), id)
	s.Stop()
	if err != nil {
		color.Red("✗ %s failed to connect: %v", id, err)
		return err
	}

	a, _ := h.Adapter(id)
	kind, _ := a.DetectKind(cmd.Context())
	color.Green("✓ %s connected at %s", id, a.Address())
	fmt.Printf("  detected kind: %s\n", strings.ToLower(string(kind)))
	return nil
}
