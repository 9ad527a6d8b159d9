package hub

import (
	"sort"

	"github.com/go-logr/logr"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/adapter"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/config"
)

// FromConfig assembles a Hub with one subprocess-backed adapter per
// configured backend. The three known backend ids get their full
// descriptors; anything else is registered as a generic backend and relies
// on agent-card discovery for its kind.
func FromConfig(cfg *config.Config, log logr.Logger) (*Hub, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var adapters []adapter.Adapter
	for _, id := range orderedBackendIDs(cfg) {
		bc := cfg.Backends[id]
		launcher := adapter.NewCommandLauncher(bc.Command, bc.Args, log)

		var a *adapter.LocalAdapter
		switch id {
		case "gemini":
			a = adapter.NewGemini(launcher, bc.Port, bc.StartupTimeout, log)
		case "codex":
			a = adapter.NewCodex(launcher, bc.Port, bc.StartupTimeout, log)
		case "claude":
			a = adapter.NewClaude(launcher, bc.Port, bc.StartupTimeout, log)
		default:
			a = adapter.NewLocalAdapter(adapter.Options{
				Descriptor: backend.Descriptor{
					ID:          id,
					DisplayName: id,
					Kind:        backend.KindGeneric,
					Capabilities: backend.Capabilities{
						Streaming: true,
					},
				},
				DefaultPort:    bc.Port,
				StartupTimeout: bc.StartupTimeout,
				Launcher:       launcher,
				Log:            log,
			})
		}
		adapters = append(adapters, a)
	}

	return New(adapters, Options{Log: log}), nil
}

// orderedBackendIDs pins the well-known backends first so listings are
// stable, with any extras alphabetically after them.
func orderedBackendIDs(cfg *config.Config) []string {
	known := []string{"gemini", "codex", "claude"}
	var out []string
	seen := make(map[string]bool)
	for _, id := range known {
		if _, ok := cfg.Backends[id]; ok {
			out = append(out, id)
			seen[id] = true
		}
	}
	var extras []string
	for id := range cfg.Backends {
		if !seen[id] {
			extras = append(extras, id)
		}
	}
	sort.Strings(extras)
	return append(out, extras...)
}
