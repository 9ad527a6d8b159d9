package normalize

import (
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/stream"
)

// Strategy converts one backend family's raw events into canonical blocks.
// Implementations share a convState with the fallback strategy so that tool
// calls announced through one path can be resolved through another.
type Strategy interface {
	OnStatusUpdate(ev *protocol.TaskStatusUpdateEvent) []Block
	OnArtifactUpdate(ev *protocol.TaskArtifactUpdateEvent) []Block
	OnMessage(msg *protocol.Message) []Block
}

// Normalizer owns one conversation's normalization pipeline. It is not safe
// for concurrent use; a conversation's events arrive in order on one stream.
type Normalizer struct {
	kind     backend.Kind
	strategy Strategy
}

// New builds a normalizer for the given backend kind. Unknown kinds get the
// structural fallback so they still degrade to readable output.
func New(kind backend.Kind) *Normalizer {
	state := newConvState()
	fallback := &fallbackStrategy{state: state}
	var strategy Strategy
	switch kind {
	case backend.KindGemini:
		strategy = &geminiStrategy{state: state, fallback: fallback}
	case backend.KindCodex:
		strategy = &codexStrategy{state: state, fallback: fallback}
	case backend.KindClaude:
		strategy = &claudeStrategy{state: state, fallback: fallback}
	default:
		strategy = fallback
	}
	return &Normalizer{kind: kind, strategy: strategy}
}

// Kind reports the backend kind the normalizer was built for.
func (n *Normalizer) Kind() backend.Kind { return n.kind }

// Normalize maps one raw event to zero or more canonical blocks. Task
// snapshots carry no renderable content and normalize to nothing.
func (n *Normalizer) Normalize(ev stream.RawEvent) []Block {
	switch {
	case ev.Status != nil:
		return n.strategy.OnStatusUpdate(ev.Status)
	case ev.Artifact != nil:
		return n.strategy.OnArtifactUpdate(ev.Artifact)
	case ev.Message != nil:
		return n.strategy.OnMessage(ev.Message)
	}
	return nil
}

// artifactBlock is the shared artifact translation: every strategy treats
// artifact updates structurally.
func artifactBlock(ev *protocol.TaskArtifactUpdateEvent) []Block {
	parts := make([]string, 0, len(ev.Artifact.Parts))
	for _, p := range ev.Artifact.Parts {
		if text := renderPart(p); text != "" {
			parts = append(parts, text)
		}
	}
	update := &ArtifactUpdate{
		ArtifactID: ev.Artifact.ArtifactID,
		Parts:      parts,
		Append:     ev.Append != nil && *ev.Append,
	}
	if ev.Artifact.Name != nil {
		update.Name = *ev.Artifact.Name
	}
	return []Block{{Type: BlockArtifact, Artifact: update}}
}
