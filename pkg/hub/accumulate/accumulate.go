// Package accumulate folds normalized block deltas into renderable chat
// messages and tracks the lifecycle of a conversation turn.
package accumulate

import (
	"strings"

	"github.com/google/uuid"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/normalize"
)

// Artifact is the accumulated form of a backend artifact.
type Artifact struct {
	ArtifactID string   `json:"artifact_id"`
	Name       string   `json:"name,omitempty"`
	Parts      []string `json:"parts"`
}

// MessageBlock is one accumulated block of a chat message.
type MessageBlock struct {
	ID          string               `json:"id"`
	Type        normalize.BlockType  `json:"type"`
	Content     string               `json:"content,omitempty"`
	IsStreaming bool                 `json:"is_streaming"`
	Meta        *normalize.BlockMeta `json:"meta,omitempty"`
	Artifact    *Artifact            `json:"artifact,omitempty"`
}

// ChatMessage is one assistant message under accumulation.
type ChatMessage struct {
	ID          string         `json:"id"`
	Role        string         `json:"role"`
	Blocks      []MessageBlock `json:"blocks"`
	IsStreaming bool           `json:"is_streaming"`
}

// Content flattens the message's text blocks for plain-text consumers.
func (m ChatMessage) Content() string {
	var sb strings.Builder
	for _, b := range m.Blocks {
		if b.Type == normalize.BlockText {
			sb.WriteString(b.Content)
		}
	}
	return sb.String()
}

// Apply folds a batch of normalized blocks into the block list, in order.
// The fold is order-sensitive: the same blocks applied in a different order
// can produce a different block list.
func Apply(blocks []normalize.Block, into []MessageBlock) []MessageBlock {
	out := into
	for _, b := range blocks {
		out = applyOne(b, out)
	}
	return out
}

func applyOne(b normalize.Block, out []MessageBlock) []MessageBlock {
	if b.Type == normalize.BlockArtifact && b.Artifact != nil {
		return applyArtifact(b.Artifact, out)
	}

	// Correlated updates merge into the block that announced the call,
	// wherever it sits in the list.
	if b.Meta != nil && b.Meta.CallID != "" {
		for i := range out {
			if out[i].Type == b.Type && out[i].Meta != nil && out[i].Meta.CallID == b.Meta.CallID {
				out[i].Content += b.Text
				out[i].Meta.Merge(b.Meta)
				if terminalStatus(out[i].Meta.Status) {
					out[i].IsStreaming = false
				}
				return out
			}
		}
	}

	// Continuation blocks fold into the trailing command block even when
	// they carry no call id of their own.
	if b.AppendToCommand && len(out) > 0 {
		last := &out[len(out)-1]
		if last.Type == normalize.BlockCommandExecution {
			last.Content += b.Text
			if b.Meta != nil {
				if last.Meta == nil {
					last.Meta = &normalize.BlockMeta{}
				}
				last.Meta.Merge(b.Meta)
				if terminalStatus(last.Meta.Status) {
					last.IsStreaming = false
				}
			}
			return out
		}
	}

	if len(out) > 0 {
		last := &out[len(out)-1]
		if last.Type == b.Type && last.IsStreaming && sameStream(last, &b) {
			last.Content += b.Text
			if b.Meta != nil {
				if last.Meta == nil {
					last.Meta = &normalize.BlockMeta{}
				}
				last.Meta.Merge(b.Meta)
			}
			return out
		}
		last.IsStreaming = false
	}

	nb := MessageBlock{
		ID:          uuid.NewString(),
		Type:        b.Type,
		Content:     b.Text,
		IsStreaming: true,
		Meta:        b.Meta.Clone(),
	}
	if nb.Meta != nil && terminalStatus(nb.Meta.Status) {
		nb.IsStreaming = false
	}
	return append(out, nb)
}

// sameStream guards the trailing-block append: two call-bearing blocks with
// different call ids are distinct even when their types match.
func sameStream(last *MessageBlock, b *normalize.Block) bool {
	if last.Meta == nil || b.Meta == nil {
		return true
	}
	if last.Meta.CallID == "" || b.Meta.CallID == "" {
		return true
	}
	return last.Meta.CallID == b.Meta.CallID
}

func applyArtifact(update *normalize.ArtifactUpdate, out []MessageBlock) []MessageBlock {
	if update.Append {
		for i := range out {
			if out[i].Artifact != nil && out[i].Artifact.ArtifactID == update.ArtifactID {
				out[i].Artifact.Parts = append(out[i].Artifact.Parts, update.Parts...)
				return out
			}
		}
	}
	art := &Artifact{
		ArtifactID: update.ArtifactID,
		Name:       update.Name,
		Parts:      append([]string(nil), update.Parts...),
	}
	return append(out, MessageBlock{
		ID:       uuid.NewString(),
		Type:     normalize.BlockArtifact,
		Artifact: art,
	})
}

func terminalStatus(status string) bool {
	switch strings.ToLower(status) {
	case "completed", "failed", "succeeded", "success", "error", "canceled", "cancelled":
		return true
	}
	return false
}
