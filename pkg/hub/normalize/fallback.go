package normalize

import (
	"encoding/json"
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// fallbackStrategy is the structural normalizer used for backends without a
// dedicated strategy, and by the dedicated strategies for payload shapes
// they do not claim. It keys on a "kind" discriminator in data payloads and
// treats text in payloads as deltas.
type fallbackStrategy struct {
	state *convState
}

func (f *fallbackStrategy) OnStatusUpdate(ev *protocol.TaskStatusUpdateEvent) []Block {
	if ev.Status.Message == nil {
		return nil
	}
	return f.blocksFromParts(ev.Status.Message.Parts)
}

func (f *fallbackStrategy) OnArtifactUpdate(ev *protocol.TaskArtifactUpdateEvent) []Block {
	return artifactBlock(ev)
}

func (f *fallbackStrategy) OnMessage(msg *protocol.Message) []Block {
	return f.blocksFromParts(msg.Parts)
}

func (f *fallbackStrategy) blocksFromParts(parts []protocol.Part) []Block {
	var out []Block
	for _, p := range parts {
		out = append(out, f.normalizePart(p)...)
	}
	return out
}

// normalizePart maps a single part. Text parts pass through as text deltas.
// Data payloads classify by their kind discriminator; a payload with no
// recognizable kind still surfaces as JSON text rather than vanishing.
func (f *fallbackStrategy) normalizePart(p protocol.Part) []Block {
	if text, ok := partText(p); ok {
		if text == "" {
			return nil
		}
		return []Block{{Type: BlockText, Text: text}}
	}
	payload, ok := partPayload(p)
	if !ok {
		return nil
	}

	kind := strings.ToLower(strField(payload, "kind", "type"))
	bt, appendToCommand, recognized := kindToBlockType(kind)
	text := strField(payload, "text", "content", "output", "delta")
	if !recognized {
		if text == "" {
			text = renderDataPayload(payload)
		}
		if text == "" {
			return nil
		}
		return []Block{{Type: BlockText, Text: text}}
	}

	meta := metaFromPayload(payload)
	if bt == BlockToolCall && meta != nil && meta.CallID != "" {
		// Honor a classification made when this call was first seen.
		if info, known := f.state.lookup(meta.CallID); known {
			bt = info.Type
		} else {
			bt = f.state.record(meta.CallID, meta.ToolName)
		}
	}
	return []Block{{Type: bt, Text: text, Meta: meta, AppendToCommand: appendToCommand}}
}

// kindToBlockType is the fallback's fixed kind table. The appendToCommand
// result marks continuation kinds that fold into a running command block.
func kindToBlockType(kind string) (bt BlockType, appendToCommand, recognized bool) {
	switch {
	case kind == "reasoning" || kind == "thinking" || kind == "thought":
		return BlockReasoning, false, true
	case kind == "tool_call" || kind == "tool_use" || strings.HasPrefix(kind, "mcp"):
		return BlockToolCall, false, true
	case kind == "file_change":
		return BlockFileChange, false, true
	case kind == "command_execution":
		return BlockCommandExecution, false, true
	case kind == "command_output" || kind == "command_status":
		return BlockCommandExecution, true, true
	case kind == "web_search":
		return BlockWebSearch, false, true
	case kind == "todo_list":
		return BlockTodoList, false, true
	case kind == "error":
		return BlockError, false, true
	case kind == "text" || kind == "message":
		return BlockText, false, true
	}
	return BlockText, false, false
}

// metaFromPayload lifts the structured fields a payload may carry, checking
// both the top level and a nested metadata object.
func metaFromPayload(payload map[string]interface{}) *BlockMeta {
	meta := &BlockMeta{
		CallID:   strField(payload, "callId", "call_id", "tool_use_id", "id"),
		ToolName: strField(payload, "name", "tool", "toolName", "tool_name"),
		Status:   strField(payload, "status"),
		Command:  strField(payload, "command"),
		Query:    strField(payload, "query"),
		Result:   strField(payload, "result", "response"),
		ExitCode: intField(payload, "exitCode", "exit_code"),
		Todos:    todosField(payload, "todos", "items"),
		Files:    filesField(payload, "files", "changes", "path"),
	}
	if nested := mapField(payload, "metadata"); nested != nil {
		meta.Merge(metaFromPayload(nested))
	}
	if meta.empty() {
		return nil
	}
	return meta
}

func (m *BlockMeta) empty() bool {
	return m.CallID == "" && m.ToolName == "" && m.Status == "" &&
		m.ExitCode == nil && m.Command == "" && m.Query == "" &&
		m.Result == "" && len(m.Todos) == 0 && len(m.Files) == 0
}

func renderDataPayload(payload map[string]interface{}) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(raw)
}
