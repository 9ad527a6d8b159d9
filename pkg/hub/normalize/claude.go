package normalize

import (
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// claudeStrategy normalizes Claude Code events: streaming text and thinking
// deltas, plus tool_use/tool_result pairs correlated by tool-use id and
// classified by tool name (Bash, Write, WebSearch, TodoWrite and friends).
type claudeStrategy struct {
	state    *convState
	fallback *fallbackStrategy
}

func (c *claudeStrategy) OnStatusUpdate(ev *protocol.TaskStatusUpdateEvent) []Block {
	if ev.Status.Message == nil {
		return nil
	}
	return c.blocksFromParts(ev.Status.Message.Parts)
}

func (c *claudeStrategy) OnArtifactUpdate(ev *protocol.TaskArtifactUpdateEvent) []Block {
	return artifactBlock(ev)
}

func (c *claudeStrategy) OnMessage(msg *protocol.Message) []Block {
	return c.blocksFromParts(msg.Parts)
}

func (c *claudeStrategy) blocksFromParts(parts []protocol.Part) []Block {
	var out []Block
	for _, p := range parts {
		if text, ok := partText(p); ok {
			if text != "" {
				out = append(out, Block{Type: BlockText, Text: text})
			}
			continue
		}
		payload, ok := partPayload(p)
		if !ok {
			continue
		}
		switch strings.ToLower(strField(payload, "kind", "type")) {
		case "text":
			if text := strField(payload, "text", "content"); text != "" {
				out = append(out, Block{Type: BlockText, Text: text})
			}
		case "thinking", "reasoning":
			if text := strField(payload, "text", "thinking", "content"); text != "" {
				out = append(out, Block{Type: BlockReasoning, Text: text})
			}
		case "tool_use":
			out = append(out, c.toolUseBlock(payload))
		case "tool_result":
			out = append(out, c.toolResultBlock(payload))
		default:
			out = append(out, c.fallback.normalizePart(p)...)
		}
	}
	return out
}

func (c *claudeStrategy) toolUseBlock(payload map[string]interface{}) Block {
	callID := strField(payload, "id", "tool_use_id", "callId")
	name := strField(payload, "name", "tool")
	bt := c.state.record(callID, name)

	meta := &BlockMeta{CallID: callID, ToolName: name, Status: "running"}
	if input := mapField(payload, "input", "args"); input != nil {
		meta.Command = strField(input, "command")
		meta.Query = strField(input, "query", "prompt")
		meta.Todos = todosField(input, "todos", "items")
		if path := strField(input, "file_path", "path"); path != "" {
			meta.Files = []FileChange{{Path: path, Kind: fileChangeKind(name)}}
		}
	}
	return Block{Type: bt, Meta: meta}
}

// toolResultBlock resolves a result against the call that announced it.
// Command results fold their output into the running command block; every
// other classification merges by call id in the accumulator.
func (c *claudeStrategy) toolResultBlock(payload map[string]interface{}) Block {
	callID := strField(payload, "tool_use_id", "callId", "id")
	status := "completed"
	if boolField(payload, "is_error", "isError") {
		status = "failed"
	}
	content := toolResultContent(payload)

	bt := BlockToolCall
	if info, known := c.state.lookup(callID); known {
		bt = info.Type
	}
	meta := &BlockMeta{CallID: callID, Status: status}
	blk := Block{Type: bt, Meta: meta}
	if bt == BlockCommandExecution {
		blk.Text = content
		blk.AppendToCommand = true
	} else {
		meta.Result = content
	}
	return blk
}

// toolResultContent flattens the result content, which arrives either as a
// plain string or as a list of content objects.
func toolResultContent(payload map[string]interface{}) string {
	if s := strField(payload, "content", "text", "output"); s != "" {
		return s
	}
	list, ok := payload["content"].([]interface{})
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			sb.WriteString(strField(m, "text", "content"))
		}
	}
	return sb.String()
}

func fileChangeKind(toolName string) string {
	switch strings.ToLower(toolName) {
	case "write":
		return "write"
	case "edit", "multiedit":
		return "edit"
	}
	return ""
}
