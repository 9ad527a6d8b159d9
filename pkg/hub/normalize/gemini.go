package normalize

import (
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// geminiStrategy normalizes the Gemini CLI server's grammar: assistant text
// arrives as incremental text parts (thought parts flagged in part
// metadata), and tool activity as data payloads carrying a request object
// plus a lifecycle status that is re-sent as the call progresses.
type geminiStrategy struct {
	state    *convState
	fallback *fallbackStrategy
}

func (g *geminiStrategy) OnStatusUpdate(ev *protocol.TaskStatusUpdateEvent) []Block {
	if ev.Status.Message == nil {
		return nil
	}
	return g.blocksFromParts(ev.Status.Message.Parts)
}

func (g *geminiStrategy) OnArtifactUpdate(ev *protocol.TaskArtifactUpdateEvent) []Block {
	return artifactBlock(ev)
}

func (g *geminiStrategy) OnMessage(msg *protocol.Message) []Block {
	return g.blocksFromParts(msg.Parts)
}

func (g *geminiStrategy) blocksFromParts(parts []protocol.Part) []Block {
	var out []Block
	for _, p := range parts {
		if text, ok := partText(p); ok {
			if text == "" {
				continue
			}
			bt := BlockText
			if meta := partMetadata(p); meta != nil && boolField(meta, "thought") {
				bt = BlockReasoning
			}
			out = append(out, Block{Type: bt, Text: text})
			continue
		}
		payload, ok := partPayload(p)
		if !ok {
			continue
		}
		switch strField(payload, "kind", "type") {
		case "tool_call", "tool-call", "toolCall":
			out = append(out, g.toolCallBlocks(payload)...)
		default:
			out = append(out, g.fallback.normalizePart(p)...)
		}
	}
	return out
}

// toolCallBlocks translates one tool-call lifecycle payload. The first
// payload for a call id establishes its classification; later payloads for
// the same id (status changes, results) stay on that classification so the
// accumulator can merge them into one block.
func (g *geminiStrategy) toolCallBlocks(payload map[string]interface{}) []Block {
	request := mapField(payload, "request")
	callID := strField(request, "callId", "call_id", "id")
	if callID == "" {
		callID = strField(payload, "callId", "call_id", "id")
	}
	name := strField(request, "name", "tool")
	if name == "" {
		name = strField(payload, "name", "tool")
	}

	var bt BlockType
	if info, known := g.state.lookup(callID); known {
		bt = info.Type
		if name == "" {
			name = info.Name
		}
	} else {
		bt = g.state.record(callID, name)
	}

	meta := &BlockMeta{
		CallID:   callID,
		ToolName: name,
		Status:   strField(payload, "status"),
		Result:   resultText(payload),
	}
	args := mapField(request, "args", "arguments", "input")
	if args != nil {
		meta.Command = strField(args, "command")
		meta.Query = strField(args, "query", "prompt")
		meta.Todos = todosField(args, "todos", "items")
		meta.Files = filesField(args, "files", "file_path", "path")
	}

	blk := Block{Type: bt, Meta: meta}
	if bt == BlockCommandExecution && meta.Result != "" {
		// Command output reads better inline than as a result field.
		blk.Text = meta.Result
		meta.Result = ""
	}
	return []Block{blk}
}

// resultText flattens the loosely shaped result/response field of a
// finished tool call into plain text.
func resultText(payload map[string]interface{}) string {
	if s := strField(payload, "result", "response", "output"); s != "" {
		return s
	}
	for _, key := range []string{"result", "response"} {
		if m := mapField(payload, key); m != nil {
			if s := strField(m, "output", "content", "text", "resultDisplay"); s != "" {
				return s
			}
		}
	}
	return ""
}
