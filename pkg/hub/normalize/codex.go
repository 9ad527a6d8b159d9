package normalize

import (
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// codexStrategy normalizes the Codex CLI server's item grammar. Text-bearing
// items (agent messages, reasoning) report the full accumulated text of an
// item on every update, so emission is delta-based per item id. Command
// execution streams as an announcing item followed by output and status
// continuation items that fold into the running command block.
type codexStrategy struct {
	state    *convState
	fallback *fallbackStrategy
}

func (c *codexStrategy) OnStatusUpdate(ev *protocol.TaskStatusUpdateEvent) []Block {
	if ev.Status.Message == nil {
		return nil
	}
	return c.blocksFromParts(ev.Status.Message.Parts)
}

func (c *codexStrategy) OnArtifactUpdate(ev *protocol.TaskArtifactUpdateEvent) []Block {
	return artifactBlock(ev)
}

func (c *codexStrategy) OnMessage(msg *protocol.Message) []Block {
	return c.blocksFromParts(msg.Parts)
}

func (c *codexStrategy) blocksFromParts(parts []protocol.Part) []Block {
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
		out = append(out, c.itemBlocks(p, payload)...)
	}
	return out
}

func (c *codexStrategy) itemBlocks(p protocol.Part, payload map[string]interface{}) []Block {
	itemType := strings.ToLower(strField(payload, "itemType", "item_type"))
	if itemType == "" {
		return c.fallback.normalizePart(p)
	}
	itemID := strField(payload, "id", "itemId", "item_id")
	meta := metaFromPayload(payload)

	switch itemType {
	case "agent_message", "message", "text":
		return c.cumulativeBlock(BlockText, "msg:"+itemID, payload)
	case "reasoning", "thinking":
		return c.cumulativeBlock(BlockReasoning, "rsn:"+itemID, payload)
	case "command_execution":
		if itemID != "" {
			c.state.toolCalls[itemID] = toolCallInfo{Name: "shell", Type: BlockCommandExecution}
		}
		if meta == nil {
			meta = &BlockMeta{}
		}
		meta.CallID = itemID
		return []Block{{Type: BlockCommandExecution, Meta: meta}}
	case "command_output":
		return []Block{{
			Type:            BlockCommandExecution,
			Text:            strField(payload, "text", "output"),
			AppendToCommand: true,
		}}
	case "command_status":
		return []Block{{Type: BlockCommandExecution, Meta: meta, AppendToCommand: true}}
	case "file_change", "patch_apply":
		if meta == nil {
			meta = &BlockMeta{}
		}
		return []Block{{Type: BlockFileChange, Meta: meta}}
	case "web_search":
		return []Block{{Type: BlockWebSearch, Meta: meta}}
	case "todo_list", "plan":
		return []Block{{Type: BlockTodoList, Meta: meta}}
	case "error":
		return []Block{{Type: BlockError, Text: strField(payload, "text", "message")}}
	case "tool_call", "mcp_tool_call":
		if meta == nil {
			meta = &BlockMeta{}
		}
		if meta.CallID == "" {
			meta.CallID = itemID
		}
		bt := c.state.record(meta.CallID, meta.ToolName)
		return []Block{{Type: bt, Meta: meta}}
	}
	return c.fallback.normalizePart(p)
}

// cumulativeBlock converts a cumulative text snapshot into a delta block,
// dropping non-monotonic resends entirely.
func (c *codexStrategy) cumulativeBlock(bt BlockType, key string, payload map[string]interface{}) []Block {
	cumulative := strField(payload, "text", "content")
	delta, ok := c.state.delta(key, cumulative)
	if !ok || delta == "" {
		return nil
	}
	return []Block{{Type: bt, Text: delta}}
}
