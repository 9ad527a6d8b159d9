package normalize

import (
	"encoding/json"
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// partText extracts the text of a text part, handling both pointer and
// value forms the protocol package produces.
func partText(p protocol.Part) (string, bool) {
	switch tp := p.(type) {
	case *protocol.TextPart:
		return tp.Text, true
	case protocol.TextPart:
		return tp.Text, true
	}
	return "", false
}

// partPayload extracts the payload map of a data part.
func partPayload(p protocol.Part) (map[string]interface{}, bool) {
	var data interface{}
	switch dp := p.(type) {
	case *protocol.DataPart:
		data = dp.Data
	case protocol.DataPart:
		data = dp.Data
	default:
		return nil, false
	}
	payload, ok := data.(map[string]interface{})
	return payload, ok
}

// partMetadata returns the metadata map attached to a text part, or nil.
func partMetadata(p protocol.Part) map[string]interface{} {
	switch tp := p.(type) {
	case *protocol.TextPart:
		return tp.Metadata
	case protocol.TextPart:
		return tp.Metadata
	}
	return nil
}

// renderPart flattens any part into display text. Data parts render as
// compact JSON so nothing silently disappears.
func renderPart(p protocol.Part) string {
	if text, ok := partText(p); ok {
		return text
	}
	if payload, ok := partPayload(p); ok {
		raw, err := json.Marshal(payload)
		if err != nil {
			return ""
		}
		return string(raw)
	}
	return ""
}

func strField(payload map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func mapField(payload map[string]interface{}, keys ...string) map[string]interface{} {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if m, ok := v.(map[string]interface{}); ok {
				return m
			}
		}
	}
	return nil
}

func boolField(payload map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}
	return false
}

func intField(payload map[string]interface{}, keys ...string) *int {
	for _, k := range keys {
		switch v := payload[k].(type) {
		case float64:
			n := int(v)
			return &n
		case int:
			n := v
			return &n
		case json.Number:
			if i, err := v.Int64(); err == nil {
				n := int(i)
				return &n
			}
		}
	}
	return nil
}

// todosField decodes a todo list from the loosely typed shapes backends
// send: a list of strings, or a list of objects with text/content and a
// status or done flag.
func todosField(payload map[string]interface{}, keys ...string) []TodoItem {
	for _, k := range keys {
		list, ok := payload[k].([]interface{})
		if !ok {
			continue
		}
		todos := make([]TodoItem, 0, len(list))
		for _, item := range list {
			switch v := item.(type) {
			case string:
				todos = append(todos, TodoItem{Text: v})
			case map[string]interface{}:
				todo := TodoItem{Text: strField(v, "text", "content", "label", "title")}
				status := strings.ToLower(strField(v, "status", "state"))
				todo.Done = boolField(v, "done", "completed") ||
					status == "completed" || status == "done"
				if todo.Text != "" {
					todos = append(todos, todo)
				}
			}
		}
		if len(todos) > 0 {
			return todos
		}
	}
	return nil
}

// filesField decodes the file list of a file-change payload.
func filesField(payload map[string]interface{}, keys ...string) []FileChange {
	for _, k := range keys {
		switch v := payload[k].(type) {
		case string:
			if v != "" {
				return []FileChange{{Path: v}}
			}
		case []interface{}:
			files := make([]FileChange, 0, len(v))
			for _, item := range v {
				switch f := item.(type) {
				case string:
					files = append(files, FileChange{Path: f})
				case map[string]interface{}:
					fc := FileChange{
						Path: strField(f, "path", "file_path", "file"),
						Kind: strField(f, "kind", "type", "change"),
					}
					if fc.Path != "" {
						files = append(files, fc)
					}
				}
			}
			if len(files) > 0 {
				return files
			}
		}
	}
	return nil
}
