package normalize

import (
	"strings"

	"github.com/stoewer/go-strcase"
)

// ClassifyTool maps a backend tool name to a canonical block type. The
// function is total: any name it does not recognize is a generic tool call.
// Matching is done on the snake_case form of the name so "WebSearch",
// "web_search" and "web-search" all classify identically.
func ClassifyTool(name string) BlockType {
	n := strcase.SnakeCase(strings.TrimSpace(name))
	switch {
	case n == "":
		return BlockToolCall
	case strings.Contains(n, "todo") || strings.Contains(n, "plan"):
		return BlockTodoList
	case strings.Contains(n, "search") || strings.Contains(n, "web") || strings.Contains(n, "fetch"):
		return BlockWebSearch
	case strings.Contains(n, "bash") || strings.Contains(n, "shell") ||
		strings.Contains(n, "exec") || strings.Contains(n, "terminal") ||
		strings.Contains(n, "command"):
		return BlockCommandExecution
	case strings.Contains(n, "write") || strings.Contains(n, "edit") ||
		strings.Contains(n, "patch") || strings.Contains(n, "replace") ||
		strings.Contains(n, "diff"):
		return BlockFileChange
	default:
		return BlockToolCall
	}
}
