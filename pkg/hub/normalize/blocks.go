// Package normalize converts each backend's idiosyncratic stream of raw
// events into a canonical ordered sequence of typed blocks. A Normalizer is
// scoped to one conversation and owns that conversation's correlation state.
package normalize

// BlockType is the canonical classification of a block of assistant output.
type BlockType string

const (
	BlockText             BlockType = "text"
	BlockReasoning        BlockType = "reasoning"
	BlockToolCall         BlockType = "tool_call"
	BlockFileChange       BlockType = "file_change"
	BlockCommandExecution BlockType = "command_execution"
	BlockWebSearch        BlockType = "web_search"
	BlockTodoList         BlockType = "todo_list"
	BlockError            BlockType = "error"
	BlockArtifact         BlockType = "artifact"
)

// TodoItem is one entry of a todo-list block.
type TodoItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// FileChange describes one file touched by a file-change block.
type FileChange struct {
	Path string `json:"path"`
	Kind string `json:"kind,omitempty"`
}

// BlockMeta carries the structured metadata attached to a block.
type BlockMeta struct {
	CallID   string       `json:"call_id,omitempty"`
	ToolName string       `json:"tool_name,omitempty"`
	Status   string       `json:"status,omitempty"`
	ExitCode *int         `json:"exit_code,omitempty"`
	Command  string       `json:"command,omitempty"`
	Query    string       `json:"query,omitempty"`
	Result   string       `json:"result,omitempty"`
	Todos    []TodoItem   `json:"todos,omitempty"`
	Files    []FileChange `json:"files,omitempty"`
}

// Merge folds other's populated fields into m, preferring newer values.
func (m *BlockMeta) Merge(other *BlockMeta) {
	if other == nil {
		return
	}
	if other.CallID != "" {
		m.CallID = other.CallID
	}
	if other.ToolName != "" {
		m.ToolName = other.ToolName
	}
	if other.Status != "" {
		m.Status = other.Status
	}
	if other.ExitCode != nil {
		m.ExitCode = other.ExitCode
	}
	if other.Command != "" {
		m.Command = other.Command
	}
	if other.Query != "" {
		m.Query = other.Query
	}
	if other.Result != "" {
		m.Result = other.Result
	}
	if len(other.Todos) > 0 {
		m.Todos = other.Todos
	}
	if len(other.Files) > 0 {
		m.Files = append(m.Files, other.Files...)
	}
}

// Clone returns a deep copy of the metadata.
func (m *BlockMeta) Clone() *BlockMeta {
	if m == nil {
		return nil
	}
	out := *m
	if m.ExitCode != nil {
		code := *m.ExitCode
		out.ExitCode = &code
	}
	out.Todos = append([]TodoItem(nil), m.Todos...)
	out.Files = append([]FileChange(nil), m.Files...)
	return &out
}

// ArtifactUpdate is the canonical form of a backend artifact event.
type ArtifactUpdate struct {
	ArtifactID string   `json:"artifact_id"`
	Name       string   `json:"name,omitempty"`
	Parts      []string `json:"parts"`
	Append     bool     `json:"append,omitempty"`
}

// Block is one canonical normalized unit of assistant output.
//
// For text-like blocks, Text is always a delta (new characters only), never
// the full accumulated string: consumers append, they do not replace.
type Block struct {
	Type BlockType
	Text string
	Meta *BlockMeta

	// AppendToCommand asks the accumulator to fold this block into the
	// trailing command_execution block regardless of type match rules.
	AppendToCommand bool

	// Artifact is set when Type is BlockArtifact.
	Artifact *ArtifactUpdate
}
