package normalize

// toolCallInfo remembers how an in-flight tool call was classified when it
// was first announced, so follow-up events with only a call id land on the
// same block type.
type toolCallInfo struct {
	Name string
	Type BlockType
}

// convState holds one conversation's correlation tables. It is shared
// between a backend strategy and its fallback so both see the same calls.
type convState struct {
	toolCalls map[string]toolCallInfo
	lastLen   map[string]int
}

func newConvState() *convState {
	return &convState{
		toolCalls: make(map[string]toolCallInfo),
		lastLen:   make(map[string]int),
	}
}

// record classifies a freshly announced tool call and remembers the result.
// Calling it again for a known id returns the original classification.
func (s *convState) record(callID, toolName string) BlockType {
	if callID == "" {
		return ClassifyTool(toolName)
	}
	if info, ok := s.toolCalls[callID]; ok {
		return info.Type
	}
	bt := ClassifyTool(toolName)
	s.toolCalls[callID] = toolCallInfo{Name: toolName, Type: bt}
	return bt
}

func (s *convState) lookup(callID string) (toolCallInfo, bool) {
	info, ok := s.toolCalls[callID]
	return info, ok
}

// delta turns a cumulative text snapshot for the given item into the newly
// appended suffix. A snapshot shorter than what was already seen is a
// non-monotonic resend and is dropped rather than re-emitted.
func (s *convState) delta(itemID, cumulative string) (string, bool) {
	prev := s.lastLen[itemID]
	if len(cumulative) < prev {
		return "", false
	}
	s.lastLen[itemID] = len(cumulative)
	return cumulative[prev:], true
}
