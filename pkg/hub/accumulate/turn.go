package accumulate

import (
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/normalize"
)

// TurnState is the lifecycle state of one conversation turn.
type TurnState string

const (
	TurnSubmitted TurnState = "submitted"
	TurnWorking   TurnState = "working"
	TurnCompleted TurnState = "completed"
	TurnFailed    TurnState = "failed"
	TurnCanceled  TurnState = "canceled"
)

// Terminal reports whether the state ends the turn.
func (s TurnState) Terminal() bool {
	return s == TurnCompleted || s == TurnFailed || s == TurnCanceled
}

// TurnStateFromTask maps a task state from the wire onto the turn
// lifecycle. Interactive waits count as working: the turn is still live.
func TurnStateFromTask(state protocol.TaskState) TurnState {
	switch state {
	case protocol.TaskStateSubmitted:
		return TurnSubmitted
	case protocol.TaskStateCompleted:
		return TurnCompleted
	case protocol.TaskStateFailed, protocol.TaskStateRejected:
		return TurnFailed
	case protocol.TaskStateCanceled:
		return TurnCanceled
	default:
		return TurnWorking
	}
}

// Turn tracks one turn's state machine and its accumulated assistant
// message. Once a terminal state is reached the turn freezes: further
// applies and transitions are no-ops.
type Turn struct {
	state TurnState
	msg   ChatMessage
}

// NewTurn starts a turn in the submitted state.
func NewTurn(id string) *Turn {
	return &Turn{
		state: TurnSubmitted,
		msg: ChatMessage{
			ID:          id,
			Role:        "assistant",
			IsStreaming: true,
		},
	}
}

// State returns the current lifecycle state.
func (t *Turn) State() TurnState { return t.state }

// Apply folds blocks into the turn's message. Applies after a terminal
// transition are dropped.
func (t *Turn) Apply(blocks []normalize.Block) {
	if t.state.Terminal() || len(blocks) == 0 {
		return
	}
	t.msg.Blocks = Apply(blocks, t.msg.Blocks)
}

// Transition advances the lifecycle. Transitions out of a terminal state
// are ignored, so duplicate terminal events are harmless. The first
// terminal transition freezes every block exactly once.
func (t *Turn) Transition(state TurnState) {
	if t.state.Terminal() {
		return
	}
	t.state = state
	if state.Terminal() {
		t.msg.IsStreaming = false
		for i := range t.msg.Blocks {
			t.msg.Blocks[i].IsStreaming = false
		}
	}
}

// Message returns a snapshot of the accumulated message. The snapshot's
// blocks are copies: mutating them does not reach into the turn.
func (t *Turn) Message() ChatMessage {
	snap := t.msg
	snap.Blocks = make([]MessageBlock, len(t.msg.Blocks))
	for i, b := range t.msg.Blocks {
		cp := b
		cp.Meta = b.Meta.Clone()
		if b.Artifact != nil {
			art := *b.Artifact
			art.Parts = append([]string(nil), b.Artifact.Parts...)
			cp.Artifact = &art
		}
		snap.Blocks[i] = cp
	}
	return snap
}
