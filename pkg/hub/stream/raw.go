// Package stream opens conversation turns against a connected backend and
// exposes the resulting server-sent event sequence as a pull-based,
// single-pass stream of provider-native events.
package stream

import (
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// RawEvent is one backend-native streaming payload. Exactly one of the
// fields is set. It is consumed by exactly one normalizer invocation.
type RawEvent struct {
	Task     *protocol.Task
	Status   *protocol.TaskStatusUpdateEvent
	Artifact *protocol.TaskArtifactUpdateEvent
	Message  *protocol.Message
}

// fromStreamingEvent converts a wire event into a RawEvent. Unknown result
// types report ok=false and are skipped by the caller (forward progress over
// strictness).
func fromStreamingEvent(ev protocol.StreamingMessageEvent) (RawEvent, bool) {
	switch result := ev.Result.(type) {
	case *protocol.Task:
		return RawEvent{Task: result}, true
	case *protocol.TaskStatusUpdateEvent:
		return RawEvent{Status: result}, true
	case *protocol.TaskArtifactUpdateEvent:
		return RawEvent{Artifact: result}, true
	case *protocol.Message:
		return RawEvent{Message: result}, true
	default:
		return RawEvent{}, false
	}
}

// TaskID returns the task id the event belongs to, if it carries one.
func (e RawEvent) TaskID() string {
	switch {
	case e.Task != nil:
		return e.Task.ID
	case e.Status != nil:
		return e.Status.TaskID
	case e.Artifact != nil:
		return e.Artifact.TaskID
	case e.Message != nil && e.Message.TaskID != nil:
		return *e.Message.TaskID
	}
	return ""
}

// Terminal reports whether the event ends the turn: a final status update in
// a terminal task state.
func (e RawEvent) Terminal() bool {
	if e.Status == nil || !e.Status.Final {
		return false
	}
	return terminalState(e.Status.Status.State)
}

func terminalState(state protocol.TaskState) bool {
	switch state {
	case protocol.TaskStateCompleted, protocol.TaskStateFailed, protocol.TaskStateCanceled:
		return true
	default:
		return false
	}
}

// isKeepAlive recognizes server-injected keep-alive frames: a status update
// with no state whose message is system-authored. These are connection
// plumbing, not conversation content.
func isKeepAlive(e RawEvent) bool {
	if e.Status == nil || e.Status.Status.State != "" {
		return false
	}
	msg := e.Status.Status.Message
	return msg != nil && msg.Kind == "system"
}
