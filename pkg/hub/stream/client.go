package stream

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
)

// ErrClosed is returned by TurnStream.Next once the stream has ended, either
// by a final terminal status or by the transport closing. Callers treat both
// identically.
var ErrClosed = apperrors.New(apperrors.ErrCodeStreamClosed, "turn stream closed", nil)

// MessageStreamer is the slice of the A2A client the stream layer needs.
// *client.A2AClient satisfies it; tests substitute a scripted fake.
type MessageStreamer interface {
	StreamMessage(ctx context.Context, params protocol.SendMessageParams) (<-chan protocol.StreamingMessageEvent, error)
}

// Opener opens conversation turns against one backend. Backends are
// single-threaded per conversation, so opening a new turn on a context
// supersedes (cancels) any unfinished previous turn on that context.
type Opener struct {
	streamer MessageStreamer
	log      logr.Logger

	mu     sync.Mutex
	active map[string]*TurnStream // context id -> in-flight turn
}

// NewOpener creates an Opener over the given streamer.
func NewOpener(streamer MessageStreamer, log logr.Logger) *Opener {
	return &Opener{
		streamer: streamer,
		log:      log.WithName("stream"),
		active:   make(map[string]*TurnStream),
	}
}

// OpenTurn submits user text on a conversation context and returns the raw
// event stream for the turn. The sequence is single-pass and non-restartable.
func (o *Opener) OpenTurn(ctx context.Context, contextID, text string) (*TurnStream, error) {
	o.mu.Lock()
	if prev, ok := o.active[contextID]; ok && !prev.Finished() {
		o.log.V(1).Info("superseding unfinished turn", "context", contextID)
		prev.Cancel()
	}
	o.mu.Unlock()

	msg := protocol.Message{
		MessageID: protocol.GenerateMessageID(),
		Kind:      protocol.KindMessage,
		Role:      protocol.MessageRoleUser,
		ContextID: &contextID,
		Parts:     []protocol.Part{protocol.NewTextPart(text)},
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, err := o.streamer.StreamMessage(streamCtx, protocol.SendMessageParams{Message: msg})
	if err != nil {
		cancel()
		return nil, apperrors.New(apperrors.ErrCodeStreamFailed, "failed to open turn stream", err)
	}

	ts := &TurnStream{
		contextID: contextID,
		events:    events,
		cancel:    cancel,
	}

	o.mu.Lock()
	o.active[contextID] = ts
	o.mu.Unlock()
	return ts, nil
}

// TurnStream is a lazy, finite, non-restartable sequence of RawEvent for one
// conversation turn. Not safe for concurrent Next calls.
type TurnStream struct {
	contextID string
	events    <-chan protocol.StreamingMessageEvent
	cancel    context.CancelFunc

	mu       sync.Mutex
	taskID   string
	finished bool
}

// Next returns the next raw event in backend emission order. It skips
// unusable frames rather than aborting the stream, and returns ErrClosed once
// the stream ends by terminal status or transport close.
func (s *TurnStream) Next(ctx context.Context) (RawEvent, error) {
	for {
		select {
		case <-ctx.Done():
			s.finish()
			return RawEvent{}, apperrors.New(apperrors.ErrCodeStreamFailed, "turn aborted", ctx.Err())
		case wireEv, ok := <-s.events:
			if !ok {
				s.finish()
				return RawEvent{}, ErrClosed
			}

			ev, usable := fromStreamingEvent(wireEv)
			if !usable || isKeepAlive(ev) {
				continue
			}

			s.mu.Lock()
			if s.taskID == "" {
				s.taskID = ev.TaskID()
			}
			if ev.Terminal() {
				s.finished = true
			}
			s.mu.Unlock()
			return ev, nil
		}
	}
}

// TaskID returns the backend task id for this turn once the stream has
// revealed it, or "" before that.
func (s *TurnStream) TaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskID
}

// Finished reports whether the stream has delivered a terminal event or been
// closed or canceled.
func (s *TurnStream) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Cancel abandons the turn. Advisory: the backend may keep running briefly;
// the absence of further events is the "stopped" signal.
func (s *TurnStream) Cancel() {
	s.finish()
}

func (s *TurnStream) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	s.cancel()
}
