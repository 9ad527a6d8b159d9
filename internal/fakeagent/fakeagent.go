// Package fakeagent provides in-process stand-ins for backend serving
// surfaces: a launcher that serves an agent card over HTTP and a scripted
// A2A message streamer. Tests construct isolated hubs on top of these.
package fakeagent

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/adapter"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
)

// Launcher brings up an in-process HTTP server serving an agent card,
// standing in for a backend CLI subprocess.
type Launcher struct {
	Card backend.AgentCard

	// FailToStart makes Launch return an error before anything is created.
	FailToStart bool
	// ExitImmediately starts a process that dies before serving anything.
	ExitImmediately bool
	// NeverReady binds the port but answers 503 to every request, so the
	// adapter's readiness poll runs into its startup timeout.
	NeverReady bool

	mu       sync.Mutex
	launched int
}

// Launched reports how many processes this launcher has started.
func (l *Launcher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched
}

// Launch implements adapter.Launcher.
func (l *Launcher) Launch(ctx context.Context, host string, port int) (adapter.Process, error) {
	if l.FailToStart {
		return nil, fmt.Errorf("launcher refused to start")
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.launched++
	l.mu.Unlock()

	if l.ExitImmediately {
		ln.Close()
		p := &proc{done: make(chan struct{})}
		p.closeDone()
		return p, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc(backend.AgentCardPath, func(w http.ResponseWriter, r *http.Request) {
		if l.NeverReady {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(l.Card)
	})

	srv := &http.Server{Handler: mux}
	p := &proc{srv: srv, done: make(chan struct{})}
	go func() {
		srv.Serve(ln)
		p.closeDone()
	}()
	return p, nil
}

type proc struct {
	srv  *http.Server
	done chan struct{}
	once sync.Once
}

func (p *proc) Stop() error {
	if p.srv != nil {
		p.srv.Close()
	}
	p.closeDone()
	return nil
}

func (p *proc) Done() <-chan struct{} { return p.done }

func (p *proc) closeDone() {
	p.once.Do(func() { close(p.done) })
}

// Script is one turn's worth of scripted streaming events.
type Script []protocol.StreamingMessageEvent

// Streamer replays scripted event sequences, one script per StreamMessage
// call, and records every open and cancel it sees.
type Streamer struct {
	// HoldOpen keeps each stream's channel open after the script is drained
	// until the stream context is canceled, for supersede/cancel tests.
	HoldOpen bool

	mu       sync.Mutex
	scripts  []Script
	opened   []protocol.SendMessageParams
	canceled []string
}

// NewStreamer creates a Streamer that will replay the given scripts in order.
func NewStreamer(scripts ...Script) *Streamer {
	return &Streamer{scripts: scripts}
}

// Enqueue appends another script to replay.
func (s *Streamer) Enqueue(script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, script)
}

// Opened returns the send params of every opened stream, in order.
func (s *Streamer) Opened() []protocol.SendMessageParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.SendMessageParams(nil), s.opened...)
}

// Canceled returns the task ids cancellation was requested for.
func (s *Streamer) Canceled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.canceled...)
}

// StreamMessage implements the streaming slice of the A2A client.
func (s *Streamer) StreamMessage(ctx context.Context, params protocol.SendMessageParams) (<-chan protocol.StreamingMessageEvent, error) {
	s.mu.Lock()
	s.opened = append(s.opened, params)
	var script Script
	if len(s.scripts) > 0 {
		script = s.scripts[0]
		s.scripts = s.scripts[1:]
	}
	s.mu.Unlock()

	ch := make(chan protocol.StreamingMessageEvent)
	go func() {
		defer close(ch)
		for _, ev := range script {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		if s.HoldOpen {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

// CancelTasks implements adapter.TaskCanceler.
func (s *Streamer) CancelTasks(ctx context.Context, params protocol.TaskIDParams) (*protocol.Task, error) {
	s.mu.Lock()
	s.canceled = append(s.canceled, params.ID)
	s.mu.Unlock()
	return &protocol.Task{ID: params.ID}, nil
}

// TaskEvent builds a task-creation stream event.
func TaskEvent(taskID, contextID string) protocol.StreamingMessageEvent {
	return protocol.StreamingMessageEvent{
		Result: &protocol.Task{
			ID:        taskID,
			ContextID: contextID,
			Kind:      protocol.KindTask,
			Status:    protocol.TaskStatus{State: protocol.TaskStateSubmitted},
		},
	}
}

// StatusEvent builds a status-update stream event carrying the given parts.
func StatusEvent(state protocol.TaskState, final bool, parts ...protocol.Part) protocol.StreamingMessageEvent {
	ev := &protocol.TaskStatusUpdateEvent{
		Kind:   protocol.KindTaskStatusUpdate,
		Status: protocol.TaskStatus{State: state},
		Final:  final,
	}
	if len(parts) > 0 {
		msg := protocol.Message{
			MessageID: protocol.GenerateMessageID(),
			Kind:      protocol.KindMessage,
			Role:      protocol.MessageRoleAgent,
			Parts:     parts,
		}
		ev.Status.Message = &msg
	}
	return protocol.StreamingMessageEvent{Result: ev}
}

// TextStatus builds a working status update with one text part.
func TextStatus(text string) protocol.StreamingMessageEvent {
	return StatusEvent(protocol.TaskStateWorking, false, protocol.NewTextPart(text))
}

// DataStatus builds a working status update with one data part payload.
func DataStatus(payload map[string]interface{}) protocol.StreamingMessageEvent {
	return StatusEvent(protocol.TaskStateWorking, false, protocol.NewDataPart(payload))
}

// FinalStatus builds a terminal status update.
func FinalStatus(state protocol.TaskState) protocol.StreamingMessageEvent {
	return StatusEvent(state, true)
}

// MessageEvent builds a plain message stream event.
func MessageEvent(parts ...protocol.Part) protocol.StreamingMessageEvent {
	msg := protocol.Message{
		MessageID: protocol.GenerateMessageID(),
		Kind:      protocol.KindMessage,
		Role:      protocol.MessageRoleAgent,
		Parts:     parts,
	}
	return protocol.StreamingMessageEvent{Result: &msg}
}

// ArtifactEvent builds an artifact-update stream event.
func ArtifactEvent(artifactID, name string, appendParts bool, parts ...protocol.Part) protocol.StreamingMessageEvent {
	ev := &protocol.TaskArtifactUpdateEvent{
		Kind: protocol.KindTaskArtifactUpdate,
		Artifact: protocol.Artifact{
			ArtifactID: artifactID,
			Parts:      parts,
		},
	}
	if name != "" {
		ev.Artifact.Name = &name
	}
	if appendParts {
		t := true
		ev.Append = &t
	}
	return protocol.StreamingMessageEvent{Result: ev}
}
