// Package hub is the runtime that ties backend adapters, the session
// registry, and the per-conversation normalization pipeline into a single
// explicit object. Nothing here is a singleton: tests build as many hubs as
// they like.
package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"trpc.group/trpc-go/trpc-a2a-go/client"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/accumulate"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/adapter"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/metrics"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/normalize"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/session"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/stream"
)

// TurnUpdate is one renderer-visible snapshot of an in-flight turn.
type TurnUpdate struct {
	ContextID string
	State     accumulate.TurnState
	Message   accumulate.ChatMessage
}

// Sink receives turn updates as they happen. May be nil.
type Sink func(TurnUpdate)

// Options configure a Hub.
type Options struct {
	Log      logr.Logger
	Registry *session.Registry
	Metrics  *metrics.Metrics

	// NewStreamer builds the streaming client for a resolved backend
	// address. Defaults to the A2A client; tests substitute a fake.
	NewStreamer func(address string) (stream.MessageStreamer, error)
}

// Hub owns a set of backend adapters and runs conversation turns on them.
type Hub struct {
	log         logr.Logger
	registry    *session.Registry
	metrics     *metrics.Metrics
	newStreamer func(address string) (stream.MessageStreamer, error)

	adapters map[string]adapter.Adapter
	order    []string

	mu          sync.Mutex
	openers     map[string]*stream.Opener        // adapter id + address -> opener
	normalizers map[string]*normalize.Normalizer // context id -> pipeline
	tasks       map[string]string                // context id -> last task id
}

// New builds a Hub over the given adapters, keyed by descriptor id.
func New(adapters []adapter.Adapter, opts Options) *Hub {
	if opts.Registry == nil {
		opts.Registry = session.NewRegistry()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.NewStreamer == nil {
		opts.NewStreamer = func(address string) (stream.MessageStreamer, error) {
			return client.NewA2AClient(address)
		}
	}

	h := &Hub{
		log:         opts.Log.WithName("hub"),
		registry:    opts.Registry,
		metrics:     opts.Metrics,
		newStreamer: opts.NewStreamer,
		adapters:    make(map[string]adapter.Adapter),
		openers:     make(map[string]*stream.Opener),
		normalizers: make(map[string]*normalize.Normalizer),
		tasks:       make(map[string]string),
	}
	for _, a := range adapters {
		id := a.Descriptor().ID
		h.adapters[id] = a
		h.order = append(h.order, id)
	}
	return h
}

// Adapters returns the adapters in registration order.
func (h *Hub) Adapters() []adapter.Adapter {
	out := make([]adapter.Adapter, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.adapters[id])
	}
	return out
}

// Adapter resolves a backend id.
func (h *Hub) Adapter(id string) (adapter.Adapter, error) {
	a, ok := h.adapters[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnknownBackend, "unknown backend "+id, nil)
	}
	return a, nil
}

// Registry exposes the slot-to-context table.
func (h *Hub) Registry() *session.Registry { return h.registry }

// Metrics exposes the hub's instrumentation, for the ops surface.
func (h *Hub) Metrics() *metrics.Metrics { return h.metrics }

// Connect brings one backend up, instrumented.
func (h *Hub) Connect(ctx context.Context, backendID string) error {
	a, err := h.Adapter(backendID)
	if err != nil {
		return err
	}
	start := time.Now()
	err = a.Connect(ctx)
	h.metrics.ConnectDuration.Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.metrics.ConnectAttempts.WithLabelValues(backendID, outcome).Inc()
	return err
}

// RunTurn submits user text on a UI slot against one backend and pumps the
// resulting event stream to completion. The sink sees a snapshot after every
// applied event; the final message is also returned.
//
// A transport failure mid-turn surfaces as an error block on the message and
// a failed turn, not as a Go error: the conversation keeps its history.
func (h *Hub) RunTurn(ctx context.Context, backendID, slotID, text string, sink Sink) (accumulate.ChatMessage, error) {
	a, err := h.Adapter(backendID)
	if err != nil {
		return accumulate.ChatMessage{}, err
	}
	contextID := h.registry.ContextFor(slotID)
	turn := accumulate.NewTurn(uuid.NewString())

	if err := h.Connect(ctx, backendID); err != nil {
		h.failTurn(turn, contextID, "backend connect failed: "+err.Error(), sink)
		return turn.Message(), err
	}

	kind, _ := a.DetectKind(ctx)
	norm := h.normalizerFor(contextID, kind)
	opener, err := h.openerFor(a)
	if err != nil {
		h.failTurn(turn, contextID, "backend client failed: "+err.Error(), sink)
		return turn.Message(), err
	}

	h.metrics.TurnsStarted.Inc()
	ts, err := opener.OpenTurn(ctx, contextID, text)
	if err != nil {
		h.failTurn(turn, contextID, "failed to open turn: "+err.Error(), sink)
		h.metrics.TurnsFinished.WithLabelValues(string(turn.State())).Inc()
		return turn.Message(), err
	}

	for {
		ev, err := ts.Next(ctx)
		if err != nil {
			if errors.Is(err, stream.ErrClosed) && turn.State().Terminal() {
				break
			}
			// The stream died before the backend finished: either the
			// transport closed mid-turn or the caller aborted.
			reason := "stream closed before the turn finished"
			if !errors.Is(err, stream.ErrClosed) {
				reason = err.Error()
			}
			h.failTurn(turn, contextID, reason, sink)
			break
		}

		if taskID := ts.TaskID(); taskID != "" {
			h.rememberTask(contextID, taskID)
		}
		h.metrics.EventsNormalized.WithLabelValues(string(kind)).Inc()

		turn.Apply(norm.Normalize(ev))
		if ev.Status != nil {
			turn.Transition(accumulate.TurnStateFromTask(ev.Status.Status.State))
		}
		h.emit(sink, contextID, turn)

		if turn.State().Terminal() {
			break
		}
	}

	h.metrics.TurnsFinished.WithLabelValues(string(turn.State())).Inc()
	return turn.Message(), nil
}

// CancelTurn asks the backend to abort the slot's in-flight turn.
// Best-effort: unknown slots and finished turns succeed silently.
func (h *Hub) CancelTurn(ctx context.Context, backendID, slotID string) error {
	a, err := h.Adapter(backendID)
	if err != nil {
		return err
	}
	contextID, ok := h.registry.Lookup(slotID)
	if !ok {
		return nil
	}
	h.mu.Lock()
	taskID := h.tasks[contextID]
	h.mu.Unlock()
	return a.CancelTurn(ctx, taskID)
}

// ClearSlot drops a slot's conversation: its context mapping, its
// normalization state, and its task bookkeeping.
func (h *Hub) ClearSlot(slotID string) {
	contextID, ok := h.registry.Lookup(slotID)
	h.registry.Clear(slotID)
	if !ok {
		return
	}
	h.mu.Lock()
	delete(h.normalizers, contextID)
	delete(h.tasks, contextID)
	h.mu.Unlock()
}

// Close disconnects every adapter, aggregating teardown failures.
func (h *Hub) Close() error {
	var result *multierror.Error
	for _, id := range h.order {
		if err := h.adapters[id].Disconnect(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (h *Hub) failTurn(turn *accumulate.Turn, contextID, reason string, sink Sink) {
	turn.Apply([]normalize.Block{{Type: normalize.BlockError, Text: reason}})
	turn.Transition(accumulate.TurnFailed)
	h.emit(sink, contextID, turn)
}

func (h *Hub) emit(sink Sink, contextID string, turn *accumulate.Turn) {
	if sink == nil {
		return
	}
	sink(TurnUpdate{
		ContextID: contextID,
		State:     turn.State(),
		Message:   turn.Message(),
	})
}

func (h *Hub) rememberTask(contextID, taskID string) {
	h.mu.Lock()
	h.tasks[contextID] = taskID
	h.mu.Unlock()
}

// normalizerFor returns the conversation's pipeline, rebuilding it when the
// conversation moves to a backend of a different kind (correlation state
// does not transfer across grammars).
func (h *Hub) normalizerFor(contextID string, kind backend.Kind) *normalize.Normalizer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if norm, ok := h.normalizers[contextID]; ok && norm.Kind() == kind {
		return norm
	}
	norm := normalize.New(kind)
	h.normalizers[contextID] = norm
	return norm
}

// openerFor returns the opener for the adapter's current address, building a
// streaming client on first use per address.
func (h *Hub) openerFor(a adapter.Adapter) (*stream.Opener, error) {
	address := a.Address()
	if address == "" {
		return nil, apperrors.New(apperrors.ErrCodeNotConnected, "adapter has no address", nil)
	}
	key := a.Descriptor().ID + "|" + address

	h.mu.Lock()
	defer h.mu.Unlock()
	if opener, ok := h.openers[key]; ok {
		return opener, nil
	}
	streamer, err := h.newStreamer(address)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConnectFailed, "failed to create streaming client", err)
	}
	opener := stream.NewOpener(streamer, h.log)
	h.openers[key] = opener
	return opener, nil
}
