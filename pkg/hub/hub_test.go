package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/agenthub-dev/agenthub/go/internal/fakeagent"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/accumulate"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/adapter"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/normalize"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/stream"
)

const hubTestBasePort = 43700

type fixture struct {
	hub      *Hub
	streamer *fakeagent.Streamer
	launcher *fakeagent.Launcher
}

func newFixture(t *testing.T, port int, card backend.AgentCard, scripts ...fakeagent.Script) *fixture {
	t.Helper()
	streamer := fakeagent.NewStreamer(scripts...)
	launcher := &fakeagent.Launcher{Card: card}

	a := adapter.NewLocalAdapter(adapter.Options{
		Descriptor:     adapter.GeminiDescriptor(),
		DefaultPort:    port,
		StartupTimeout: 3 * time.Second,
		Launcher:       launcher,
		Log:            logr.Discard(),
		NewCanceler: func(address string) (adapter.TaskCanceler, error) {
			return streamer, nil
		},
	})

	h := New([]adapter.Adapter{a}, Options{
		Log: logr.Discard(),
		NewStreamer: func(address string) (stream.MessageStreamer, error) {
			return streamer, nil
		},
	})
	t.Cleanup(func() { h.Close() })
	return &fixture{hub: h, streamer: streamer, launcher: launcher}
}

func geminiCard() backend.AgentCard {
	return backend.AgentCard{
		Name:     "Gemini CLI",
		Provider: &backend.AgentProvider{Organization: "Google"},
	}
}

func TestRunTurnEndToEnd(t *testing.T) {
	f := newFixture(t, hubTestBasePort, geminiCard(), fakeagent.Script{
		fakeagent.TaskEvent("task-1", "whatever"),
		fakeagent.TextStatus("Hello"),
		fakeagent.TextStatus(" world"),
		fakeagent.FinalStatus(protocol.TaskStateCompleted),
	})

	var updates []TurnUpdate
	msg, err := f.hub.RunTurn(context.Background(), "gemini", "slot-1", "hi", func(u TurnUpdate) {
		updates = append(updates, u)
	})
	require.NoError(t, err)

	require.Len(t, msg.Blocks, 1)
	assert.Equal(t, normalize.BlockText, msg.Blocks[0].Type)
	assert.Equal(t, "Hello world", msg.Blocks[0].Content)
	assert.False(t, msg.IsStreaming)
	assert.False(t, msg.Blocks[0].IsStreaming)

	require.NotEmpty(t, updates)
	final := updates[len(updates)-1]
	assert.Equal(t, accumulate.TurnCompleted, final.State)

	// The submitted user message rode the slot's stable context id.
	opened := f.streamer.Opened()
	require.Len(t, opened, 1)
	require.NotNil(t, opened[0].Message.ContextID)
	contextID, ok := f.hub.Registry().Lookup("slot-1")
	require.True(t, ok)
	assert.Equal(t, contextID, *opened[0].Message.ContextID)
}

func TestRunTurnReusesContextAcrossTurns(t *testing.T) {
	script := fakeagent.Script{fakeagent.FinalStatus(protocol.TaskStateCompleted)}
	f := newFixture(t, hubTestBasePort+1, geminiCard(), script, script)

	_, err := f.hub.RunTurn(context.Background(), "gemini", "slot-1", "one", nil)
	require.NoError(t, err)
	_, err = f.hub.RunTurn(context.Background(), "gemini", "slot-1", "two", nil)
	require.NoError(t, err)

	opened := f.streamer.Opened()
	require.Len(t, opened, 2)
	assert.Equal(t, *opened[0].Message.ContextID, *opened[1].Message.ContextID)

	// Only one backend process despite two turns.
	assert.Equal(t, 1, f.launcher.Launched())
}

func TestRunTurnTransportDropFailsTurn(t *testing.T) {
	// The stream closes mid-turn with no terminal status.
	f := newFixture(t, hubTestBasePort+2, geminiCard(), fakeagent.Script{
		fakeagent.TextStatus("partial answer"),
	})

	msg, err := f.hub.RunTurn(context.Background(), "gemini", "slot-1", "hi", nil)
	require.NoError(t, err)

	require.Len(t, msg.Blocks, 2)
	assert.Equal(t, "partial answer", msg.Blocks[0].Content)
	assert.Equal(t, normalize.BlockError, msg.Blocks[1].Type)
	assert.False(t, msg.IsStreaming)
}

func TestRunTurnFailedStateKeepsPartialOutput(t *testing.T) {
	f := newFixture(t, hubTestBasePort+3, geminiCard(), fakeagent.Script{
		fakeagent.TextStatus("got this far"),
		fakeagent.FinalStatus(protocol.TaskStateFailed),
	})

	var states []accumulate.TurnState
	msg, err := f.hub.RunTurn(context.Background(), "gemini", "slot-1", "hi", func(u TurnUpdate) {
		states = append(states, u.State)
	})
	require.NoError(t, err)

	assert.Equal(t, accumulate.TurnFailed, states[len(states)-1])
	require.NotEmpty(t, msg.Blocks)
	assert.Equal(t, "got this far", msg.Blocks[0].Content)
}

func TestRunTurnUnknownBackend(t *testing.T) {
	f := newFixture(t, hubTestBasePort+4, geminiCard())
	_, err := f.hub.RunTurn(context.Background(), "nope", "slot-1", "hi", nil)
	require.Error(t, err)
}

func TestCancelTurnForwardsLastTaskID(t *testing.T) {
	f := newFixture(t, hubTestBasePort+5, geminiCard(), fakeagent.Script{
		fakeagent.TaskEvent("task-9", "ctx"),
		fakeagent.FinalStatus(protocol.TaskStateCanceled),
	})

	_, err := f.hub.RunTurn(context.Background(), "gemini", "slot-1", "hi", nil)
	require.NoError(t, err)

	require.NoError(t, f.hub.CancelTurn(context.Background(), "gemini", "slot-1"))
	assert.Equal(t, []string{"task-9"}, f.streamer.Canceled())
}

func TestCancelTurnUnknownSlotIsSilent(t *testing.T) {
	f := newFixture(t, hubTestBasePort+6, geminiCard())
	require.NoError(t, f.hub.CancelTurn(context.Background(), "gemini", "never-used"))
	assert.Empty(t, f.streamer.Canceled())
}

func TestClearSlotResetsConversation(t *testing.T) {
	script := fakeagent.Script{fakeagent.FinalStatus(protocol.TaskStateCompleted)}
	f := newFixture(t, hubTestBasePort+7, geminiCard(), script, script)

	_, err := f.hub.RunTurn(context.Background(), "gemini", "slot-1", "one", nil)
	require.NoError(t, err)
	first, _ := f.hub.Registry().Lookup("slot-1")

	f.hub.ClearSlot("slot-1")
	_, ok := f.hub.Registry().Lookup("slot-1")
	assert.False(t, ok)

	_, err = f.hub.RunTurn(context.Background(), "gemini", "slot-1", "two", nil)
	require.NoError(t, err)
	second, _ := f.hub.Registry().Lookup("slot-1")
	assert.NotEqual(t, first, second)
}

func TestOpsServerEndpoints(t *testing.T) {
	f := newFixture(t, hubTestBasePort+8, geminiCard())
	srv := httptest.NewServer(NewOpsServer(f.hub).Handler())
	t.Cleanup(srv.Close)

	res, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, 200, res.StatusCode)

	res, err = srv.Client().Get(srv.URL + "/backends")
	require.NoError(t, err)
	defer res.Body.Close()
	var backends []map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&backends))
	require.Len(t, backends, 1)
	assert.Equal(t, "gemini", backends[0]["id"])
	assert.Equal(t, "disconnected", backends[0]["state"])

	res, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, 200, res.StatusCode)
}
