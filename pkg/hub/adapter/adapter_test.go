package adapter_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/agenthub-dev/agenthub/go/internal/fakeagent"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/adapter"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
)

const testBasePort = 42700

type recordingCanceler struct {
	ids []string
	err error
}

func (r *recordingCanceler) CancelTasks(ctx context.Context, params protocol.TaskIDParams) (*protocol.Task, error) {
	r.ids = append(r.ids, params.ID)
	if r.err != nil {
		return nil, r.err
	}
	return &protocol.Task{ID: params.ID}, nil
}

func newTestAdapter(t *testing.T, launcher *fakeagent.Launcher, port int) (*adapter.LocalAdapter, *recordingCanceler) {
	t.Helper()
	canceler := &recordingCanceler{}
	a := adapter.NewLocalAdapter(adapter.Options{
		Descriptor:     adapter.GeminiDescriptor(),
		DefaultPort:    port,
		StartupTimeout: 3 * time.Second,
		Launcher:       launcher,
		Log:            logr.Discard(),
		NewCanceler: func(address string) (adapter.TaskCanceler, error) {
			return canceler, nil
		},
	})
	t.Cleanup(func() { a.Disconnect() })
	return a, canceler
}

func geminiCard() backend.AgentCard {
	return backend.AgentCard{
		Name:     "Gemini CLI",
		Provider: &backend.AgentProvider{Organization: "Google"},
	}
}

func TestConnectResolvesAddress(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: geminiCard()}
	a, _ := newTestAdapter(t, launcher, testBasePort)

	require.NoError(t, a.Connect(context.Background()))
	assert.True(t, a.IsConnected())
	assert.Equal(t, adapter.StateConnected, a.Connection().State())
	assert.Contains(t, a.Address(), "http://127.0.0.1:")
}

func TestConnectIsIdempotent(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: geminiCard()}
	a, _ := newTestAdapter(t, launcher, testBasePort+1)

	require.NoError(t, a.Connect(context.Background()))
	address := a.Address()

	require.NoError(t, a.Connect(context.Background()))
	assert.Equal(t, address, a.Address())
	assert.Equal(t, 1, launcher.Launched())
}

func TestConnectAdvancesPastBusyPort(t *testing.T) {
	first := &fakeagent.Launcher{Card: geminiCard()}
	a1, _ := newTestAdapter(t, first, testBasePort+2)
	require.NoError(t, a1.Connect(context.Background()))

	// The second adapter wants the same default port and must settle on a
	// different one instead of failing.
	second := &fakeagent.Launcher{Card: geminiCard()}
	a2, _ := newTestAdapter(t, second, testBasePort+2)
	require.NoError(t, a2.Connect(context.Background()))

	assert.NotEqual(t, a1.Address(), a2.Address())
}

func TestConnectLaunchFailure(t *testing.T) {
	launcher := &fakeagent.Launcher{FailToStart: true}
	a, _ := newTestAdapter(t, launcher, testBasePort+3)

	err := a.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, adapter.StateError, a.Connection().State())
	assert.NotEmpty(t, a.Connection().LastError())
	assert.Empty(t, a.Address())
}

func TestConnectFailsFastWhenProcessDies(t *testing.T) {
	launcher := &fakeagent.Launcher{ExitImmediately: true}
	a, _ := newTestAdapter(t, launcher, testBasePort+4)

	start := time.Now()
	err := a.Connect(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLaunchFailed))
}

func TestConnectStartupTimeout(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: geminiCard(), NeverReady: true}
	canceler := &recordingCanceler{}
	a := adapter.NewLocalAdapter(adapter.Options{
		Descriptor:     adapter.CodexDescriptor(),
		DefaultPort:    testBasePort + 5,
		StartupTimeout: 300 * time.Millisecond,
		Launcher:       launcher,
		Log:            logr.Discard(),
		NewCanceler: func(address string) (adapter.TaskCanceler, error) {
			return canceler, nil
		},
	})
	t.Cleanup(func() { a.Disconnect() })

	err := a.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStartupTimeout), "got %v", err)
	assert.Equal(t, adapter.StateError, a.Connection().State())
}

func TestDisconnectReleasesAndResets(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: geminiCard()}
	a, _ := newTestAdapter(t, launcher, testBasePort+6)

	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, a.Disconnect())

	assert.Equal(t, adapter.StateDisconnected, a.Connection().State())
	assert.False(t, a.IsConnected())
	assert.Empty(t, a.Address())

	// Reconnect works and launches a fresh process.
	require.NoError(t, a.Connect(context.Background()))
	assert.Equal(t, 2, launcher.Launched())
}

func TestDisconnectWhenNeverConnected(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: geminiCard()}
	a, _ := newTestAdapter(t, launcher, testBasePort+7)
	assert.NoError(t, a.Disconnect())
}

func TestDetectKindFromCard(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: backend.AgentCard{
		Name:     "claude-code",
		Provider: &backend.AgentProvider{Organization: "Anthropic"},
	}}
	canceler := &recordingCanceler{}
	a := adapter.NewLocalAdapter(adapter.Options{
		Descriptor:     backend.Descriptor{ID: "custom", Kind: backend.KindGeneric},
		DefaultPort:    testBasePort + 8,
		StartupTimeout: 3 * time.Second,
		Launcher:       launcher,
		Log:            logr.Discard(),
		NewCanceler: func(address string) (adapter.TaskCanceler, error) {
			return canceler, nil
		},
	})
	t.Cleanup(func() { a.Disconnect() })

	require.NoError(t, a.Connect(context.Background()))
	kind, err := a.DetectKind(context.Background())
	require.NoError(t, err)
	assert.Equal(t, backend.KindClaude, kind)
}

func TestDetectKindFallsBackWhenDisconnected(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: geminiCard()}
	a, _ := newTestAdapter(t, launcher, testBasePort+9)

	kind, err := a.DetectKind(context.Background())
	assert.Equal(t, backend.KindGemini, kind)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotConnected))
}

func TestCancelTurnBestEffort(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: geminiCard()}
	a, canceler := newTestAdapter(t, launcher, testBasePort+10)

	// No connection yet: silent success.
	require.NoError(t, a.CancelTurn(context.Background(), "task-1"))
	assert.Empty(t, canceler.ids)

	require.NoError(t, a.Connect(context.Background()))

	require.NoError(t, a.CancelTurn(context.Background(), "task-1"))
	assert.Equal(t, []string{"task-1"}, canceler.ids)

	// An empty task id means no turn to cancel.
	require.NoError(t, a.CancelTurn(context.Background(), ""))
	assert.Len(t, canceler.ids, 1)

	// A backend that rejects the cancel still reports success.
	canceler.err = assert.AnError
	require.NoError(t, a.CancelTurn(context.Background(), "task-2"))
}

func TestProbePortSkipsBusyPort(t *testing.T) {
	launcher := &fakeagent.Launcher{Card: geminiCard()}
	a, _ := newTestAdapter(t, launcher, testBasePort+11)
	require.NoError(t, a.Connect(context.Background()))

	port, err := adapter.ProbePort(context.Background(), "127.0.0.1", testBasePort+11)
	require.NoError(t, err)
	assert.Greater(t, port, testBasePort+11)
}

func TestProbePortAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := adapter.ProbePort(ctx, "127.0.0.1", testBasePort+12)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePortProbe))
}
