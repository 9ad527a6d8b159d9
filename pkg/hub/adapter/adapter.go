// Package adapter manages one backend's local serving surface: process
// lifecycle, address discovery, connection state, and turn cancellation.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	"trpc.group/trpc-go/trpc-a2a-go/client"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
)

const readyPollInterval = 200 * time.Millisecond

// Adapter is the uniform contract over one backend's serving surface.
type Adapter interface {
	Descriptor() backend.Descriptor
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	Address() string
	Connection() *Connection
	DetectKind(ctx context.Context) (backend.Kind, error)
	CancelTurn(ctx context.Context, taskID string) error
}

// TaskCanceler is the slice of the A2A client the adapter needs for
// best-effort turn cancellation.
type TaskCanceler interface {
	CancelTasks(ctx context.Context, params protocol.TaskIDParams) (*protocol.Task, error)
}

// Options configure a LocalAdapter.
type Options struct {
	Descriptor     backend.Descriptor
	Host           string
	DefaultPort    int
	StartupTimeout time.Duration
	Launcher       Launcher
	Detector       *backend.Detector
	Log            logr.Logger

	// NewCanceler builds the cancellation client for a resolved address.
	// Defaults to the A2A client; tests substitute a fake.
	NewCanceler func(address string) (TaskCanceler, error)
}

// LocalAdapter runs one backend behind a locally managed serving surface.
type LocalAdapter struct {
	opts     Options
	conn     *Connection
	detector *backend.Detector
	log      logr.Logger

	mu       sync.Mutex
	proc     Process
	canceler TaskCanceler
}

// NewLocalAdapter creates an adapter from options, filling defaults.
func NewLocalAdapter(opts Options) *LocalAdapter {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Detector == nil {
		opts.Detector = backend.NewDetector()
	}
	if opts.NewCanceler == nil {
		opts.NewCanceler = func(address string) (TaskCanceler, error) {
			return client.NewA2AClient(address)
		}
	}
	return &LocalAdapter{
		opts:     opts,
		conn:     NewConnection(),
		detector: opts.Detector,
		log:      opts.Log.WithName(opts.Descriptor.ID),
	}
}

// Descriptor returns the adapter's static backend description.
func (a *LocalAdapter) Descriptor() backend.Descriptor {
	return a.opts.Descriptor
}

// Connection exposes the adapter's connection state for status reporting.
func (a *LocalAdapter) Connection() *Connection {
	return a.conn
}

// IsConnected reports whether the backend is up and addressable.
func (a *LocalAdapter) IsConnected() bool {
	return a.conn.State() == StateConnected
}

// Address returns the resolved backend address, or "" unless connected.
func (a *LocalAdapter) Address() string {
	return a.conn.Address()
}

// Connect brings the backend's serving surface up and resolves its address.
// Idempotent: a connected adapter returns immediately with no side effects.
func (a *LocalAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn.State() == StateConnected {
		return nil
	}
	a.conn.setConnecting()

	if a.opts.StartupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.StartupTimeout)
		defer cancel()
	}

	port, err := ProbePort(ctx, a.opts.Host, a.opts.DefaultPort)
	if err != nil {
		connErr := a.startupError(err)
		a.conn.setError(connErr)
		return connErr
	}

	proc, err := a.opts.Launcher.Launch(ctx, a.opts.Host, port)
	if err != nil {
		a.conn.setError(err)
		return err
	}

	address := fmt.Sprintf("http://%s:%d", a.opts.Host, port)
	if err := a.waitReady(ctx, address, proc); err != nil {
		// Startup failed after partial initialization: release the process
		// before the error propagates.
		result := multierror.Append(err)
		if stopErr := proc.Stop(); stopErr != nil {
			result = multierror.Append(result, stopErr)
		}
		a.conn.setError(err)
		return result.ErrorOrNil()
	}

	canceler, err := a.opts.NewCanceler(address)
	if err != nil {
		result := multierror.Append(
			apperrors.New(apperrors.ErrCodeConnectFailed, "failed to create backend client", err))
		if stopErr := proc.Stop(); stopErr != nil {
			result = multierror.Append(result, stopErr)
		}
		a.conn.setError(err)
		return result.ErrorOrNil()
	}

	a.proc = proc
	a.canceler = canceler
	a.conn.setConnected(address)
	a.log.Info("backend connected", "address", address)
	return nil
}

// waitReady polls the agent card endpoint until the backend answers. Failing
// fast when the process dies avoids waiting out the whole startup timeout.
func (a *LocalAdapter) waitReady(ctx context.Context, address string, proc Process) error {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		if _, err := a.detector.FetchCard(ctx, address); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return a.startupError(ctx.Err())
		case <-proc.Done():
			return apperrors.New(apperrors.ErrCodeLaunchFailed, "backend exited during startup", nil)
		case <-ticker.C:
		}
	}
}

// startupError distinguishes a startup timeout from other connect failures.
func (a *LocalAdapter) startupError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.New(apperrors.ErrCodeStartupTimeout,
			fmt.Sprintf("%s did not come up within %s", a.opts.Descriptor.ID, a.opts.StartupTimeout), err)
	}
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr
	}
	return apperrors.New(apperrors.ErrCodeConnectFailed, "backend startup failed", err)
}

// Disconnect tears the serving surface down, forgets the address, and resets
// state to Disconnected. Safe to call when already disconnected.
func (a *LocalAdapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var result *multierror.Error
	if a.proc != nil {
		if err := a.proc.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
		a.proc = nil
	}
	if address := a.conn.Address(); address != "" {
		a.detector.Forget(address)
	}
	a.canceler = nil
	a.conn.reset()
	return result.ErrorOrNil()
}

// DetectKind resolves the backend kind from the agent card served at the
// connected address. Falls back to the declared kind when discovery fails or
// the adapter is not connected.
func (a *LocalAdapter) DetectKind(ctx context.Context) (backend.Kind, error) {
	address := a.conn.Address()
	if address == "" {
		return a.opts.Descriptor.Kind, apperrors.New(apperrors.ErrCodeNotConnected, "adapter is not connected", nil)
	}

	kind, err := a.detector.DetectKind(ctx, address)
	if err != nil {
		a.log.V(1).Info("kind detection failed, using declared kind", "reason", err.Error())
		return a.opts.Descriptor.Kind, nil
	}
	if kind == backend.KindGeneric && a.opts.Descriptor.Kind != backend.KindGeneric {
		// An unhelpful card beats the adapter's own declaration only when the
		// adapter declares nothing.
		return a.opts.Descriptor.Kind, nil
	}
	return kind, nil
}

// CancelTurn asks the backend to abort a turn. Best-effort: a turn the
// backend no longer knows about, or an adapter with no live connection,
// succeeds silently.
func (a *LocalAdapter) CancelTurn(ctx context.Context, taskID string) error {
	a.mu.Lock()
	canceler := a.canceler
	a.mu.Unlock()

	if canceler == nil || taskID == "" {
		return nil
	}
	if _, err := canceler.CancelTasks(ctx, protocol.TaskIDParams{ID: taskID}); err != nil {
		a.log.V(1).Info("cancel ignored", "task", taskID, "reason", err.Error())
	}
	return nil
}
