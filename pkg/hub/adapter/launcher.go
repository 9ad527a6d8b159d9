package adapter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
)

// Process is a handle to a running backend serving surface.
type Process interface {
	// Stop tears the process down. Safe to call more than once.
	Stop() error
	// Done is closed when the process exits for any reason.
	Done() <-chan struct{}
}

// Launcher brings up a backend's serving surface on a reserved host:port.
// The default implementation spawns the backend CLI as a subprocess; tests
// substitute an in-process server.
type Launcher interface {
	Launch(ctx context.Context, host string, port int) (Process, error)
}

// CommandLauncher launches an external backend CLI subprocess. Occurrences of
// "{host}" and "{port}" in the argument list are expanded before exec; the
// port is also exported as PORT in the child environment.
type CommandLauncher struct {
	Command string
	Args    []string
	Env     []string
	Dir     string

	log logr.Logger
}

// NewCommandLauncher creates a CommandLauncher for the given CLI invocation.
func NewCommandLauncher(command string, args []string, log logr.Logger) *CommandLauncher {
	return &CommandLauncher{
		Command: command,
		Args:    args,
		log:     log.WithName("launcher"),
	}
}

// Launch starts the subprocess and returns a handle to it.
func (l *CommandLauncher) Launch(ctx context.Context, host string, port int) (Process, error) {
	args := make([]string, len(l.Args))
	for i, arg := range l.Args {
		arg = strings.ReplaceAll(arg, "{host}", host)
		arg = strings.ReplaceAll(arg, "{port}", strconv.Itoa(port))
		args[i] = arg
	}

	cmd := exec.Command(l.Command, args...)
	cmd.Dir = l.Dir
	cmd.Env = append(os.Environ(), l.Env...)
	cmd.Env = append(cmd.Env, fmt.Sprintf("PORT=%d", port), fmt.Sprintf("HOST=%s", host))

	if err := cmd.Start(); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeLaunchFailed,
			fmt.Sprintf("failed to start %s", l.Command), err)
	}

	l.log.V(1).Info("backend process started", "command", l.Command, "pid", cmd.Process.Pid, "port", port)

	p := &cliProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type cliProcess struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

func (p *cliProcess) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Kill(); err != nil {
		return apperrors.New(apperrors.ErrCodeLaunchFailed, "failed to kill backend process", err)
	}
	<-p.done
	return nil
}

func (p *cliProcess) Done() <-chan struct{} {
	return p.done
}
