package adapter

import (
	"context"
	"net"
	"strconv"

	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
)

// ProbePort finds the first free TCP port at or above start by binding
// candidate ports sequentially. There is no upper bound: an environment with
// every port busy will block until ctx is done, so callers bound the probe
// with their startup timeout.
func ProbePort(ctx context.Context, host string, start int) (int, error) {
	for port := start; ; port++ {
		select {
		case <-ctx.Done():
			return 0, apperrors.New(apperrors.ErrCodePortProbe, "port probe aborted", ctx.Err())
		default:
		}

		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
}
