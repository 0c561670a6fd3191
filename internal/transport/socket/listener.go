package socket

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/rocketscienceinc/tictactoe-socket/internal/transport/frame"
)

// Listener accepts player connections on a Unix stream socket.
type Listener struct {
	listener *net.UnixListener
	path     string
	limits   frame.Limits
}

// Listen - binds path, replacing a stale socket file left by a previous run.
func Listen(path string, limits frame.Limits) (*Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	listener.SetUnlinkOnClose(true)

	return &Listener{listener: listener, path: path, limits: limits}, nil
}

// Accept - waits for the next player. A cancelled ctx unblocks it.
func (that *Listener) Accept(ctx context.Context) (*Connection, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = that.listener.Close()
	})
	defer stop()

	conn, err := that.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("accept cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to accept: %w", err)
	}

	return New(conn, that.limits), nil
}

func (that *Listener) Path() string {
	return that.path
}

// Close - stops listening and removes the socket file.
func (that *Listener) Close() error {
	if err := that.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close listener: %w", err)
	}

	return nil
}
