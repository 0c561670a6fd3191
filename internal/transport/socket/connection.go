package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-socket/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-socket/internal/transport/frame"
)

const readChunkSize = 4096

// Connection is one framed endpoint. It is owned by a single goroutine:
// Send and Receive must not be called concurrently, Close may be called from anywhere.
type Connection struct {
	conn   net.Conn
	limits frame.Limits

	// pending holds bytes read from the stream that do not yet form a whole frame.
	pending []byte
	chunk   []byte

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func New(conn net.Conn, limits frame.Limits) *Connection {
	return &Connection{
		conn:   conn,
		limits: limits,
		chunk:  make([]byte, readChunkSize),
	}
}

// Dial - connects to the server socket at path.
func Dial(ctx context.Context, path string, limits frame.Limits) (*Connection, error) {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}

	return New(conn, limits), nil
}

// Send - writes payload as one frame.
func (that *Connection) Send(ctx context.Context, payload string) error {
	if that.closed.Load() {
		return apperror.ErrConnectionClosed
	}

	data, err := frame.EncodeWithLimits(payload, that.limits)
	if err != nil {
		return err
	}

	stop := that.watch(ctx, that.conn.SetWriteDeadline)
	defer stop()

	if _, err = that.conn.Write(data); err != nil {
		return that.mapError(ctx, "write", err)
	}

	return nil
}

// Receive - blocks until at least one whole frame is available and returns
// every payload that could be decoded. Bytes of a trailing partial frame stay
// buffered for the next call.
func (that *Connection) Receive(ctx context.Context) ([]string, error) {
	if that.closed.Load() {
		return nil, apperror.ErrConnectionClosed
	}

	stop := that.watch(ctx, that.conn.SetReadDeadline)
	defer stop()

	for {
		payloads, consumed, err := frame.Decode(that.pending, that.limits)
		if consumed > 0 {
			that.pending = append(that.pending[:0], that.pending[consumed:]...)
		}
		if err != nil {
			return nil, err
		}
		if len(payloads) > 0 {
			return payloads, nil
		}

		n, readErr := that.conn.Read(that.chunk)
		if n > 0 {
			that.pending = append(that.pending, that.chunk[:n]...)
		}
		if readErr == nil {
			continue
		}

		// decode what arrived with the error before reporting it
		payloads, consumed, err = frame.Decode(that.pending, that.limits)
		if consumed > 0 {
			that.pending = append(that.pending[:0], that.pending[consumed:]...)
		}
		if err != nil {
			return nil, err
		}
		if len(payloads) > 0 {
			return payloads, nil
		}

		return nil, that.mapError(ctx, "read", readErr)
	}
}

// Buffered reports how many bytes of an incomplete frame are waiting.
func (that *Connection) Buffered() int {
	return len(that.pending)
}

func (that *Connection) RemoteAddr() string {
	if addr := that.conn.RemoteAddr(); addr != nil && addr.String() != "" {
		return addr.String()
	}

	return "unix"
}

// Close - releases the endpoint. Calling it more than once is safe.
func (that *Connection) Close() error {
	that.closeOnce.Do(func() {
		that.closed.Store(true)
		that.closeErr = that.conn.Close()
	})

	return that.closeErr
}

// watch maps ctx onto a socket deadline: its deadline is applied directly and
// a cancellation interrupts a blocked call by moving the deadline to now.
func (that *Connection) watch(ctx context.Context, setDeadline func(time.Time) error) func() {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	_ = setDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = setDeadline(time.Now())
	})

	return func() { stop() }
}

func (that *Connection) mapError(ctx context.Context, op string, err error) error {
	switch {
	case that.closed.Load():
		return apperror.ErrConnectionClosed
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w: %w", op, apperror.ErrTimeout, ctx.Err())
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%s: %w", op, apperror.ErrTimeout)
	case errors.Is(err, io.EOF):
		if len(that.pending) > 0 {
			return fmt.Errorf("%s: %w: peer left %d bytes of a partial frame", op, apperror.ErrConnectionClosed, len(that.pending))
		}
		return fmt.Errorf("%s: %w", op, apperror.ErrConnectionClosed)
	case errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return fmt.Errorf("%s: %w: %w", op, apperror.ErrConnectionClosed, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
