package socket

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-socket/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-socket/internal/transport/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipe returns a Connection and the raw peer end it talks to.
func pipe(t *testing.T) (*Connection, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	connection := New(local, frame.DefaultLimits())
	t.Cleanup(func() {
		_ = connection.Close()
		_ = remote.Close()
	})

	return connection, remote
}

func writeAsync(t *testing.T, conn net.Conn, chunks ...[]byte) <-chan error {
	t.Helper()

	done := make(chan error, 1)
	go func() {
		for _, chunk := range chunks {
			if _, err := conn.Write(chunk); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	return done
}

func TestConnection_SendReceive(t *testing.T) {
	ctx := context.Background()

	// Given: two connections over an in-memory pipe
	local, remote := net.Pipe()
	server := New(local, frame.DefaultLimits())
	client := New(remote, frame.DefaultLimits())
	defer server.Close()
	defer client.Close()

	// When: the server sends a payload
	errCh := make(chan error, 1)
	go func() { errCh <- server.Send(ctx, "Hello! You're player X!") }()

	payloads, err := client.Receive(ctx)

	// Then: the client receives exactly that payload
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"Hello! You're player X!"}, payloads)
}

func TestConnection_Receive(t *testing.T) {
	ctx := context.Background()

	t.Run("Two frames coalesced into one read", func(t *testing.T) {
		connection, remote := pipe(t)

		// Given: the peer writes two frames with a single write
		buf := append(frame.Encode("Player x has done a move."), frame.Encode("playfield:    x    ")...)
		done := writeAsync(t, remote, buf)

		// When: one receive is made
		payloads, err := connection.Receive(ctx)

		// Then: both payloads are returned together
		require.NoError(t, err)
		require.NoError(t, <-done)
		assert.Equal(t, []string{"Player x has done a move.", "playfield:    x    "}, payloads)
		assert.Equal(t, 0, connection.Buffered())
	})

	t.Run("One frame split across two reads", func(t *testing.T) {
		connection, remote := pipe(t)

		// Given: the peer writes a frame in two pieces
		full := frame.Encode("It's your turn!")
		done := writeAsync(t, remote, full[:5], full[5:])

		// When: receive is called
		payloads, err := connection.Receive(ctx)

		// Then: the pieces are joined into one payload
		require.NoError(t, err)
		require.NoError(t, <-done)
		assert.Equal(t, []string{"It's your turn!"}, payloads)
	})

	t.Run("Partial frame is carried over to the next call", func(t *testing.T) {
		connection, remote := pipe(t)

		// Given: a whole frame followed by the first half of another
		second := frame.Encode("second")
		done := writeAsync(t, remote, append(frame.Encode("first"), second[:3]...))

		// When: the first receive returns
		payloads, err := connection.Receive(ctx)
		require.NoError(t, err)
		require.NoError(t, <-done)

		// Then: only the whole frame is returned and the rest is kept
		assert.Equal(t, []string{"first"}, payloads)
		assert.Equal(t, 3, connection.Buffered())

		// When: the remainder arrives
		done = writeAsync(t, remote, second[3:])
		payloads, err = connection.Receive(ctx)

		// Then: the second frame completes
		require.NoError(t, err)
		require.NoError(t, <-done)
		assert.Equal(t, []string{"second"}, payloads)
	})

	t.Run("Malformed header is fatal", func(t *testing.T) {
		connection, remote := pipe(t)

		done := writeAsync(t, remote, []byte("hello"))

		_, err := connection.Receive(ctx)

		require.ErrorIs(t, err, apperror.ErrMalformedHeader)
		require.NoError(t, <-done)
	})

	t.Run("Peer closing surfaces ConnectionClosed", func(t *testing.T) {
		connection, remote := pipe(t)

		require.NoError(t, remote.Close())

		_, err := connection.Receive(ctx)

		require.ErrorIs(t, err, apperror.ErrConnectionClosed)
	})

	t.Run("Deadline surfaces Timeout", func(t *testing.T) {
		connection, _ := pipe(t)

		timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := connection.Receive(timeoutCtx)

		require.ErrorIs(t, err, apperror.ErrTimeout)
	})

	t.Run("Cancellation surfaces Timeout", func(t *testing.T) {
		connection, _ := pipe(t)

		cancelCtx, cancel := context.WithCancel(ctx)
		time.AfterFunc(20*time.Millisecond, cancel)

		_, err := connection.Receive(cancelCtx)

		require.ErrorIs(t, err, apperror.ErrTimeout)
	})
}

func TestConnection_Close(t *testing.T) {
	ctx := context.Background()
	connection, _ := pipe(t)

	// When: the connection is closed twice
	require.NoError(t, connection.Close())
	require.NoError(t, connection.Close())

	// Then: further use fails with ErrConnectionClosed
	assert.ErrorIs(t, connection.Send(ctx, "late"), apperror.ErrConnectionClosed)
	_, err := connection.Receive(ctx)
	assert.ErrorIs(t, err, apperror.ErrConnectionClosed)
}

func TestConnection_SendTooLarge(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	connection := New(local, frame.Limits{MaxPayloadBytes: 4})
	defer connection.Close()

	err := connection.Send(context.Background(), "too long")

	require.ErrorIs(t, err, apperror.ErrPayloadTooLarge)
}

func TestListener(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Given: a listener on a fresh socket path
	path := filepath.Join(t.TempDir(), "game.sock")
	listener, err := Listen(path, frame.DefaultLimits())
	require.NoError(t, err)
	defer listener.Close()

	// When: a client dials and the server accepts
	accepted := make(chan *Connection, 1)
	go func() {
		conn, acceptErr := listener.Accept(ctx)
		if acceptErr != nil {
			accepted <- nil
			return
		}
		accepted <- conn
	}()

	client, err := Dial(ctx, path, frame.DefaultLimits())
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()

	// Then: frames flow both ways, including a payload that starts with a digit
	require.NoError(t, client.Send(ctx, "4"))
	payloads, err := server.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, payloads)

	require.NoError(t, server.Send(ctx, "playfield:    x    "))
	payloads, err = client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"playfield:    x    "}, payloads)

	// And: a closed server side is seen by the client as ConnectionClosed
	require.NoError(t, server.Close())
	_, err = client.Receive(ctx)
	require.ErrorIs(t, err, apperror.ErrConnectionClosed)
}

func TestListener_AcceptCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.sock")
	listener, err := Listen(path, frame.DefaultLimits())
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = listener.Accept(ctx)

	require.ErrorIs(t, err, context.Canceled)
}

func TestListen_ReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.sock")

	first, err := Listen(path, frame.DefaultLimits())
	require.NoError(t, err)
	// leave the file behind the way a crashed server would
	first.listener.SetUnlinkOnClose(false)
	require.NoError(t, first.Close())

	second, err := Listen(path, frame.DefaultLimits())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
