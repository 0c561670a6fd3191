// Package presenter is the terminal side of a game: it prints what the
// server sends, draws the board and asks the user for moves.
package presenter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rocketscienceinc/tictactoe-socket/internal/entity"
	"github.com/rocketscienceinc/tictactoe-socket/internal/protocol"
)

const notValid = "Your position is not valid. Please enter a new position:"

var ErrInputClosed = errors.New("input closed before a move was entered")

type conn interface {
	Send(ctx context.Context, payload string) error
	Receive(ctx context.Context) ([]string, error)
	Close() error
}

type Presenter struct {
	logger *slog.Logger
	conn   conn
	input  *bufio.Scanner
	output io.Writer

	// lines carries typed lines from the input reader; it is closed at end of input.
	lines    chan string
	inputErr error
	stop     chan struct{}

	// board is the last playfield the server sent; moves are checked against it.
	board *entity.Board
}

func New(logger *slog.Logger, c conn, input io.Reader, output io.Writer) *Presenter {
	return &Presenter{
		logger: logger.With("component", "presenter"),
		conn:   c,
		input:  bufio.NewScanner(input),
		output: output,
		board:  entity.NewBoard(),
		stop:   make(chan struct{}),
	}
}

// Run - handles server messages until the game ends. It returns nil once a
// win or tie was announced. A Presenter runs once.
func (that *Presenter) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")
	defer close(that.stop)

	for {
		payloads, err := that.conn.Receive(ctx)
		if err != nil {
			_ = that.conn.Close()
			return fmt.Errorf("failed to receive: %w", err)
		}

		for _, payload := range payloads {
			kind := protocol.Classify(payload)
			log.Debug("received", "kind", kind.String(), "payload", payload)

			switch kind {
			case protocol.KindBoard:
				board, err := protocol.ParsePlayfield(payload)
				if err != nil {
					log.Warn("ignoring malformed playfield", "payload", payload, "error", err)
					continue
				}
				that.board = board
				that.print(Render(board))

			case protocol.KindTurn:
				that.print(payload + "\n")

				move, err := that.readMove(ctx)
				if err != nil {
					_ = that.conn.Close()
					return err
				}
				if err = that.conn.Send(ctx, move); err != nil {
					_ = that.conn.Close()
					return fmt.Errorf("failed to send move: %w", err)
				}

			case protocol.KindTerminal:
				that.print(payload + "\n")
				return that.conn.Close()

			default:
				that.print(payload + "\n")
			}
		}
	}
}

// readMove reads lines until one names an empty cell of the known board.
// A cancelled ctx stops the wait even while the user has typed nothing.
func (that *Presenter) readMove(ctx context.Context) (string, error) {
	that.startInput()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-that.lines:
			if !ok {
				if that.inputErr != nil {
					return "", fmt.Errorf("failed to read move: %w", that.inputErr)
				}
				return "", ErrInputClosed
			}

			move := strings.TrimSpace(line)
			if that.valid(move) {
				return move, nil
			}
			that.print(notValid + "\n")
		}
	}
}

// startInput reads the input on its own goroutine, since a blocked read
// cannot be interrupted.
func (that *Presenter) startInput() {
	if that.lines != nil {
		return
	}
	that.lines = make(chan string)

	go func() {
		defer close(that.lines)

		for that.input.Scan() {
			select {
			case that.lines <- that.input.Text():
			case <-that.stop:
				return
			}
		}
		that.inputErr = that.input.Err()
	}()
}

func (that *Presenter) valid(move string) bool {
	position, err := entity.ParsePosition(move)
	if err != nil {
		return false
	}

	return that.board.ValidMove(position) == nil
}

func (that *Presenter) print(text string) {
	if _, err := io.WriteString(that.output, text); err != nil {
		that.logger.Error("failed to write output", "error", err)
	}
}

// Render draws board as three rows with separators.
func Render(board *entity.Board) string {
	var sb strings.Builder

	sb.WriteString("\nPlayfield: \n\n")
	for row := 0; row < 3; row++ {
		i := row * 3
		fmt.Fprintf(&sb, "%s|%s|%s\n", board.Cell(i), board.Cell(i+1), board.Cell(i+2))
		if row < 2 {
			sb.WriteString("-+-+-\n")
		}
	}
	sb.WriteString("\n\n")

	return sb.String()
}
