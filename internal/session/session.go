// Package session runs one two-player game. It is the only writer of the
// board and the game status, and it talks to exactly one player at a time:
// while waiting for a move it reads only the active player's connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-socket/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-socket/internal/entity"
	"github.com/rocketscienceinc/tictactoe-socket/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-socket/internal/protocol"
)

const (
	announceTimeout = time.Second
	archiveTimeout  = 5 * time.Second
)

type conn interface {
	Send(ctx context.Context, payload string) error
	Receive(ctx context.Context) ([]string, error)
	Close() error
	RemoteAddr() string
}

type resultArchive interface {
	Save(ctx context.Context, result *entity.Result) error
}

type Options struct {
	// TurnTimeout bounds how long the active player may take; zero waits forever.
	TurnTimeout time.Duration
	// MaxInvalidMoves forfeits a player after that many rejected moves; zero never does.
	MaxInvalidMoves int
	// Archive, when set, receives the result of the finished game.
	Archive resultArchive
}

// State is a snapshot of where the session is.
type State struct {
	Status  string
	Active  entity.Mark
	Outcome entity.Outcome
}

type player struct {
	entity.Player
	conn    conn
	invalid int
}

type Session struct {
	id      uuid.UUID
	logger  *slog.Logger
	options Options

	board   *entity.Board
	players []*player
	active  int
	status  string
	outcome entity.Outcome
}

func New(logger *slog.Logger, options Options) *Session {
	id := uuid.New()

	return &Session{
		id:      id,
		logger:  logger.With("component", "session", "session_id", id.String()),
		options: options,
		board:   entity.NewBoard(),
		players: make([]*player, 0, 2),
		status:  entity.StatusWaiting,
	}
}

func (that *Session) ID() string {
	return that.id.String()
}

func (that *Session) State() State {
	state := State{Status: that.status, Outcome: that.outcome, Active: entity.Empty}
	if that.status == entity.StatusOngoing {
		state.Active = that.players[that.active].Mark
	}

	return state
}

// Board returns the serialized playfield.
func (that *Session) Board() string {
	return that.board.Serialize()
}

// Join - seats the next connection: the first one plays x, the second o.
// Seating the second player starts the game.
func (that *Session) Join(ctx context.Context, c conn) (entity.Mark, error) {
	log := that.logger.With("method", "Join")

	switch {
	case that.status == entity.StatusFinished:
		return entity.Empty, apperror.ErrGameFinished
	case len(that.players) == 2:
		return entity.Empty, apperror.ErrSessionFull
	}

	mark := entity.PlayerX
	if len(that.players) == 1 {
		mark = entity.PlayerO
	}

	seat := &player{
		Player: entity.Player{Mark: mark, Addr: c.RemoteAddr()},
		conn:   c,
	}

	if err := that.send(ctx, seat, protocol.Welcome(mark)); err != nil {
		_ = c.Close()
		return entity.Empty, fmt.Errorf("failed to welcome player %s: %w", mark, err)
	}

	that.players = append(that.players, seat)
	log.Info("player joined", "mark", mark.String(), "addr", seat.Addr)

	if len(that.players) < 2 {
		return mark, nil
	}

	that.status = entity.StatusOngoing
	that.active = 0

	if failed, err := that.broadcast(ctx, protocol.GameBegins); err != nil {
		that.forfeit(ctx, failed, entity.ReasonDisconnect, err)
		return mark, fmt.Errorf("failed to start game: %w", err)
	}

	log.Info("game started")

	return mark, nil
}

// Play - runs turns until the game is decided. A forfeit is a normal end of
// the game and is reported through the outcome, not as an error.
func (that *Session) Play(ctx context.Context) (entity.Outcome, error) {
	switch that.status {
	case entity.StatusWaiting:
		return entity.Outcome{}, apperror.ErrGameIsNotStarted
	case entity.StatusFinished:
		return that.outcome, nil
	}

	for {
		current := that.players[that.active]
		waiting := that.players[1-that.active]

		if err := that.send(ctx, waiting, protocol.PleaseWait(current.Mark)); err != nil {
			return that.abortOrForfeit(ctx, waiting, entity.ReasonDisconnect, err)
		}

		position, ok, err := that.awaitMove(ctx, current)
		if !ok {
			return that.outcome, err
		}

		if err = that.board.Place(position, current.Mark); err != nil {
			// awaitMove validated the position against this same board
			return entity.Outcome{}, fmt.Errorf("failed to commit move: %w", err)
		}
		metrics.RecordMove(current.Mark)
		that.logger.Debug("move committed", "mark", current.Mark.String(), "position", position, "board", that.board.Serialize())

		decided, outcome := that.decide(current.Mark)

		failed, err := that.broadcast(ctx, protocol.Moved(current.Mark))
		if err == nil {
			failed, err = that.broadcast(ctx, protocol.Playfield(that.board))
		}

		switch {
		case decided:
			that.finish(ctx, outcome)
			return outcome, nil
		case err != nil:
			return that.abortOrForfeit(ctx, failed, entity.ReasonDisconnect, err)
		}

		that.active = 1 - that.active
	}
}

// awaitMove prompts current until it sends a move the board accepts. ok is
// false when the session ended instead.
func (that *Session) awaitMove(ctx context.Context, current *player) (int, bool, error) {
	log := that.logger.With("method", "awaitMove", "mark", current.Mark.String())

	turnCtx := ctx
	if that.options.TurnTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, that.options.TurnTimeout)
		defer cancel()
	}

	for {
		if err := that.send(turnCtx, current, protocol.YourTurn); err != nil {
			_, err = that.turnFailed(ctx, current, err)
			return 0, false, err
		}

		payloads, err := that.receive(turnCtx, current)
		if err != nil {
			_, err = that.turnFailed(ctx, current, err)
			return 0, false, err
		}
		if len(payloads) > 1 {
			log.Debug("discarding extra payloads from active player", "count", len(payloads)-1)
		}

		position, err := entity.ParsePosition(payloads[0])
		if err == nil {
			err = that.board.ValidMove(position)
		}
		if err == nil {
			return position, true, nil
		}

		current.invalid++
		metrics.RecordInvalidMove(invalidReason(err))
		log.Warn("rejected move", "payload", payloads[0], "error", err, "attempt", current.invalid)

		if that.options.MaxInvalidMoves > 0 && current.invalid > that.options.MaxInvalidMoves {
			that.forfeit(ctx, current, entity.ReasonInvalid, err)
			return 0, false, nil
		}

		if err = that.send(turnCtx, current, protocol.InvalidMove(err)); err != nil {
			_, err = that.turnFailed(ctx, current, err)
			return 0, false, err
		}
	}
}

// turnFailed ends the session after the active player's connection failed.
func (that *Session) turnFailed(ctx context.Context, current *player, err error) (entity.Outcome, error) {
	reason := entity.ReasonDisconnect
	if errors.Is(err, apperror.ErrTimeout) && ctx.Err() == nil {
		reason = entity.ReasonTimeout
	}

	return that.abortOrForfeit(ctx, current, reason, err)
}

func (that *Session) abortOrForfeit(ctx context.Context, loser *player, reason string, err error) (entity.Outcome, error) {
	if ctx.Err() != nil {
		that.abort(ctx.Err())
		return entity.Outcome{}, fmt.Errorf("session aborted: %w", ctx.Err())
	}

	return that.forfeit(ctx, loser, reason, err), nil
}

func (that *Session) forfeit(ctx context.Context, loser *player, reason string, cause error) entity.Outcome {
	outcome := entity.Win(loser.Mark.Opponent(), reason)
	that.logger.Warn("player forfeits", "mark", loser.Mark.String(), "reason", reason, "error", cause)
	that.finish(ctx, outcome)

	return outcome
}

func (that *Session) decide(mark entity.Mark) (bool, entity.Outcome) {
	switch {
	case that.board.LineComplete(mark):
		return true, entity.Win(mark, entity.ReasonLine)
	case that.board.IsFull():
		return true, entity.Tie()
	default:
		return false, entity.Outcome{}
	}
}

// finish announces outcome to whoever is still listening, closes both
// connections and archives the result.
func (that *Session) finish(ctx context.Context, outcome entity.Outcome) {
	log := that.logger.With("method", "finish")

	that.status = entity.StatusFinished
	that.outcome = outcome

	// a peer that stopped reading must not hold the session open
	final := protocol.Final(outcome)
	for _, p := range that.players {
		announceCtx, cancel := context.WithTimeout(ctx, announceTimeout)
		if err := that.send(announceCtx, p, final); err != nil {
			log.Debug("could not deliver result", "mark", p.Mark.String(), "error", err)
		}
		cancel()
	}
	that.closeAll()

	metrics.RecordSession(outcome)
	log.Info("game finished", "winner", outcome.WinnerLabel(), "reason", outcome.Reason, "moves", that.board.Moves())

	if that.options.Archive == nil {
		return
	}

	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	result := entity.NewResult(that.ID(), outcome, that.board, time.Now())
	if err := that.options.Archive.Save(archiveCtx, result); err != nil {
		log.Error("failed to archive result", "error", err)
	}
}

func (that *Session) abort(cause error) {
	that.status = entity.StatusFinished
	that.closeAll()
	that.logger.Warn("session aborted", "error", cause)
}

func (that *Session) closeAll() {
	for _, p := range that.players {
		if err := p.conn.Close(); err != nil {
			that.logger.Debug("failed to close connection", "mark", p.Mark.String(), "error", err)
		}
	}
}

func (that *Session) broadcast(ctx context.Context, payload string) (*player, error) {
	for _, p := range that.players {
		if err := that.send(ctx, p, payload); err != nil {
			return p, err
		}
	}

	return nil, nil
}

func (that *Session) send(ctx context.Context, p *player, payload string) error {
	if err := p.conn.Send(ctx, payload); err != nil {
		return fmt.Errorf("send to %s: %w", p.Mark, err)
	}
	metrics.RecordFrames(metrics.DirectionOut, 1)

	return nil
}

func (that *Session) receive(ctx context.Context, p *player) ([]string, error) {
	payloads, err := p.conn.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", p.Mark, err)
	}
	metrics.RecordFrames(metrics.DirectionIn, len(payloads))

	return payloads, nil
}

func invalidReason(err error) string {
	switch {
	case errors.Is(err, apperror.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, apperror.ErrCellOccupied):
		return "occupied"
	default:
		return "not_a_number"
	}
}
