// Package protocol defines the text payloads exchanged over frames and how a
// client recognises them. The substrings "turn", "playfield", "Congratulations"
// and "tie" are part of the wire contract.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-socket/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-socket/internal/entity"
)

const PlayfieldTag = "playfield:"

const (
	markerTurn  = "turn"
	markerBoard = "playfield"
	markerWin   = "Congratulations"
	markerTie   = "tie"
)

const (
	GameBegins      = "Both clients have connected to the server. Let the game begin!"
	YourTurn        = "It's your turn! Please enter the position (0-8) to place your token:"
	TieAnnouncement = "It's a tie!"
)

type Kind int

const (
	KindText Kind = iota
	KindBoard
	KindTurn
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindBoard:
		return "board"
	case KindTurn:
		return "turn"
	case KindTerminal:
		return "terminal"
	default:
		return "text"
	}
}

// Classify - decides how a client should react to a payload.
func Classify(payload string) Kind {
	switch {
	case strings.Contains(payload, markerBoard):
		return KindBoard
	case strings.Contains(payload, markerWin), strings.Contains(payload, markerTie):
		return KindTerminal
	case strings.Contains(payload, markerTurn):
		return KindTurn
	default:
		return KindText
	}
}

// Welcome is the greeting for a newly seated player.
func Welcome(mark entity.Mark) string {
	if mark == entity.PlayerX {
		return fmt.Sprintf("Hello! You're player %s! Please wait until a second player joins the game...", mark.Upper())
	}

	return fmt.Sprintf("Hello! You're player %s!", mark.Upper())
}

func PleaseWait(active entity.Mark) string {
	return fmt.Sprintf("Please wait while player %s is making a move!", active)
}

func Moved(mark entity.Mark) string {
	return fmt.Sprintf("Player %s has done a move.", mark)
}

func Playfield(board *entity.Board) string {
	return PlayfieldTag + board.Serialize()
}

// ParsePlayfield - extracts the board from a board broadcast.
func ParsePlayfield(payload string) (*entity.Board, error) {
	idx := strings.Index(payload, PlayfieldTag)
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing %q tag", entity.ErrInvalidBoard, PlayfieldTag)
	}

	return entity.ParseBoard(payload[idx+len(PlayfieldTag):])
}

// InvalidMove explains a rejected move without echoing what the player sent,
// so arbitrary input cannot smuggle a wire marker back to the client.
func InvalidMove(reason error) string {
	var why string
	switch {
	case errors.Is(reason, apperror.ErrCellOccupied):
		why = "that cell is already taken"
	case errors.Is(reason, apperror.ErrOutOfRange):
		why = "position must be between 0 and 8"
	default:
		why = "position must be a number between 0 and 8"
	}

	return fmt.Sprintf("Invalid move: %s. Please try again.", why)
}

// Won announces the winner of a game decided on the board.
func Won(mark entity.Mark) string {
	return fmt.Sprintf("Player %s has won! Congratulations!", mark)
}

// Forfeited announces a game decided because loser could not continue.
func Forfeited(outcome entity.Outcome) string {
	loser := outcome.Winner.Opponent()

	var why string
	switch outcome.Reason {
	case entity.ReasonTimeout:
		why = fmt.Sprintf("Player %s ran out of time.", loser)
	case entity.ReasonDisconnect:
		why = fmt.Sprintf("Player %s left the game.", loser)
	default:
		why = fmt.Sprintf("Player %s made too many invalid moves.", loser)
	}

	return why + " " + Won(outcome.Winner)
}

// Final is the terminal payload for outcome.
func Final(outcome entity.Outcome) string {
	switch {
	case outcome.IsTie():
		return TieAnnouncement
	case outcome.IsForfeit():
		return Forfeited(outcome)
	default:
		return Won(outcome.Winner)
	}
}
