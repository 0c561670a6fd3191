package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-socket/internal/apperror"
)

// BoardSize is the number of cells on the 3x3 playfield.
const BoardSize = 9

var (
	ErrInvalidBoard = errors.New("invalid board state")

	WinCombos = [][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

// Board is the row-major playfield plus the number of moves committed to it.
// The zero value is not usable, use NewBoard.
type Board struct {
	cells [BoardSize]Mark
	moves int
}

func NewBoard() *Board {
	board := &Board{}
	for i := range board.cells {
		board.cells[i] = Empty
	}

	return board
}

// ParseBoard - restores a board from its 9-character wire form.
func ParseBoard(state string) (*Board, error) {
	if len(state) != BoardSize {
		return nil, fmt.Errorf("%w: want %d cells, got %d", ErrInvalidBoard, BoardSize, len(state))
	}

	board := NewBoard()
	for i := 0; i < BoardSize; i++ {
		mark := Mark(state[i])
		if !mark.Valid() {
			return nil, fmt.Errorf("%w: unexpected cell %q at %d", ErrInvalidBoard, state[i], i)
		}

		board.cells[i] = mark
		if mark != Empty {
			board.moves++
		}
	}

	return board, nil
}

// ParsePosition - reads a base-10 cell index typed by a player. Only ASCII
// digits are accepted, so signs such as "+4" or "-0" are rejected.
func ParsePosition(raw string) (int, error) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.TrimLeft(text, "0123456789") != "" {
		return 0, fmt.Errorf("%w: %q is not a number", apperror.ErrInvalidMove, raw)
	}

	position, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", apperror.ErrInvalidMove, raw)
	}

	return position, nil
}

// ValidMove - checks that position is on the board and still empty.
func (that *Board) ValidMove(position int) error {
	if position < 0 || position >= BoardSize {
		return fmt.Errorf("%w: position %d", apperror.ErrOutOfRange, position)
	}

	if that.cells[position] != Empty {
		return fmt.Errorf("%w: position %d", apperror.ErrCellOccupied, position)
	}

	return nil
}

func (that *Board) Place(position int, mark Mark) error {
	if mark != PlayerX && mark != PlayerO {
		return fmt.Errorf("%w: mark %q", apperror.ErrInvalidMove, byte(mark))
	}

	if err := that.ValidMove(position); err != nil {
		return err
	}

	that.cells[position] = mark
	that.moves++

	return nil
}

func (that *Board) Cell(position int) Mark {
	if position < 0 || position >= BoardSize {
		return Empty
	}

	return that.cells[position]
}

// LineComplete - reports whether any row, column or diagonal is held entirely by mark.
func (that *Board) LineComplete(mark Mark) bool {
	if mark == Empty {
		return false
	}

	for _, combo := range WinCombos {
		if that.cells[combo[0]] == mark && that.cells[combo[1]] == mark && that.cells[combo[2]] == mark {
			return true
		}
	}

	return false
}

func (that *Board) IsFull() bool {
	return that.moves == BoardSize
}

func (that *Board) Moves() int {
	return that.moves
}

// Serialize - one character per cell: space for empty, lowercase mark otherwise.
func (that *Board) Serialize() string {
	buf := make([]byte, BoardSize)
	for i, mark := range that.cells {
		buf[i] = byte(mark)
	}

	return string(buf)
}
