package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrSessionFull      = errors.New("session already has two players")

	ErrOutOfRange   = errors.New("position is out of range")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrInvalidMove  = errors.New("invalid move")

	ErrTruncatedFrame   = errors.New("truncated frame")
	ErrMalformedHeader  = errors.New("malformed frame header")
	ErrPayloadTooLarge  = errors.New("frame payload too large")
	ErrConnectionClosed = errors.New("connection closed")
	ErrTimeout          = errors.New("timed out")

	ErrUsage = errors.New("usage error")
)
