package entity

import "time"

// Result is the archived record of a finished session.
type Result struct {
	ID         string    `json:"id"`
	Winner     string    `json:"winner"`
	Reason     string    `json:"reason"`
	Moves      int       `json:"moves"`
	Board      string    `json:"board"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewResult(id string, outcome Outcome, board *Board, finishedAt time.Time) *Result {
	return &Result{
		ID:         id,
		Winner:     outcome.WinnerLabel(),
		Reason:     outcome.Reason,
		Moves:      board.Moves(),
		Board:      board.Serialize(),
		FinishedAt: finishedAt.UTC(),
	}
}
