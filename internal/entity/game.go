package entity

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

const (
	ReasonLine       = "line"
	ReasonTie        = "tie"
	ReasonTimeout    = "forfeit-timeout"
	ReasonDisconnect = "forfeit-disconnect"
	ReasonInvalid    = "forfeit-invalid"
)

// Outcome is how a finished game ended. Winner is Empty for a tie.
type Outcome struct {
	Winner Mark
	Reason string
}

func Win(mark Mark, reason string) Outcome {
	return Outcome{Winner: mark, Reason: reason}
}

func Tie() Outcome {
	return Outcome{Winner: Empty, Reason: ReasonTie}
}

func (that Outcome) IsTie() bool {
	return that.Winner == Empty
}

func (that Outcome) IsForfeit() bool {
	return that.Reason == ReasonTimeout || that.Reason == ReasonDisconnect || that.Reason == ReasonInvalid
}

// WinnerLabel is "x", "o" or "tie".
func (that Outcome) WinnerLabel() string {
	if that.IsTie() {
		return ReasonTie
	}

	return that.Winner.String()
}
