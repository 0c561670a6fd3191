package entity

import "strings"

// Mark is the content of a cell and the token a player places.
type Mark byte

const (
	Empty   Mark = ' '
	PlayerX Mark = 'x'
	PlayerO Mark = 'o'
)

func (m Mark) Valid() bool {
	return m == Empty || m == PlayerX || m == PlayerO
}

// Opponent returns the other player's mark.
func (m Mark) Opponent() Mark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return Empty
	}
}

func (m Mark) String() string {
	return string(m)
}

// Upper is the capitalised mark used in greetings.
func (m Mark) Upper() string {
	return strings.ToUpper(string(m))
}
