package entity

// Player is one seat at the table, fixed for the whole session.
type Player struct {
	Mark Mark   `json:"mark"`
	Addr string `json:"addr,omitempty"`
}
