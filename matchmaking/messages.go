package matchmaking

// RoomView is the public view of an open room. It carries card names only, never stats.
type RoomView struct {
	RoomID     int      `json:"roomId"`
	OwnerEmail string   `json:"ownerEmail"`
	DeckID     int64    `json:"deckId"`
	DeckName   string   `json:"deckName"`
	CardNames  []string `json:"cardNames"`
}

// RoomCreatedMsg confirms a room to its owner.
type RoomCreatedMsg struct {
	Type string `json:"type"`
	RoomView
}

// RoomListMsg carries the open rooms, either as a reply ("room_list") or as a
// push after a change ("rooms_list_updated").
type RoomListMsg struct {
	Type  string     `json:"type"`
	Rooms []RoomView `json:"rooms"`
}

// GameStartedMsg is sent to both players when a room is joined.
type GameStartedMsg struct {
	Type          string `json:"type"`
	GameID        int    `json:"gameId"`
	OpponentEmail string `json:"opponentEmail"`
	YourTurn      bool   `json:"yourTurn"`
}

// CombatMsg is an informational line about an attack or a knockout.
type CombatMsg struct {
	Type    string `json:"type"`
	GameID  int    `json:"gameId"`
	Message string `json:"message"`
}

// FinalScore is the score line of a finished game.
type FinalScore struct {
	Winner int `json:"winner"`
	Loser  int `json:"loser"`
}

// GameEndedMsg is sent to both players when a game finishes.
type GameEndedMsg struct {
	Type        string     `json:"type"`
	GameID      int        `json:"gameId"`
	WinnerEmail string     `json:"winnerEmail"`
	FinalScore  FinalScore `json:"finalScore"`
	Reason      string     `json:"reason"`
}

// TurnTimeoutMsg tells both players that the turn owner ran out of time.
type TurnTimeoutMsg struct {
	Type          string `json:"type"`
	GameID        int    `json:"gameId"`
	TimedOutEmail string `json:"timedOutEmail"`
}

// Game end reasons.
const (
	ReasonScore                = "score_reached"
	ReasonOpponentDisconnected = "opponent_disconnected"
)
