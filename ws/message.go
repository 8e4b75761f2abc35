package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// CreateRoomMsg opens a room with one of the caller's decks.
type CreateRoomMsg struct {
	Type   string `json:"type"`
	DeckID int64  `json:"deckId"`
}

// JoinRoomMsg joins an open room with one of the caller's decks.
type JoinRoomMsg struct {
	Type   string `json:"type"`
	RoomID int    `json:"roomId"`
	DeckID int64  `json:"deckId"`
}

// GameActionMsg is used by draw, attack and end_turn.
type GameActionMsg struct {
	Type   string `json:"type"`
	GameID int    `json:"gameId"`
}

// PlayCardMsg puts a card from the hand on the field.
type PlayCardMsg struct {
	Type      string `json:"type"`
	GameID    int    `json:"gameId"`
	CardIndex int    `json:"cardIndex"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent when a client action is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LogsMsg reports a failure that came from an upstream collaborator, such as deck lookup.
type LogsMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
