package matcherrors

import "errors"

// Lobby and match sentinel errors. Shared by the storage, game, matchmaking and ws
// packages to avoid circular imports.
var (
	// Client input: reported to the caller only, no state mutated.
	ErrRoomNotFound       = errors.New("room not found")
	ErrSelfJoin           = errors.New("cannot join your own room")
	ErrAlreadyBusy        = errors.New("already in a room or game")
	ErrGameNotFound       = errors.New("game not found")
	ErrNotYourTurn        = errors.New("it is not your turn")
	ErrHandFull           = errors.New("hand is already full")
	ErrFieldOccupied      = errors.New("field is already occupied")
	ErrInvalidCardIndex   = errors.New("invalid card index")
	ErrEmptyOwnField      = errors.New("you have no card on the field")
	ErrEmptyOpponentField = errors.New("opponent has no card on the field")
	ErrInvalidMessage     = errors.New("invalid message")

	// Upstream data: deck resolution failed, nothing created.
	ErrDeckNotFound = errors.New("deck not found")
	ErrDeckNotOwned = errors.New("deck belongs to another user")
	ErrInvalidDeck  = errors.New("deck does not have the required number of cards")

	// Server invariant: the game resolved but the caller is not seated in it.
	ErrNotParticipant = errors.New("identity is not a participant of this game")
)

// ErrorKind classifies errors for reporting.
type ErrorKind int

const (
	ClientInput ErrorKind = iota
	Upstream
	Invariant
)

// String returns the protocol name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case ClientInput:
		return "client_input"
	case Upstream:
		return "upstream"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

var codes = map[error]string{
	ErrRoomNotFound:       "ROOM_NOT_FOUND",
	ErrSelfJoin:           "SELF_JOIN",
	ErrAlreadyBusy:        "ALREADY_BUSY",
	ErrGameNotFound:       "GAME_NOT_FOUND",
	ErrNotYourTurn:        "NOT_YOUR_TURN",
	ErrHandFull:           "HAND_FULL",
	ErrFieldOccupied:      "FIELD_OCCUPIED",
	ErrInvalidCardIndex:   "INVALID_CARD_INDEX",
	ErrEmptyOwnField:      "EMPTY_OWN_FIELD",
	ErrEmptyOpponentField: "EMPTY_OPPONENT_FIELD",
	ErrInvalidMessage:     "INVALID_MESSAGE",
	ErrDeckNotFound:       "DECK_NOT_FOUND",
	ErrDeckNotOwned:       "DECK_NOT_OWNED",
	ErrInvalidDeck:        "INVALID_DECK",
	ErrNotParticipant:     "NOT_PARTICIPANT",
}

// Kind reports how err should be surfaced. Errors that are neither a client input
// sentinel nor an invariant violation (including storage failures) are Upstream.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotParticipant):
		return Invariant
	case errors.Is(err, ErrDeckNotFound), errors.Is(err, ErrDeckNotOwned), errors.Is(err, ErrInvalidDeck):
		return Upstream
	}
	for sentinel := range codes {
		if errors.Is(err, sentinel) {
			return ClientInput
		}
	}
	return Upstream
}

// Code returns the machine-readable code for err, or "UNKNOWN".
func Code(err error) string {
	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "UNKNOWN"
}
