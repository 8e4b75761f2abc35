package game

import (
	"card-battle-server/auth"
	"card-battle-server/card"
)

// Player represents one side of a match.
type Player struct {
	Identity auth.Identity
	Send     chan []byte // reference to the client's send channel

	DeckID   int64
	DeckName string

	Hand     []card.Card
	DrawPile []card.Card // front = next draw
	// Field is a private copy of the active card; HP changes never reach the catalogue.
	Field *card.Card
	Score int
}

// NewPlayer creates a Player from an already dealt hand and draw pile.
func NewPlayer(id auth.Identity, send chan []byte, hand, drawPile []card.Card) *Player {
	if hand == nil {
		hand = []card.Card{}
	}
	if drawPile == nil {
		drawPile = []card.Card{}
	}
	return &Player{
		Identity: id,
		Send:     send,
		Hand:     hand,
		DrawPile: drawPile,
	}
}

// Email is shorthand for the player's identity email.
func (p *Player) Email() string {
	return p.Identity.Email
}
