package game

import (
	"math/rand"

	"card-battle-server/card"
)

// Deal shuffles a copy of deck and splits it into a hand of up to handSize cards
// and a draw pile holding the rest in shuffled order. deck itself is left untouched.
// A nil rng uses the package-level source.
func Deal(deck []card.Card, handSize int, rng *rand.Rand) (hand, drawPile []card.Card) {
	shuffled := make([]card.Card, len(deck))
	copy(shuffled, deck)

	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if rng != nil {
		rng.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}

	if handSize > len(shuffled) {
		handSize = len(shuffled)
	}
	if handSize < 0 {
		handSize = 0
	}
	hand = append([]card.Card{}, shuffled[:handSize]...)
	drawPile = append([]card.Card{}, shuffled[handSize:]...)
	return hand, drawPile
}
