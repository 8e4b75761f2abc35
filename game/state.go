package game

import "card-battle-server/card"

// SelfView is the receiving player's own side, with full hand detail.
type SelfView struct {
	Email         string      `json:"email"`
	Hand          []card.Card `json:"hand"`
	Field         *card.Card  `json:"field"`
	Score         int         `json:"score"`
	DrawPileCount int         `json:"drawPileCount"`
}

// OpponentView is the public side of the other player. Hand and draw pile
// contents are never exposed, only their sizes.
type OpponentView struct {
	Email         string     `json:"email"`
	HandCount     int        `json:"handCount"`
	Field         *card.Card `json:"field"`
	Score         int        `json:"score"`
	DrawPileCount int        `json:"drawPileCount"`
}

// GameStateMsg is the full game state sent to a specific player.
type GameStateMsg struct {
	Type             string       `json:"type"`
	GameID           int          `json:"gameId"`
	You              SelfView     `json:"you"`
	Opponent         OpponentView `json:"opponent"`
	YourTurn         bool         `json:"yourTurn"`
	WinScore         int          `json:"winScore"`
	TurnEndsAtUnixMs int64        `json:"turnEndsAtUnixMs,omitempty"`
}

// BuildStateForPlayer returns the game state view for the given seat (0 or 1).
func (g *Game) BuildStateForPlayer(seat int) GameStateMsg {
	p, opp := g.Players[seat], g.Opponent(seat)

	hand := make([]card.Card, len(p.Hand))
	copy(hand, p.Hand)

	state := GameStateMsg{
		Type:   "game_state",
		GameID: g.ID,
		You: SelfView{
			Email:         p.Email(),
			Hand:          hand,
			Field:         copyCard(p.Field),
			Score:         p.Score,
			DrawPileCount: len(p.DrawPile),
		},
		Opponent: OpponentView{
			Email:         opp.Email(),
			HandCount:     len(opp.Hand),
			Field:         copyCard(opp.Field),
			Score:         opp.Score,
			DrawPileCount: len(opp.DrawPile),
		},
		YourTurn: seat == g.CurrentTurn,
		WinScore: g.WinScore,
	}
	if !g.TurnEndsAt.IsZero() {
		state.TurnEndsAtUnixMs = g.TurnEndsAt.UnixMilli()
	}
	return state
}

func copyCard(c *card.Card) *card.Card {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
