package game

import (
	"fmt"

	"card-battle-server/card"
	"card-battle-server/matcherrors"
)

// AttackResult describes one resolved attack.
type AttackResult struct {
	Attacker card.Card
	Defender card.Card // defender as it was after taking damage
	Damage   int
	// RemainingHP is the defender's HP after the hit, floored at 0.
	RemainingHP int
	KnockedOut  bool
	Ended       bool
}

// Messages returns the combat log lines for the attack: one for the hit and one
// more if the defender was knocked out.
func (r AttackResult) Messages(attacker, defender *Player) []string {
	msgs := []string{fmt.Sprintf("%s's %s attacks %s's %s for %d damage (%d HP left)",
		attacker.Email(), r.Attacker.Name, defender.Email(), r.Defender.Name, r.Damage, r.RemainingHP)}
	if r.KnockedOut {
		msgs = append(msgs, fmt.Sprintf("%s is knocked out! %s scores (%d-%d)",
			r.Defender.Name, attacker.Email(), attacker.Score, defender.Score))
	}
	return msgs
}

func (g *Game) checkTurn(seat int) error {
	if g.Finished {
		return matcherrors.ErrGameNotFound
	}
	if seat < 0 || seat > 1 {
		return matcherrors.ErrNotParticipant
	}
	if seat != g.CurrentTurn {
		return matcherrors.ErrNotYourTurn
	}
	return nil
}

// Draw moves cards from the front of the draw pile into the hand until the hand
// is full or the pile is empty, and returns how many were drawn. Drawing with an
// empty pile is a successful no-op.
func (g *Game) Draw(seat int) (int, error) {
	if err := g.checkTurn(seat); err != nil {
		return 0, err
	}
	p := g.Players[seat]
	if len(p.Hand) >= g.HandSize {
		return 0, matcherrors.ErrHandFull
	}
	drawn := 0
	for len(p.Hand) < g.HandSize && len(p.DrawPile) > 0 {
		p.Hand = append(p.Hand, p.DrawPile[0])
		p.DrawPile = p.DrawPile[1:]
		drawn++
	}
	return drawn, nil
}

// PlayCard moves hand[index] onto the player's empty field.
func (g *Game) PlayCard(seat, index int) (card.Card, error) {
	if err := g.checkTurn(seat); err != nil {
		return card.Card{}, err
	}
	p := g.Players[seat]
	if p.Field != nil {
		return card.Card{}, matcherrors.ErrFieldOccupied
	}
	if index < 0 || index >= len(p.Hand) {
		return card.Card{}, matcherrors.ErrInvalidCardIndex
	}
	c := p.Hand[index]
	p.Hand = append(p.Hand[:index:index], p.Hand[index+1:]...)
	p.Field = &c
	return c, nil
}

// Attack resolves the player's field card against the opponent's. A knockout
// scores a point and clears the opponent's field; reaching WinScore ends the
// game, otherwise the turn passes.
func (g *Game) Attack(seat int) (AttackResult, error) {
	if err := g.checkTurn(seat); err != nil {
		return AttackResult{}, err
	}
	p, opp := g.Players[seat], g.Opponent(seat)
	if p.Field == nil {
		return AttackResult{}, matcherrors.ErrEmptyOwnField
	}
	if opp.Field == nil {
		return AttackResult{}, matcherrors.ErrEmptyOpponentField
	}

	dmg := g.Oracle.Damage(p.Field.Attack, p.Field.Type, opp.Field.Type)
	if dmg < 0 {
		dmg = 0
	}
	opp.Field.HP -= dmg

	res := AttackResult{Attacker: *p.Field, Damage: dmg}
	if opp.Field.HP <= 0 {
		opp.Field.HP = 0
		res.KnockedOut = true
		res.Defender = *opp.Field
		opp.Field = nil
		p.Score++
	} else {
		res.Defender = *opp.Field
	}
	res.RemainingHP = res.Defender.HP

	if p.Score >= g.WinScore {
		g.Finished = true
		g.Winner = seat
		res.Ended = true
		return res, nil
	}
	g.PassTurn()
	return res, nil
}

// EndTurn passes the turn to the opponent.
func (g *Game) EndTurn(seat int) error {
	if err := g.checkTurn(seat); err != nil {
		return err
	}
	g.PassTurn()
	return nil
}
