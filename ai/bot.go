package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"card-battle-server/auth"
	"card-battle-server/card"
	"card-battle-server/config"
	"card-battle-server/game"
	"card-battle-server/matcherrors"
	"card-battle-server/rules"
	"card-battle-server/storage"
)

// Lobby is the subset of the lobby API a bot plays through.
type Lobby interface {
	JoinRoomWithDeck(ctx context.Context, id auth.Identity, send chan []byte, roomID int, d *storage.Deck) error
	Draw(ctx context.Context, id auth.Identity, gameID int) error
	PlayCard(ctx context.Context, id auth.Identity, gameID, cardIndex int) error
	Attack(ctx context.Context, id auth.Identity, gameID int) error
	EndTurn(ctx context.Context, id auth.Identity, gameID int) error
	Disconnect(id auth.Identity)
}

// MoveType is one of the four turn actions.
type MoveType int

const (
	MoveDraw MoveType = iota
	MovePlay
	MoveAttack
	MoveEndTurn
)

// String returns the protocol name of the move.
func (m MoveType) String() string {
	switch m {
	case MoveDraw:
		return "draw"
	case MovePlay:
		return "play_card"
	case MoveAttack:
		return "attack"
	case MoveEndTurn:
		return "end_turn"
	default:
		return "unknown"
	}
}

// Move is a decided action.
type Move struct {
	Type      MoveType
	CardIndex int // for MovePlay
	Reason    string
}

// Decide picks the next move from the bot's own view of the game:
// refill the hand, put the strongest card on an empty field, attack when both
// fields are occupied, otherwise end the turn.
func Decide(state *game.GameStateMsg, handSize int, oracle rules.Oracle, params *config.AIParams, rng *rand.Rand) Move {
	you, opp := state.You, state.Opponent

	if len(you.Hand) < handSize && you.DrawPileCount > 0 {
		return Move{Type: MoveDraw, Reason: "hand not full"}
	}
	if you.Field == nil && len(you.Hand) > 0 {
		return Move{Type: MovePlay, CardIndex: strongestCard(you.Hand, opp.Field, oracle), Reason: "field empty"}
	}
	if you.Field != nil && opp.Field != nil {
		chance := clampPercent(params.EndTurnChance)
		if chance > 0 && rng.Intn(100) < chance {
			return Move{Type: MoveEndTurn, Reason: "random pass"}
		}
		return Move{Type: MoveAttack, Reason: "both fields occupied"}
	}
	return Move{Type: MoveEndTurn, Reason: "nothing to attack"}
}

// strongestCard returns the hand index dealing the most damage to target (or the
// highest attack when target is nil). Ties go to the card with more HP.
func strongestCard(hand []card.Card, target *card.Card, oracle rules.Oracle) int {
	best, bestDmg, bestHP := 0, -1, -1
	for i, c := range hand {
		dmg := c.Attack
		if target != nil && oracle != nil {
			dmg = oracle.Damage(c.Attack, c.Type, target.Type)
		}
		if dmg > bestDmg || (dmg == bestDmg && c.HP > bestHP) {
			best, bestDmg, bestHP = i, dmg, c.HP
		}
	}
	return best
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Bot is one automated player in one game.
type Bot struct {
	Identity auth.Identity
	Params   *config.AIParams
	HandSize int
	Oracle   rules.Oracle
	Lobby    Lobby
	rng      *rand.Rand
}

// NewBot creates a bot with its own random source.
func NewBot(id auth.Identity, params *config.AIParams, handSize int, oracle rules.Oracle, lobby Lobby) *Bot {
	return &Bot{
		Identity: id,
		Params:   params,
		HandSize: handSize,
		Oracle:   oracle,
		Lobby:    lobby,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run reads the bot's send channel and acts whenever it owns the turn.
// It returns when the game ends, the channel closes or ctx is cancelled.
func (b *Bot) Run(ctx context.Context, send <-chan []byte) {
	defer b.Lobby.Disconnect(b.Identity)

	for {
		var data []byte
		var ok bool
		select {
		case <-ctx.Done():
			return
		case data, ok = <-send:
			if !ok {
				return
			}
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}

		switch envelope.Type {
		case "game_ended":
			slog.Info("game over, leaving", "tag", "ai", "name", b.Params.Name)
			return
		case "game_state":
			var state game.GameStateMsg
			if err := json.Unmarshal(data, &state); err != nil {
				continue
			}
			if !state.YourTurn {
				continue
			}
			if !b.think(ctx) {
				return
			}
			if !b.play(ctx, &state) {
				return
			}
		}
	}
}

// think waits a human-like delay. It reports false if ctx was cancelled.
func (b *Bot) think(ctx context.Context) bool {
	delayMS := b.Params.DelayMinMS
	if b.Params.DelayMaxMS > b.Params.DelayMinMS {
		delayMS += b.rng.Intn(b.Params.DelayMaxMS - b.Params.DelayMinMS)
	}
	t := time.NewTimer(time.Duration(delayMS) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// play performs one move. It reports false once the game is gone.
func (b *Bot) play(ctx context.Context, state *game.GameStateMsg) bool {
	m := Decide(state, b.HandSize, b.Oracle, b.Params, b.rng)
	slog.Debug("bot move", "tag", "ai", "name", b.Params.Name, "move", m.Type.String(), "reason", m.Reason)

	var err error
	switch m.Type {
	case MoveDraw:
		err = b.Lobby.Draw(ctx, b.Identity, state.GameID)
	case MovePlay:
		err = b.Lobby.PlayCard(ctx, b.Identity, state.GameID, m.CardIndex)
	case MoveAttack:
		err = b.Lobby.Attack(ctx, b.Identity, state.GameID)
	case MoveEndTurn:
		err = b.Lobby.EndTurn(ctx, b.Identity, state.GameID)
	}
	if err == nil {
		return true
	}
	if errors.Is(err, matcherrors.ErrGameNotFound) {
		return false
	}
	if errors.Is(err, matcherrors.ErrNotYourTurn) {
		// The turn timed out while thinking.
		return true
	}
	slog.Warn("bot move rejected, ending turn", "tag", "ai", "name", b.Params.Name, "move", m.Type.String(), "err", err)
	if err := b.Lobby.EndTurn(ctx, b.Identity, state.GameID); err != nil && !errors.Is(err, matcherrors.ErrNotYourTurn) {
		return false
	}
	return true
}
