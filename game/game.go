package game

import (
	"encoding/json"
	"log/slog"
	"time"

	"card-battle-server/matcherrors"
	"card-battle-server/rules"
	"card-battle-server/wsutil"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultHandSize = 5
	DefaultWinScore = 3
)

// Options tune the rules of a single match.
type Options struct {
	HandSize int
	WinScore int
	Oracle   rules.Oracle
}

// Game manages a single match between two players. It is not safe for
// concurrent use; the lobby actor is its only caller.
type Game struct {
	ID          int
	Players     [2]*Player
	CurrentTurn int
	HandSize    int
	WinScore    int
	Oracle      rules.Oracle
	Finished    bool
	// Winner is the seat of the winning player, or -1 while the game is running.
	Winner int

	StartedAt time.Time
	// TurnEndsAt is when the current turn expires (zero = no deadline). Set by the owner of the turn timer.
	TurnEndsAt time.Time
}

// NewGame creates a match; the player in seat 0 (the room creator) moves first.
func NewGame(id int, p0, p1 *Player, opts Options) *Game {
	if opts.HandSize <= 0 {
		opts.HandSize = DefaultHandSize
	}
	if opts.WinScore <= 0 {
		opts.WinScore = DefaultWinScore
	}
	if opts.Oracle == nil {
		opts.Oracle = rules.StandardChart()
	}
	return &Game{
		ID:          id,
		Players:     [2]*Player{p0, p1},
		CurrentTurn: 0,
		HandSize:    opts.HandSize,
		WinScore:    opts.WinScore,
		Oracle:      opts.Oracle,
		Winner:      -1,
		StartedAt:   time.Now(),
	}
}

// Seat returns the seat index of the connection, or ErrNotParticipant.
func (g *Game) Seat(connID string) (int, error) {
	for i, p := range g.Players {
		if p != nil && p.Identity.ConnID == connID {
			return i, nil
		}
	}
	return -1, matcherrors.ErrNotParticipant
}

// Opponent returns the player facing seat.
func (g *Game) Opponent(seat int) *Player {
	return g.Players[1-seat]
}

// PassTurn hands the turn to the other player.
func (g *Game) PassTurn() {
	g.CurrentTurn = 1 - g.CurrentTurn
}

// Forfeit ends the game with the player in seat losing.
func (g *Game) Forfeit(seat int) {
	g.Finished = true
	g.Winner = 1 - seat
}

// Send marshals msg once and delivers it to both players.
func (g *Game) Send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling game message", "tag", "game", "game", g.ID, "err", err)
		return
	}
	for i := 0; i < 2; i++ {
		if g.Players[i] != nil && g.Players[i].Send != nil {
			wsutil.SafeSend(g.Players[i].Send, data)
		}
	}
}

// BroadcastState pushes each player's own projection of the game.
func (g *Game) BroadcastState() {
	for i := 0; i < 2; i++ {
		if g.Players[i] == nil || g.Players[i].Send == nil {
			continue
		}
		data, err := json.Marshal(g.BuildStateForPlayer(i))
		if err != nil {
			slog.Error("marshaling game state", "tag", "game", "err", err)
			continue
		}
		wsutil.SafeSend(g.Players[i].Send, data)
	}
}
