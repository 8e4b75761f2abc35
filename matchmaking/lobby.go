package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"card-battle-server/auth"
	"card-battle-server/card"
	"card-battle-server/config"
	"card-battle-server/game"
	"card-battle-server/matcherrors"
	"card-battle-server/rules"
	"card-battle-server/storage"
	"card-battle-server/wsutil"
)

// ErrLobbyClosed is returned once Run has stopped.
var ErrLobbyClosed = errors.New("lobby is shut down")

// DeckLookup resolves a deck owned by a user.
type DeckLookup interface {
	GetDeck(ctx context.Context, deckID, ownerID int64) (*storage.Deck, error)
}

// Notifier fans a message out to every connected session except one.
type Notifier interface {
	Broadcast(data []byte, exceptConnID string)
}

// Room is an open invitation waiting for a second player.
type Room struct {
	ID        int
	Owner     auth.Identity
	DeckID    int64
	DeckName  string
	CardNames []string
	CreatedAt time.Time

	player     *game.Player // owner's dealt state, private until the room is joined
	botClaimed bool
}

// View returns the public representation of the room.
func (r *Room) View() RoomView {
	return RoomView{
		RoomID:     r.ID,
		OwnerEmail: r.Owner.Email,
		DeckID:     r.DeckID,
		DeckName:   r.DeckName,
		CardNames:  append([]string{}, r.CardNames...),
	}
}

type commandType int

const (
	cmdCreateRoom commandType = iota
	cmdListRooms
	cmdCheckJoin
	cmdJoinRoom
	cmdDraw
	cmdPlayCard
	cmdAttack
	cmdEndTurn
	cmdDisconnect
	cmdTurnTimeout // internal: fired by a turn timer
)

type command struct {
	Type      commandType
	Identity  auth.Identity
	Send      chan []byte
	RoomID    int
	GameID    int
	CardIndex int
	Deck      *storage.Deck
	timer     chan struct{} // for cmdTurnTimeout: identifies the timer that fired
	reply     chan result
}

type result struct {
	err   error
	room  RoomView
	rooms []RoomView
}

// Lobby is the room directory and match registry. All state is owned by the
// goroutine running Run; public methods are safe for concurrent use.
type Lobby struct {
	cfg      *config.Config
	decks    DeckLookup
	oracle   rules.Oracle
	notifier Notifier
	rng      *rand.Rand

	turnLimit time.Duration
	botAfter  time.Duration
	botCheck  time.Duration

	// OnStaleRoom is called (in its own goroutine) when a room has been open for
	// longer than AIJoinAfterSec. Optional.
	OnStaleRoom func(RoomView)

	cmds chan command
	done chan struct{}

	rooms      map[int]*Room
	games      map[int]*game.Game
	roomByConn map[string]int
	gameByConn map[string]int
	timers     map[int]chan struct{}
	nextID     int
}

// NewLobby creates a Lobby. notifier may be nil.
func NewLobby(cfg *config.Config, decks DeckLookup, oracle rules.Oracle, notifier Notifier) *Lobby {
	return &Lobby{
		cfg:        cfg,
		decks:      decks,
		oracle:     oracle,
		notifier:   notifier,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		turnLimit:  time.Duration(cfg.TurnLimitSec) * time.Second,
		botAfter:   time.Duration(cfg.AIJoinAfterSec) * time.Second,
		botCheck:   time.Second,
		cmds:       make(chan command, 64),
		done:       make(chan struct{}),
		rooms:      make(map[int]*Room),
		games:      make(map[int]*game.Game),
		roomByConn: make(map[string]int),
		gameByConn: make(map[string]int),
		timers:     make(map[int]chan struct{}),
	}
}

// SetNotifier sets the broadcast target. Must be called before Run.
func (l *Lobby) SetNotifier(n Notifier) {
	l.notifier = n
}

// Run processes commands one at a time until ctx is cancelled.
func (l *Lobby) Run(ctx context.Context) error {
	defer close(l.done)

	var staleTick <-chan time.Time
	if l.botAfter > 0 && l.OnStaleRoom != nil {
		t := time.NewTicker(l.botCheck)
		defer t.Stop()
		staleTick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "lobby")
			for id := range l.timers {
				l.cancelTurnTimer(id)
			}
			return nil
		case <-staleTick:
			l.claimStaleRooms()
		case cmd := <-l.cmds:
			r := l.handle(cmd)
			if cmd.reply != nil {
				cmd.reply <- r
			}
		}
	}
}

func (l *Lobby) handle(cmd command) result {
	switch cmd.Type {
	case cmdCreateRoom:
		return l.handleCreateRoom(cmd)
	case cmdListRooms:
		return result{rooms: l.roomViews()}
	case cmdCheckJoin:
		_, err := l.checkJoin(cmd.Identity, cmd.RoomID)
		return result{err: err}
	case cmdJoinRoom:
		return result{err: l.handleJoinRoom(cmd)}
	case cmdDraw, cmdPlayCard, cmdAttack, cmdEndTurn:
		return result{err: l.handleAction(cmd)}
	case cmdDisconnect:
		l.handleDisconnect(cmd.Identity)
	case cmdTurnTimeout:
		l.handleTurnTimeout(cmd.GameID, cmd.timer)
	}
	return result{}
}

// do hands cmd to the actor and waits for its reply.
func (l *Lobby) do(ctx context.Context, cmd command) result {
	cmd.reply = make(chan result, 1)
	select {
	case l.cmds <- cmd:
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-l.done:
		return result{err: ErrLobbyClosed}
	}
	select {
	case r := <-cmd.reply:
		return r
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-l.done:
		return result{err: ErrLobbyClosed}
	}
}

// resolveDeck loads the deck outside the actor; it is a suspension point.
func (l *Lobby) resolveDeck(ctx context.Context, id auth.Identity, deckID int64) (*storage.Deck, error) {
	d, err := l.decks.GetDeck(ctx, deckID, id.UserID)
	if err != nil {
		return nil, err
	}
	if len(d.Cards) != l.cfg.DeckSize {
		return nil, fmt.Errorf("deck %d has %d cards, want %d: %w", deckID, len(d.Cards), l.cfg.DeckSize, matcherrors.ErrInvalidDeck)
	}
	return d, nil
}

// CreateRoom resolves the deck and opens a room owned by id. The owner receives
// room_created and every other session receives the updated room list.
func (l *Lobby) CreateRoom(ctx context.Context, id auth.Identity, send chan []byte, deckID int64) (RoomView, error) {
	d, err := l.resolveDeck(ctx, id, deckID)
	if err != nil {
		return RoomView{}, err
	}
	r := l.do(ctx, command{Type: cmdCreateRoom, Identity: id, Send: send, Deck: d})
	return r.room, r.err
}

// ListRooms returns the open rooms ordered by id.
func (l *Lobby) ListRooms(ctx context.Context) ([]RoomView, error) {
	r := l.do(ctx, command{Type: cmdListRooms})
	if r.rooms == nil {
		r.rooms = []RoomView{}
	}
	return r.rooms, r.err
}

// JoinRoom resolves the joiner's deck and starts a game in roomID.
func (l *Lobby) JoinRoom(ctx context.Context, id auth.Identity, send chan []byte, roomID int, deckID int64) error {
	if r := l.do(ctx, command{Type: cmdCheckJoin, Identity: id, RoomID: roomID}); r.err != nil {
		return r.err
	}
	d, err := l.resolveDeck(ctx, id, deckID)
	if err != nil {
		return err
	}
	return l.JoinRoomWithDeck(ctx, id, send, roomID, d)
}

// JoinRoomWithDeck starts a game in roomID with an already resolved deck.
func (l *Lobby) JoinRoomWithDeck(ctx context.Context, id auth.Identity, send chan []byte, roomID int, d *storage.Deck) error {
	return l.do(ctx, command{Type: cmdJoinRoom, Identity: id, Send: send, RoomID: roomID, Deck: d}).err
}

// Draw fills the caller's hand from the draw pile.
func (l *Lobby) Draw(ctx context.Context, id auth.Identity, gameID int) error {
	return l.do(ctx, command{Type: cmdDraw, Identity: id, GameID: gameID}).err
}

// PlayCard puts hand[cardIndex] on the caller's field.
func (l *Lobby) PlayCard(ctx context.Context, id auth.Identity, gameID, cardIndex int) error {
	return l.do(ctx, command{Type: cmdPlayCard, Identity: id, GameID: gameID, CardIndex: cardIndex}).err
}

// Attack resolves the caller's field card against the opponent's.
func (l *Lobby) Attack(ctx context.Context, id auth.Identity, gameID int) error {
	return l.do(ctx, command{Type: cmdAttack, Identity: id, GameID: gameID}).err
}

// EndTurn passes the turn.
func (l *Lobby) EndTurn(ctx context.Context, id auth.Identity, gameID int) error {
	return l.do(ctx, command{Type: cmdEndTurn, Identity: id, GameID: gameID}).err
}

// Disconnect drops the connection's open room and forfeits its active game.
func (l *Lobby) Disconnect(id auth.Identity) {
	l.do(context.Background(), command{Type: cmdDisconnect, Identity: id})
}

func (l *Lobby) busy(connID string) bool {
	if _, ok := l.roomByConn[connID]; ok {
		return true
	}
	_, ok := l.gameByConn[connID]
	return ok
}

func (l *Lobby) handleCreateRoom(cmd command) result {
	if l.busy(cmd.Identity.ConnID) {
		return result{err: matcherrors.ErrAlreadyBusy}
	}
	hand, pile := game.Deal(cmd.Deck.Cards, l.cfg.HandSize, l.rng)
	p := game.NewPlayer(cmd.Identity, cmd.Send, hand, pile)
	p.DeckID, p.DeckName = cmd.Deck.ID, cmd.Deck.Name

	l.nextID++
	room := &Room{
		ID:        l.nextID,
		Owner:     cmd.Identity,
		DeckID:    cmd.Deck.ID,
		DeckName:  cmd.Deck.Name,
		CardNames: card.Names(cmd.Deck.Cards),
		CreatedAt: time.Now(),
		player:    p,
	}
	l.rooms[room.ID] = room
	l.roomByConn[cmd.Identity.ConnID] = room.ID

	view := room.View()
	wsutil.SendJSON(cmd.Send, RoomCreatedMsg{Type: "room_created", RoomView: view})
	l.broadcastRooms(cmd.Identity.ConnID)

	slog.Info("room created", "tag", "lobby", "room", room.ID, "owner", cmd.Identity.Email, "deck", cmd.Deck.ID)
	return result{room: view}
}

func (l *Lobby) checkJoin(id auth.Identity, roomID int) (*Room, error) {
	room, ok := l.rooms[roomID]
	if !ok {
		return nil, matcherrors.ErrRoomNotFound
	}
	if room.Owner.UserID == id.UserID {
		return nil, matcherrors.ErrSelfJoin
	}
	if l.busy(id.ConnID) {
		return nil, matcherrors.ErrAlreadyBusy
	}
	return room, nil
}

func (l *Lobby) handleJoinRoom(cmd command) error {
	room, err := l.checkJoin(cmd.Identity, cmd.RoomID)
	if err != nil {
		return err
	}
	hand, pile := game.Deal(cmd.Deck.Cards, l.cfg.HandSize, l.rng)
	joiner := game.NewPlayer(cmd.Identity, cmd.Send, hand, pile)
	joiner.DeckID, joiner.DeckName = cmd.Deck.ID, cmd.Deck.Name

	delete(l.rooms, room.ID)
	delete(l.roomByConn, room.Owner.ConnID)

	g := game.NewGame(room.ID, room.player, joiner, game.Options{
		HandSize: l.cfg.HandSize,
		WinScore: l.cfg.WinScore,
		Oracle:   l.oracle,
	})
	l.games[g.ID] = g
	l.gameByConn[room.Owner.ConnID] = g.ID
	l.gameByConn[cmd.Identity.ConnID] = g.ID

	l.broadcastRooms("")
	for seat, p := range g.Players {
		wsutil.SendJSON(p.Send, GameStartedMsg{
			Type:          "game_started",
			GameID:        g.ID,
			OpponentEmail: g.Opponent(seat).Email(),
			YourTurn:      seat == g.CurrentTurn,
		})
	}
	l.startTurnTimer(g)
	g.BroadcastState()

	slog.Info("game started", "tag", "lobby", "game", g.ID, "owner", room.Owner.Email, "joiner", cmd.Identity.Email)
	return nil
}

func (l *Lobby) handleAction(cmd command) error {
	g, ok := l.games[cmd.GameID]
	if !ok {
		return matcherrors.ErrGameNotFound
	}
	seat, err := g.Seat(cmd.Identity.ConnID)
	if err != nil {
		slog.Error("action from non-participant", "tag", "lobby", "game", g.ID, "conn", cmd.Identity.ConnID, "email", cmd.Identity.Email)
		return err
	}

	turnBefore := g.CurrentTurn
	switch cmd.Type {
	case cmdDraw:
		_, err = g.Draw(seat)
	case cmdPlayCard:
		_, err = g.PlayCard(seat, cmd.CardIndex)
	case cmdAttack:
		var res game.AttackResult
		res, err = g.Attack(seat)
		if err == nil {
			for _, m := range res.Messages(g.Players[seat], g.Opponent(seat)) {
				g.Send(CombatMsg{Type: "combat", GameID: g.ID, Message: m})
			}
		}
	case cmdEndTurn:
		err = g.EndTurn(seat)
	}
	if err != nil {
		return err
	}

	if g.Finished {
		l.cancelTurnTimer(g.ID)
		g.TurnEndsAt = time.Time{}
		g.BroadcastState()
		l.endGame(g, ReasonScore)
		return nil
	}
	if g.CurrentTurn != turnBefore {
		l.startTurnTimer(g)
	}
	g.BroadcastState()
	return nil
}

// endGame announces the result and removes g from the registry.
func (l *Lobby) endGame(g *game.Game, reason string) {
	l.cancelTurnTimer(g.ID)
	delete(l.games, g.ID)
	for _, p := range g.Players {
		if l.gameByConn[p.Identity.ConnID] == g.ID {
			delete(l.gameByConn, p.Identity.ConnID)
		}
	}

	winner, loser := g.Players[g.Winner], g.Opponent(g.Winner)
	g.Send(GameEndedMsg{
		Type:        "game_ended",
		GameID:      g.ID,
		WinnerEmail: winner.Email(),
		FinalScore:  FinalScore{Winner: winner.Score, Loser: loser.Score},
		Reason:      reason,
	})
	slog.Info("game ended", "tag", "lobby", "game", g.ID, "winner", winner.Email(),
		"score", fmt.Sprintf("%d-%d", winner.Score, loser.Score), "reason", reason)
}

func (l *Lobby) handleDisconnect(id auth.Identity) {
	if roomID, ok := l.roomByConn[id.ConnID]; ok {
		delete(l.roomByConn, id.ConnID)
		delete(l.rooms, roomID)
		slog.Info("room closed by disconnect", "tag", "lobby", "room", roomID, "owner", id.Email)
		l.broadcastRooms(id.ConnID)
	}
	if gameID, ok := l.gameByConn[id.ConnID]; ok {
		g := l.games[gameID]
		if g == nil {
			delete(l.gameByConn, id.ConnID)
			return
		}
		seat, err := g.Seat(id.ConnID)
		if err != nil {
			return
		}
		g.Forfeit(seat)
		l.endGame(g, ReasonOpponentDisconnected)
	}
}

// cancelTurnTimer stops the game's turn timer, if any.
func (l *Lobby) cancelTurnTimer(gameID int) {
	if cancel, ok := l.timers[gameID]; ok {
		close(cancel)
		delete(l.timers, gameID)
	}
}

// startTurnTimer arms a deadline for the current turn. No-op when turnLimit <= 0.
func (l *Lobby) startTurnTimer(g *game.Game) {
	if l.turnLimit <= 0 {
		return
	}
	l.cancelTurnTimer(g.ID)
	cancel := make(chan struct{})
	l.timers[g.ID] = cancel
	g.TurnEndsAt = time.Now().Add(l.turnLimit)

	gameID, limit := g.ID, l.turnLimit
	go func() {
		t := time.NewTimer(limit)
		defer t.Stop()
		select {
		case <-t.C:
			select {
			case l.cmds <- command{Type: cmdTurnTimeout, GameID: gameID, timer: cancel}:
			case <-cancel:
			case <-l.done:
			}
		case <-cancel:
		}
	}()
}

func (l *Lobby) handleTurnTimeout(gameID int, timer chan struct{}) {
	g, ok := l.games[gameID]
	if !ok || l.timers[gameID] != timer {
		return
	}
	delete(l.timers, gameID)

	timedOut := g.Players[g.CurrentTurn]
	g.Send(TurnTimeoutMsg{Type: "turn_timeout", GameID: g.ID, TimedOutEmail: timedOut.Email()})
	g.PassTurn()
	l.startTurnTimer(g)
	g.BroadcastState()
	slog.Info("turn timed out", "tag", "lobby", "game", g.ID, "player", timedOut.Email())
}

func (l *Lobby) claimStaleRooms() {
	now := time.Now()
	for _, id := range l.sortedRoomIDs() {
		room := l.rooms[id]
		if room.botClaimed || now.Sub(room.CreatedAt) < l.botAfter {
			continue
		}
		room.botClaimed = true
		slog.Info("room open too long, calling a bot", "tag", "lobby", "room", room.ID)
		go l.OnStaleRoom(room.View())
	}
}

func (l *Lobby) sortedRoomIDs() []int {
	ids := make([]int, 0, len(l.rooms))
	for id := range l.rooms {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (l *Lobby) roomViews() []RoomView {
	views := make([]RoomView, 0, len(l.rooms))
	for _, id := range l.sortedRoomIDs() {
		views = append(views, l.rooms[id].View())
	}
	return views
}

// broadcastRooms pushes rooms_list_updated to every session except exceptConnID.
func (l *Lobby) broadcastRooms(exceptConnID string) {
	if l.notifier == nil {
		return
	}
	data, err := json.Marshal(RoomListMsg{Type: "rooms_list_updated", Rooms: l.roomViews()})
	if err != nil {
		slog.Error("marshaling room list", "tag", "lobby", "err", err)
		return
	}
	l.notifier.Broadcast(data, exceptConnID)
}
