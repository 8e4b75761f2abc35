package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-battle-server/auth"
	"card-battle-server/config"
	"card-battle-server/storage"
)

const testSecret = "integration-secret"

// Seeded starter decks: deck 1 belongs to user 1, deck 2 to user 2.
const (
	deckX = 1
	deckY = 2
)

// setupTestServerWithConfig creates a test HTTP server over a seeded SQLite store.
func setupTestServerWithConfig(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	store, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "cards.db"))
	require.NoError(t, err)
	require.NoError(t, store.SeedStarterData(ctx))

	verifier, err := auth.NewVerifier(cfg.JWTSecret, "")
	require.NoError(t, err)

	lobby, hub, mux := wire(ctx, cfg, store, verifier)
	go lobby.Run(ctx)
	go hub.Run(ctx)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		cancel()
		server.Close()
		store.Close()
	})
	return server
}

// setupTestServer creates a test HTTP server with the full game server stack.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.JWTSecret = testSecret
	cfg.TypeChart = "flat"
	return setupTestServerWithConfig(t, cfg)
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// connectWS dials the server as the given demo user.
func connectWS(t *testing.T, server *httptest.Server, userID int64, email string) *websocket.Conn {
	t.Helper()
	token, err := auth.IssueToken(testSecret, userID, email, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?token="+token, nil)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMsg reads a JSON message from the WebSocket and returns it as a map.
func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err, "failed to read message")
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg), "data: %s", data)
	return msg
}

// readUntil skips messages until one of type typ arrives. Room list broadcasts go
// through the hub, so their order relative to direct replies is not fixed.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMsg(t, conn)
		if msg["type"] == typ {
			return msg
		}
	}
	t.Fatalf("no %s message received", typ)
	return nil
}

// sendMsg sends a JSON message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func field(state map[string]any, side string) map[string]any {
	f, _ := state[side].(map[string]any)["field"].(map[string]any)
	return f
}

// startGame runs X create_room / Y join_room and returns the game id.
func startGame(t *testing.T, x, y *websocket.Conn) int {
	t.Helper()
	sendMsg(t, x, map[string]any{"type": "create_room", "deckId": deckX})
	created := readUntil(t, x, "room_created")

	sendMsg(t, y, map[string]any{"type": "join_room", "roomId": created["roomId"], "deckId": deckY})
	gsX := readUntil(t, x, "game_started")
	gsY := readUntil(t, y, "game_started")
	require.Equal(t, true, gsX["yourTurn"], "room creator moves first")
	require.Equal(t, false, gsY["yourTurn"])
	require.Equal(t, gsX["gameId"], gsY["gameId"])

	readUntil(t, x, "game_state")
	readUntil(t, y, "game_state")
	return int(gsX["gameId"].(float64))
}

func TestIntegration_RejectsMissingToken(t *testing.T) {
	server := setupTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bad, _ := auth.IssueToken("wrong-secret", 1, "ash@example.com", time.Hour)
	_, resp, err = websocket.DefaultDialer.Dial(wsURL(server)+"?token="+bad, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_RoomsAndGameStart(t *testing.T) {
	server := setupTestServer(t)
	x := connectWS(t, server, 1, "ash@example.com")
	y := connectWS(t, server, 2, "gary@example.com")

	sendMsg(t, x, map[string]any{"type": "create_room", "deckId": deckX})
	created := readUntil(t, x, "room_created")
	assert.Equal(t, "ash@example.com", created["ownerEmail"])
	assert.Len(t, created["cardNames"], 10)

	sendMsg(t, y, map[string]any{"type": "list_rooms"})
	list := readUntil(t, y, "room_list")
	require.Len(t, list["rooms"], 1)

	resp, err := http.Get(server.URL + "/api/rooms")
	require.NoError(t, err)
	var rooms []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	resp.Body.Close()
	assert.Len(t, rooms, 1)

	sendMsg(t, y, map[string]any{"type": "join_room", "roomId": created["roomId"], "deckId": deckY})
	gsX := readUntil(t, x, "game_started")
	gsY := readUntil(t, y, "game_started")
	assert.Equal(t, "gary@example.com", gsX["opponentEmail"])
	assert.Equal(t, "ash@example.com", gsY["opponentEmail"])

	state := readUntil(t, y, "game_state")
	you := state["you"].(map[string]any)
	assert.Len(t, you["hand"], 5)
	assert.EqualValues(t, 5, you["drawPileCount"])
	assert.EqualValues(t, 5, state["opponent"].(map[string]any)["handCount"])

	sendMsg(t, y, map[string]any{"type": "list_rooms"})
	assert.Empty(t, readUntil(t, y, "room_list")["rooms"])
}

func TestIntegration_DeckErrorsReplyAsLogs(t *testing.T) {
	server := setupTestServer(t)
	x := connectWS(t, server, 1, "ash@example.com")

	sendMsg(t, x, map[string]any{"type": "create_room", "deckId": deckY})
	msg := readUntil(t, x, "logs")
	assert.Contains(t, msg["message"], "another user")

	sendMsg(t, x, map[string]any{"type": "create_room", "deckId": 999})
	assert.Contains(t, readUntil(t, x, "logs")["message"], "not found")

	sendMsg(t, x, map[string]any{"type": "list_rooms"})
	assert.Empty(t, readUntil(t, x, "room_list")["rooms"], "no room is created on a deck error")
}

func TestIntegration_TurnOrderAndCombat(t *testing.T) {
	server := setupTestServer(t)
	x := connectWS(t, server, 1, "ash@example.com")
	y := connectWS(t, server, 2, "gary@example.com")
	gameID := startGame(t, x, y)

	// Y acts out of turn.
	sendMsg(t, y, map[string]any{"type": "attack", "gameId": gameID})
	errMsg := readUntil(t, y, "error")
	assert.Equal(t, "NOT_YOUR_TURN", errMsg["code"])

	// X plays and passes.
	sendMsg(t, x, map[string]any{"type": "play_card", "gameId": gameID, "cardIndex": 0})
	stateX := readUntil(t, x, "game_state")
	require.NotNil(t, field(stateX, "you"))
	assert.Len(t, stateX["you"].(map[string]any)["hand"], 4)
	readUntil(t, y, "game_state")

	sendMsg(t, x, map[string]any{"type": "attack", "gameId": gameID})
	assert.Equal(t, "EMPTY_OPPONENT_FIELD", readUntil(t, x, "error")["code"])

	sendMsg(t, x, map[string]any{"type": "end_turn", "gameId": gameID})
	readUntil(t, x, "game_state")
	readUntil(t, y, "game_state")

	// Y plays and attacks X's field.
	sendMsg(t, y, map[string]any{"type": "play_card", "gameId": gameID, "cardIndex": 0})
	stateY := readUntil(t, y, "game_state")
	attacker := field(stateY, "you")
	defender := field(stateY, "opponent")
	require.NotNil(t, attacker)
	require.NotNil(t, defender)
	readUntil(t, x, "game_state")

	sendMsg(t, y, map[string]any{"type": "attack", "gameId": gameID})
	combat := readUntil(t, x, "combat")
	assert.Contains(t, combat["message"], fmt.Sprintf("attacks ash@example.com's %s", defender["name"]))

	after := readUntil(t, y, "game_state")
	knockedOut := attacker["attack"].(float64) >= defender["hp"].(float64)
	if knockedOut {
		assert.Nil(t, field(after, "opponent"), "knocked out card leaves the field")
		assert.EqualValues(t, 1, after["you"].(map[string]any)["score"])
	} else {
		assert.EqualValues(t, defender["hp"].(float64)-attacker["attack"].(float64), field(after, "opponent")["hp"])
		assert.EqualValues(t, 0, after["you"].(map[string]any)["score"])
	}
	assert.Equal(t, false, after["yourTurn"], "an attack passes the turn")
}

func TestIntegration_OpponentDisconnect(t *testing.T) {
	server := setupTestServer(t)
	x := connectWS(t, server, 1, "ash@example.com")
	y := connectWS(t, server, 2, "gary@example.com")
	gameID := startGame(t, x, y)

	y.Close()

	ended := readUntil(t, x, "game_ended")
	assert.Equal(t, "ash@example.com", ended["winnerEmail"])
	assert.Equal(t, "opponent_disconnected", ended["reason"])

	sendMsg(t, x, map[string]any{"type": "draw", "gameId": gameID})
	assert.Equal(t, "GAME_NOT_FOUND", readUntil(t, x, "error")["code"])
}

func TestIntegration_BotJoinsStaleRoom(t *testing.T) {
	cfg := config.Defaults()
	cfg.JWTSecret = testSecret
	cfg.AIJoinAfterSec = 1
	cfg.AIProfiles = []config.AIParams{{Name: "Gary", Email: "gary@bots.local", DelayMinMS: 10, DelayMaxMS: 20}}
	server := setupTestServerWithConfig(t, cfg)
	x := connectWS(t, server, 1, "ash@example.com")

	sendMsg(t, x, map[string]any{"type": "create_room", "deckId": deckX})
	readUntil(t, x, "room_created")

	x.SetReadDeadline(time.Now().Add(5 * time.Second))
	var started map[string]any
	for started == nil {
		_, data, err := x.ReadMessage()
		require.NoError(t, err, "bot never joined")
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == "game_started" {
			started = msg
		}
	}
	assert.Equal(t, "gary@bots.local", started["opponentEmail"])
	assert.Equal(t, true, started["yourTurn"])
}
