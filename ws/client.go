package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"card-battle-server/auth"
	"card-battle-server/matcherrors"
	"card-battle-server/matchmaking"
	"card-battle-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Upper bound for a single lobby request, including the deck lookup.
	requestTimeout = 10 * time.Second

	defaultMaxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the lobby.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Identity auth.Identity

	limiter *rate.Limiter
}

// ReadPump pumps messages from the websocket connection to the lobby.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Lobby.Disconnect(c.Identity)
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	maxSize := c.Hub.Config.MaxMessageBytes
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}
	c.Conn.SetReadLimit(maxSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "email", c.Identity.Email, "err", err)
			}
			break
		}
		if c.limiter != nil && !c.limiter.Allow() {
			wsutil.SendJSON(c.Send, ErrorMsg{Type: "error", Code: "RATE_LIMITED", Message: "too many messages, slow down"})
			continue
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.reportError(matcherrors.ErrInvalidMessage)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var err error
	switch envelope.Type {
	case "create_room":
		var msg CreateRoomMsg
		if err = json.Unmarshal(envelope.Raw, &msg); err == nil {
			_, err = c.Hub.Lobby.CreateRoom(ctx, c.Identity, c.Send, msg.DeckID)
		}
	case "list_rooms":
		var rooms []matchmaking.RoomView
		if rooms, err = c.Hub.Lobby.ListRooms(ctx); err == nil {
			wsutil.SendJSON(c.Send, matchmaking.RoomListMsg{Type: "room_list", Rooms: rooms})
		}
	case "join_room":
		var msg JoinRoomMsg
		if err = json.Unmarshal(envelope.Raw, &msg); err == nil {
			err = c.Hub.Lobby.JoinRoom(ctx, c.Identity, c.Send, msg.RoomID, msg.DeckID)
		}
	case "draw", "attack", "end_turn":
		var msg GameActionMsg
		if err = json.Unmarshal(envelope.Raw, &msg); err == nil {
			err = c.gameAction(ctx, envelope.Type, msg.GameID)
		}
	case "play_card":
		var msg PlayCardMsg
		if err = json.Unmarshal(envelope.Raw, &msg); err == nil {
			err = c.Hub.Lobby.PlayCard(ctx, c.Identity, msg.GameID, msg.CardIndex)
		}
	default:
		c.sendError(matcherrors.Code(matcherrors.ErrInvalidMessage), "Unknown message type: "+envelope.Type)
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		err = matcherrors.ErrInvalidMessage
	}
	if err != nil {
		c.reportError(err)
	}
}

func (c *Client) gameAction(ctx context.Context, action string, gameID int) error {
	switch action {
	case "draw":
		return c.Hub.Lobby.Draw(ctx, c.Identity, gameID)
	case "attack":
		return c.Hub.Lobby.Attack(ctx, c.Identity, gameID)
	default:
		return c.Hub.Lobby.EndTurn(ctx, c.Identity, gameID)
	}
}

// reportError replies to the caller only: upstream failures as "logs",
// everything else as "error" with a stable code.
func (c *Client) reportError(err error) {
	if matcherrors.Kind(err) == matcherrors.Upstream {
		slog.Warn("request failed upstream", "tag", "ws", "email", c.Identity.Email, "err", err)
		wsutil.SendJSON(c.Send, LogsMsg{Type: "logs", Message: err.Error()})
		return
	}
	c.sendError(matcherrors.Code(err), err.Error())
}

func (c *Client) sendError(code, message string) {
	wsutil.SendJSON(c.Send, ErrorMsg{Type: "error", Code: code, Message: message})
}
