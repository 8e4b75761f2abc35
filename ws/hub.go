package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"card-battle-server/auth"
	"card-battle-server/config"
	"card-battle-server/matchmaking"
	"card-battle-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Lobby defines what clients need from the match engine.
type Lobby interface {
	CreateRoom(ctx context.Context, id auth.Identity, send chan []byte, deckID int64) (matchmaking.RoomView, error)
	ListRooms(ctx context.Context) ([]matchmaking.RoomView, error)
	JoinRoom(ctx context.Context, id auth.Identity, send chan []byte, roomID int, deckID int64) error
	Draw(ctx context.Context, id auth.Identity, gameID int) error
	PlayCard(ctx context.Context, id auth.Identity, gameID, cardIndex int) error
	Attack(ctx context.Context, id auth.Identity, gameID int) error
	EndTurn(ctx context.Context, id auth.Identity, gameID int) error
	Disconnect(id auth.Identity)
}

type outbound struct {
	data   []byte
	except string
}

// Hub is the session registry: it tracks connected clients and fans out broadcasts.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Lobby      Lobby
	Verifier   *auth.Verifier
	Config     *config.Config

	broadcast chan outbound
	done      chan struct{}
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, lobby Lobby, verifier *auth.Verifier) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Lobby:      lobby,
		Verifier:   verifier,
		Config:     cfg,
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
	}
}

// Broadcast queues data for every client except the one with exceptConnID.
func (h *Hub) Broadcast(data []byte, exceptConnID string) {
	select {
	case h.broadcast <- outbound{data: data, except: exceptConnID}:
	case <-h.done:
	}
}

// Run starts the hub's main loop. When ctx is cancelled, Run returns and no
// longer accepts new registrations.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			for client := range h.Clients {
				client.Conn.Close()
			}
			return nil

		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "ws", "email", client.Identity.Email, "total", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				slog.Info("client disconnected", "tag", "ws", "email", client.Identity.Email, "total", len(h.Clients))
			}

		case msg := <-h.broadcast:
			for client := range h.Clients {
				if client.Identity.ConnID == msg.except {
					continue
				}
				wsutil.SafeSend(client.Send, msg.data)
			}
		}
	}
}

// ServeWS authenticates the request and upgrades it to a WebSocket session.
// Requests without a valid token are rejected with 401 before the upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.Verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		slog.Warn("rejected websocket handshake", "tag", "auth", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:      h,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Identity: auth.NewIdentity(claims),
		limiter:  rate.NewLimiter(rate.Limit(h.Config.MessagesPerSecond), h.Config.MessageBurst),
	}

	select {
	case h.Register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
