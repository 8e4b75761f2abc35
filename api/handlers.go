package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"card-battle-server/card"
	"card-battle-server/matchmaking"
)

// RoomLister is the part of the lobby the public room list needs.
type RoomLister interface {
	ListRooms(ctx context.Context) ([]matchmaking.RoomView, error)
}

// CardCatalog is the part of the deck store the catalogue endpoint needs.
type CardCatalog interface {
	CardCatalog(ctx context.Context) ([]card.Card, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Rooms RoomLister
	Cards CardCatalog
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(rooms RoomLister, cards CardCatalog) *Handler {
	return &Handler{Rooms: rooms, Cards: cards}
}

// Register mounts the handlers on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms", h.ListRooms)
	mux.HandleFunc("/api/cards", h.ListCards)
	mux.HandleFunc("/healthz", h.Health)
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// getOnly handles CORS preflight and rejects non-GET methods. It reports whether the
// caller should continue.
func getOnly(w http.ResponseWriter, r *http.Request) bool {
	if CORS(w, r) {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "tag", "api", "err", err)
	}
}

// ListRooms returns the open rooms, the same list sessions receive over the socket.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	rooms, err := h.Rooms.ListRooms(r.Context())
	if err != nil {
		slog.Error("ListRooms", "tag", "api", "err", err)
		http.Error(w, "failed to load rooms", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, rooms)
}

// ListCards returns the card catalogue ordered by pokedex number.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	cards := []card.Card{}
	if h.Cards != nil {
		list, err := h.Cards.CardCatalog(r.Context())
		if err != nil {
			slog.Error("CardCatalog", "tag", "api", "err", err)
			http.Error(w, "failed to load cards", http.StatusInternalServerError)
			return
		}
		if list != nil {
			cards = list
		}
	}
	writeJSON(w, cards)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
