package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-battle-server/card"
	"card-battle-server/matchmaking"
)

type fakeRooms struct {
	rooms []matchmaking.RoomView
	err   error
}

func (f fakeRooms) ListRooms(context.Context) ([]matchmaking.RoomView, error) {
	return f.rooms, f.err
}

type fakeCards struct {
	cards []card.Card
	err   error
}

func (f fakeCards) CardCatalog(context.Context) ([]card.Card, error) {
	return f.cards, f.err
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestListRooms(t *testing.T) {
	h := NewHandler(fakeRooms{rooms: []matchmaking.RoomView{{RoomID: 2, OwnerEmail: "ash@example.com", CardNames: []string{"Pikachu"}}}}, nil)

	rec := serve(h, http.MethodGet, "/api/rooms")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var rooms []matchmaking.RoomView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].RoomID)
}

func TestListRoomsLobbyDown(t *testing.T) {
	h := NewHandler(fakeRooms{err: errors.New("lobby is shut down")}, nil)
	rec := serve(h, http.MethodGet, "/api/rooms")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListCards(t *testing.T) {
	h := NewHandler(fakeRooms{}, fakeCards{cards: []card.Card{{ID: 1, Name: "Bulbasaur", PokedexNumber: 1}}})
	rec := serve(h, http.MethodGet, "/api/cards")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Bulbasaur","hp":0,"attack":0,"type":"","pokedexNumber":1}]`, rec.Body.String())

	rec = serve(NewHandler(fakeRooms{}, fakeCards{}), http.MethodGet, "/api/cards")
	assert.JSONEq(t, `[]`, rec.Body.String(), "an empty catalogue is an empty array, not null")

	rec = serve(NewHandler(fakeRooms{}, fakeCards{err: errors.New("db down")}), http.MethodGet, "/api/cards")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMethodsAndPreflight(t *testing.T) {
	h := NewHandler(fakeRooms{}, fakeCards{})

	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodPost, "/api/rooms").Code)
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodOptions, "/api/cards").Code)

	rec := serve(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
