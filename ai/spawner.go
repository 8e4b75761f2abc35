package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"card-battle-server/auth"
	"card-battle-server/card"
	"card-battle-server/config"
	"card-battle-server/matchmaking"
	"card-battle-server/rules"
	"card-battle-server/storage"
)

// Catalog is the card source bots build their decks from.
type Catalog interface {
	CardCatalog(ctx context.Context) ([]card.Card, error)
	ValidateCards(ctx context.Context, ids []int64) (bool, error)
}

// Spawner sends a bot into rooms nobody joined in time.
type Spawner struct {
	ctx     context.Context
	cfg     *config.Config
	lobby   Lobby
	catalog Catalog
	oracle  rules.Oracle

	mu   sync.Mutex
	rng  *rand.Rand
	next int
}

// NewSpawner creates a Spawner. Bots stop when ctx is cancelled.
func NewSpawner(ctx context.Context, cfg *config.Config, lobby Lobby, catalog Catalog, oracle rules.Oracle) *Spawner {
	return &Spawner{
		ctx:     ctx,
		cfg:     cfg,
		lobby:   lobby,
		catalog: catalog,
		oracle:  oracle,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// JoinRoom builds a random deck and joins room with the next bot profile.
// It blocks for the whole game; the lobby calls it in its own goroutine.
func (s *Spawner) JoinRoom(room matchmaking.RoomView) {
	if len(s.cfg.AIProfiles) == 0 {
		slog.Warn("no bot profiles configured", "tag", "ai", "room", room.RoomID)
		return
	}

	s.mu.Lock()
	idx := s.next % len(s.cfg.AIProfiles)
	s.next++
	params := s.cfg.AIProfiles[idx]
	s.mu.Unlock()

	id := auth.Identity{
		ConnID: "bot-" + uuid.NewString(),
		UserID: -int64(idx + 1),
		Email:  params.Email,
	}
	deck, err := s.buildDeck(id, params.Name)
	if err != nil {
		slog.Error("building bot deck", "tag", "ai", "name", params.Name, "err", err)
		return
	}

	send := make(chan []byte, 64)
	if err := s.lobby.JoinRoomWithDeck(s.ctx, id, send, room.RoomID, deck); err != nil {
		slog.Info("bot could not join room", "tag", "ai", "name", params.Name, "room", room.RoomID, "err", err)
		return
	}
	slog.Info("bot joined room", "tag", "ai", "name", params.Name, "room", room.RoomID, "opponent", room.OwnerEmail)
	NewBot(id, &params, s.cfg.HandSize, s.oracle, s.lobby).Run(s.ctx, send)
}

func (s *Spawner) buildDeck(id auth.Identity, name string) (*storage.Deck, error) {
	cards, err := s.catalog.CardCatalog(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}
	s.mu.Lock()
	picked := RandomDeck(cards, s.cfg.DeckSize, s.rng)
	s.mu.Unlock()
	if len(picked) != s.cfg.DeckSize {
		return nil, fmt.Errorf("catalogue is empty")
	}

	ids := make([]int64, len(picked))
	for i, c := range picked {
		ids[i] = c.ID
	}
	ok, err := s.catalog.ValidateCards(s.ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("validate bot deck: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("bot deck references unknown cards")
	}
	return &storage.Deck{OwnerID: id.UserID, Name: name + "'s deck", Cards: picked}, nil
}

// RandomDeck draws size cards from catalog, without repeats when the catalogue
// is large enough.
func RandomDeck(catalog []card.Card, size int, rng *rand.Rand) []card.Card {
	if len(catalog) == 0 || size <= 0 {
		return nil
	}
	deck := make([]card.Card, 0, size)
	if len(catalog) >= size {
		for _, i := range rng.Perm(len(catalog))[:size] {
			deck = append(deck, catalog[i])
		}
		return deck
	}
	for len(deck) < size {
		deck = append(deck, catalog[rng.Intn(len(catalog))])
	}
	return deck
}
