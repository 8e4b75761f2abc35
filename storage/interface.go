package storage

import (
	"context"
	"fmt"
	"strings"

	"card-battle-server/card"
)

// Deck is an owner-validated deck snapshot.
type Deck struct {
	ID      int64       `json:"id"`
	OwnerID int64       `json:"ownerId"`
	Name    string      `json:"name"`
	Cards   []card.Card `json:"cards"`
}

// DeckStore is the read side of the catalogue/deck service consumed by the lobby.
// Implementations can be swapped for testing (fakes) or different backends.
type DeckStore interface {
	// GetDeck returns the deck with its cards in deck order. It fails with
	// matcherrors.ErrDeckNotFound or matcherrors.ErrDeckNotOwned.
	GetDeck(ctx context.Context, deckID, ownerID int64) (*Deck, error)
	// ValidateCards reports whether every id refers to an existing card.
	ValidateCards(ctx context.Context, ids []int64) (bool, error)
	// CardCatalog returns all cards ordered by pokedex number.
	CardCatalog(ctx context.Context) ([]card.Card, error)

	// SeedStarterData inserts the demo catalogue and starter decks if no card exists yet.
	SeedStarterData(ctx context.Context) error

	Close()
}

// Ensure both backends implement DeckStore at compile time.
var (
	_ DeckStore = (*PGStore)(nil)
	_ DeckStore = (*SQLiteStore)(nil)
)

const sqlitePrefix = "sqlite:"

// Open picks a backend from databaseURL: "sqlite:<path>" opens a SQLite file,
// postgres:// and postgresql:// URLs open a pgx pool.
func Open(ctx context.Context, databaseURL string) (DeckStore, error) {
	switch {
	case strings.HasPrefix(databaseURL, sqlitePrefix):
		return OpenSQLite(ctx, strings.TrimPrefix(databaseURL, sqlitePrefix))
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPGStore(ctx, databaseURL)
	case databaseURL == "":
		return nil, fmt.Errorf("database url is required")
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", databaseURL)
	}
}

// distinctIDs returns ids without duplicates, preserving first occurrence.
func distinctIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
