package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"card-battle-server/card"
	"card-battle-server/matcherrors"
)

const createTablesPG = `
CREATE TABLE IF NOT EXISTS cards (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	hp             INT  NOT NULL,
	attack         INT  NOT NULL,
	type           TEXT NOT NULL,
	pokedex_number INT  NOT NULL,
	img_url        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_cards_pokedex ON cards(pokedex_number);
CREATE TABLE IF NOT EXISTS decks (
	id      BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	name    TEXT   NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decks_user_id ON decks(user_id);
CREATE TABLE IF NOT EXISTS deck_cards (
	deck_id  BIGINT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
	card_id  BIGINT NOT NULL REFERENCES cards(id),
	position INT    NOT NULL,
	PRIMARY KEY (deck_id, position)
);
`

// PGStore reads decks and cards from Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to Postgres and ensures the catalogue tables exist.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTablesPG); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &PGStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PGStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// GetDeck implements DeckStore.
func (s *PGStore) GetDeck(ctx context.Context, deckID, ownerID int64) (*Deck, error) {
	var d Deck
	err := s.pool.QueryRow(ctx, `SELECT id, user_id, name FROM decks WHERE id = $1`, deckID).
		Scan(&d.ID, &d.OwnerID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("deck %d: %w", deckID, matcherrors.ErrDeckNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load deck %d: %w", deckID, err)
	}
	if d.OwnerID != ownerID {
		return nil, fmt.Errorf("deck %d: %w", deckID, matcherrors.ErrDeckNotOwned)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name, c.hp, c.attack, c.type, c.pokedex_number, c.img_url
		FROM deck_cards dc
		JOIN cards c ON c.id = dc.card_id
		WHERE dc.deck_id = $1
		ORDER BY dc.position`, deckID)
	if err != nil {
		return nil, fmt.Errorf("load deck %d cards: %w", deckID, err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		d.Cards = append(d.Cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ValidateCards implements DeckStore.
func (s *PGStore) ValidateCards(ctx context.Context, ids []int64) (bool, error) {
	unique := distinctIDs(ids)
	if len(unique) == 0 {
		return true, nil
	}
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM cards WHERE id = ANY($1)`, unique).Scan(&n); err != nil {
		return false, fmt.Errorf("validate cards: %w", err)
	}
	return n == len(unique), nil
}

// CardCatalog implements DeckStore.
func (s *PGStore) CardCatalog(ctx context.Context) ([]card.Card, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, hp, attack, type, pokedex_number, img_url
		FROM cards
		ORDER BY pokedex_number ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()
	out := []card.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SeedStarterData implements DeckStore.
func (s *PGStore) SeedStarterData(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM cards`).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	ids := make([]int64, len(starterCatalog))
	for i := range starterCatalog {
		c := starterCard(i)
		err := tx.QueryRow(ctx,
			`INSERT INTO cards (name, hp, attack, type, pokedex_number, img_url) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			c.Name, c.HP, c.Attack, string(c.Type), c.PokedexNumber, c.ImgURL).Scan(&ids[i])
		if err != nil {
			return fmt.Errorf("insert card %s: %w", c.Name, err)
		}
	}
	for _, sd := range starterDecks {
		var deckID int64
		if err := tx.QueryRow(ctx, `INSERT INTO decks (user_id, name) VALUES ($1, $2) RETURNING id`, sd.OwnerID, sd.Name).Scan(&deckID); err != nil {
			return fmt.Errorf("insert deck for user %d: %w", sd.OwnerID, err)
		}
		for pos, cp := range sd.CardPositions {
			if _, err := tx.Exec(ctx, `INSERT INTO deck_cards (deck_id, card_id, position) VALUES ($1, $2, $3)`, deckID, ids[cp], pos); err != nil {
				return fmt.Errorf("insert deck card: %w", err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	slog.Info("seeded starter data", "tag", "storage", "cards", len(starterCatalog), "decks", len(starterDecks))
	return nil
}

// rowScanner is satisfied by pgx.Rows and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(r rowScanner) (card.Card, error) {
	var c card.Card
	var typ string
	if err := r.Scan(&c.ID, &c.Name, &c.HP, &c.Attack, &typ, &c.PokedexNumber, &c.ImgURL); err != nil {
		return card.Card{}, err
	}
	c.Type = card.ParseType(typ)
	return c, nil
}
