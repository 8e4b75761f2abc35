package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"card-battle-server/card"
	"card-battle-server/matcherrors"
)

const createTablesSQLite = `
CREATE TABLE IF NOT EXISTS cards (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT    NOT NULL,
	hp             INTEGER NOT NULL,
	attack         INTEGER NOT NULL,
	type           TEXT    NOT NULL,
	pokedex_number INTEGER NOT NULL,
	img_url        TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_cards_pokedex ON cards(pokedex_number);
CREATE TABLE IF NOT EXISTS decks (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decks_user_id ON decks(user_id);
CREATE TABLE IF NOT EXISTS deck_cards (
	deck_id  INTEGER NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
	card_id  INTEGER NOT NULL REFERENCES cards(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (deck_id, position)
);
`

// SQLiteStore reads decks and cards from a local SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, createTablesSQLite); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	slog.Info("opened SQLite store", "tag", "storage", "path", path)
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() {
	if s != nil && s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
}

// GetDeck implements DeckStore.
func (s *SQLiteStore) GetDeck(ctx context.Context, deckID, ownerID int64) (*Deck, error) {
	var d Deck
	err := s.sqlDB.QueryRowContext(ctx, `SELECT id, user_id, name FROM decks WHERE id = ?`, deckID).
		Scan(&d.ID, &d.OwnerID, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deck %d: %w", deckID, matcherrors.ErrDeckNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load deck %d: %w", deckID, err)
	}
	if d.OwnerID != ownerID {
		return nil, fmt.Errorf("deck %d: %w", deckID, matcherrors.ErrDeckNotOwned)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT c.id, c.name, c.hp, c.attack, c.type, c.pokedex_number, c.img_url
		FROM deck_cards dc
		JOIN cards c ON c.id = dc.card_id
		WHERE dc.deck_id = ?
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
func (s *SQLiteStore) ValidateCards(ctx context.Context, ids []int64) (bool, error) {
	unique := distinctIDs(ids)
	if len(unique) == 0 {
		return true, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]any, len(unique))
	for i, id := range unique {
		args[i] = id
	}
	var n int
	q := `SELECT count(*) FROM cards WHERE id IN (` + placeholders + `)`
	if err := s.sqlDB.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("validate cards: %w", err)
	}
	return n == len(unique), nil
}

// CardCatalog implements DeckStore.
func (s *SQLiteStore) CardCatalog(ctx context.Context) ([]card.Card, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
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
func (s *SQLiteStore) SeedStarterData(ctx context.Context) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM cards`).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	ids := make([]int64, len(starterCatalog))
	for i := range starterCatalog {
		c := starterCard(i)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO cards (name, hp, attack, type, pokedex_number, img_url) VALUES (?, ?, ?, ?, ?, ?)`,
			c.Name, c.HP, c.Attack, string(c.Type), c.PokedexNumber, c.ImgURL)
		if err != nil {
			return fmt.Errorf("insert card %s: %w", c.Name, err)
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return err
		}
	}
	for _, sd := range starterDecks {
		res, err := tx.ExecContext(ctx, `INSERT INTO decks (user_id, name) VALUES (?, ?)`, sd.OwnerID, sd.Name)
		if err != nil {
			return fmt.Errorf("insert deck for user %d: %w", sd.OwnerID, err)
		}
		deckID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for pos, cp := range sd.CardPositions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO deck_cards (deck_id, card_id, position) VALUES (?, ?, ?)`, deckID, ids[cp], pos); err != nil {
				return fmt.Errorf("insert deck card: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("seeded starter data", "tag", "storage", "cards", len(starterCatalog), "decks", len(starterDecks))
	return nil
}
