package config

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
)

// AIParams holds the parameters for one bot profile.
type AIParams struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	DelayMinMS int    `json:"delay_min_ms"`
	DelayMaxMS int    `json:"delay_max_ms"`
	// EndTurnChance is the 0-100 probability of ending the turn instead of attacking
	// when both fields are occupied.
	EndTurnChance int `json:"end_turn_chance"`
}

// Config holds all configurable server and game parameters.
type Config struct {
	WSPort   int    `json:"ws_port" env:"WS_PORT"`
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// DatabaseURL selects the deck store: a postgres:// URL, or sqlite:<path> for a local file.
	DatabaseURL string `json:"database_url" env:"DATABASE_URL"`
	// SeedStarterData inserts the demo catalogue and starter decks when the store is empty.
	SeedStarterData bool `json:"seed_starter_data" env:"SEED_STARTER_DATA"`

	// JWTSecret verifies HS256 tokens. Ignored when JWKSURL is set.
	JWTSecret string `json:"-" env:"JWT_SECRET"`
	JWKSURL   string `json:"jwks_url" env:"JWKS_URL"`

	DeckSize int `json:"deck_size" env:"DECK_SIZE"`
	HandSize int `json:"hand_size" env:"HAND_SIZE"`
	WinScore int `json:"win_score" env:"WIN_SCORE"`

	// TypeChart names the damage oracle: "standard" or "flat".
	TypeChart string `json:"type_chart" env:"TYPE_CHART"`

	// TurnLimitSec is the per-turn deadline; 0 disables it.
	TurnLimitSec int `json:"turn_limit_sec" env:"TURN_LIMIT_SEC"`

	MaxMessageBytes   int64   `json:"max_message_bytes" env:"MAX_MESSAGE_BYTES"`
	MessagesPerSecond float64 `json:"messages_per_second" env:"MESSAGES_PER_SECOND"`
	MessageBurst      int     `json:"message_burst" env:"MESSAGE_BURST"`

	// AIJoinAfterSec is how long a room stays open before a bot joins it; 0 disables bots.
	AIJoinAfterSec int        `json:"ai_join_after_sec" env:"AI_JOIN_AFTER_SEC"`
	AIProfiles     []AIParams `json:"ai_profiles"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		WSPort:            8080,
		LogLevel:          "info",
		DatabaseURL:       "sqlite:card-battle.db",
		SeedStarterData:   true,
		DeckSize:          10,
		HandSize:          5,
		WinScore:          3,
		TypeChart:         "standard",
		TurnLimitSec:      0,
		MaxMessageBytes:   4096,
		MessagesPerSecond: 10,
		MessageBurst:      20,
		AIJoinAfterSec:    0,
		AIProfiles: []AIParams{
			{Name: "Professor Oak", Email: "oak@bots.local", DelayMinMS: 600, DelayMaxMS: 1500, EndTurnChance: 5},
			{Name: "Gary", Email: "gary@bots.local", DelayMinMS: 300, DelayMaxMS: 900, EndTurnChance: 0},
		},
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config.json", "tag", "config", "err", err)
		}
	}

	// Parse into a copy so a malformed variable leaves the file/default values intact.
	withEnv := *cfg
	withEnv.AIProfiles = append([]AIParams(nil), cfg.AIProfiles...)
	if err := env.Parse(&withEnv); err != nil {
		slog.Warn("invalid environment override, keeping previous values", "tag", "config", "err", err)
		return cfg
	}
	return &withEnv
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
