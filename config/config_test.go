package config

import (
	"log/slog"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.DeckSize != 10 {
		t.Errorf("expected DeckSize=10, got %d", cfg.DeckSize)
	}
	if cfg.HandSize != 5 {
		t.Errorf("expected HandSize=5, got %d", cfg.HandSize)
	}
	if cfg.WinScore != 3 {
		t.Errorf("expected WinScore=3, got %d", cfg.WinScore)
	}
	if cfg.WSPort != 8080 {
		t.Errorf("expected WSPort=8080, got %d", cfg.WSPort)
	}
	if cfg.TurnLimitSec != 0 {
		t.Errorf("expected TurnLimitSec=0 (disabled), got %d", cfg.TurnLimitSec)
	}
	if cfg.AIJoinAfterSec != 0 {
		t.Errorf("expected AIJoinAfterSec=0 (disabled), got %d", cfg.AIJoinAfterSec)
	}
	if len(cfg.AIProfiles) == 0 {
		t.Error("expected at least one AI profile")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("WS_PORT", "9090")
	t.Setenv("WIN_SCORE", "5")
	t.Setenv("TURN_LIMIT_SEC", "30")
	t.Setenv("DATABASE_URL", "sqlite:/tmp/cards.db")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	if cfg.WSPort != 9090 {
		t.Errorf("expected WSPort=9090 after env override, got %d", cfg.WSPort)
	}
	if cfg.WinScore != 5 {
		t.Errorf("expected WinScore=5 after env override, got %d", cfg.WinScore)
	}
	if cfg.TurnLimitSec != 30 {
		t.Errorf("expected TurnLimitSec=30 after env override, got %d", cfg.TurnLimitSec)
	}
	if cfg.DatabaseURL != "sqlite:/tmp/cards.db" {
		t.Errorf("unexpected DatabaseURL %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("unexpected JWTSecret %q", cfg.JWTSecret)
	}
	// Non-overridden fields should remain default
	if cfg.HandSize != 5 {
		t.Errorf("expected HandSize=5 (default), got %d", cfg.HandSize)
	}
}

func TestLoadWithInvalidEnv(t *testing.T) {
	t.Setenv("WIN_SCORE", "invalid")

	cfg := Load()

	if cfg.WinScore != 3 {
		t.Errorf("expected WinScore=3 (default) with invalid env, got %d", cfg.WinScore)
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Defaults()
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("expected info level by default")
	}
	cfg.LogLevel = "debug"
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level")
	}
}
