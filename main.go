package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"card-battle-server/ai"
	"card-battle-server/api"
	"card-battle-server/auth"
	"card-battle-server/config"
	"card-battle-server/loghandler"
	"card-battle-server/matchmaking"
	"card-battle-server/rules"
	"card-battle-server/storage"
	"card-battle-server/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, cfg.SlogLevel())))
	if envErr != nil {
		slog.Info("no .env file found; using environment variables", "tag", "config")
	}

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open deck store: %w", err)
	}
	defer store.Close()
	if cfg.SeedStarterData {
		if err := store.SeedStarterData(ctx); err != nil {
			return fmt.Errorf("seed starter data: %w", err)
		}
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWKSURL)
	if err != nil {
		return err
	}
	if !verifier.Configured() {
		slog.Warn("JWT_SECRET and JWKS_URL are not set; every websocket handshake will be rejected", "tag", "auth")
	}

	lobby, hub, mux := wire(ctx, cfg, store, verifier)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WSPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("configuration", "tag", "config",
		"deckSize", cfg.DeckSize, "handSize", cfg.HandSize, "winScore", cfg.WinScore,
		"typeChart", cfg.TypeChart, "turnLimitSec", cfg.TurnLimitSec, "aiJoinAfterSec", cfg.AIJoinAfterSec)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return lobby.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		slog.Info("card battle server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// wire builds the lobby, the session hub and the HTTP routes over store.
func wire(ctx context.Context, cfg *config.Config, store storage.DeckStore, verifier *auth.Verifier) (*matchmaking.Lobby, *ws.Hub, *http.ServeMux) {
	oracle := rules.ByName(cfg.TypeChart)
	lobby := matchmaking.NewLobby(cfg, store, oracle, nil)
	hub := ws.NewHub(cfg, lobby, verifier)
	lobby.SetNotifier(hub)
	if cfg.AIJoinAfterSec > 0 {
		lobby.OnStaleRoom = ai.NewSpawner(ctx, cfg, lobby, store, oracle).JoinRoom
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	api.NewHandler(lobby, store).Register(mux)
	return lobby, hub, mux
}
