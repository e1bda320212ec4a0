package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"puzzlerooms/internal/auth"
	"puzzlerooms/internal/config"
	"puzzlerooms/internal/game"
	"puzzlerooms/internal/game/memory"
	"puzzlerooms/internal/game/mission"
	"puzzlerooms/internal/logger"
	"puzzlerooms/internal/matching"
	"puzzlerooms/internal/room"
	"puzzlerooms/internal/server"
	"puzzlerooms/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogJSON)

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("open database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	registry := game.NewRegistry()
	registry.Register(mission.Game{})
	registry.Register(memory.Game{})

	secrets := auth.NewIssuer(cfg.TokenKey, 24*time.Hour)

	mgr := room.NewManager(registry, store, secrets, log)
	mgr.DefaultRules = game.Rules{TimeLimit: cfg.TurnTimeLimit}
	if err := mgr.Restore(); err != nil {
		log.Warn("restore rooms", "err", err)
	}

	// Cleanup stale rooms every minute, remove after 1 hour.
	go mgr.CleanupLoop(1*time.Minute, 1*time.Hour)

	matchmaker := matching.New(cfg.MatchGameType, mgr, store, log)

	srv := server.New(registry, mgr, matchmaker, log)

	log.Info("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}
