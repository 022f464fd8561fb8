package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/samalo0/Ceremony/internal/api"
	"github.com/samalo0/Ceremony/internal/client"
	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/config"
	"github.com/samalo0/Ceremony/internal/game"
	"github.com/samalo0/Ceremony/internal/logging"
)

func main() {
	// .env next to the binary or one level up, then plain environment.
	envErr := godotenv.Load(".env")
	if envErr != nil {
		envErr = godotenv.Load("../.env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(cfg.Logging)
	if envErr != nil {
		logger.Debug().Msg("No .env file found, using environment variables only")
	}

	mode := combat.DedicatedServer
	if cfg.Server.ListenHost {
		mode = combat.ListenServer
	}

	hub := api.NewWebSocketHub(cfg, nil, logger)
	engine := game.NewEngine(game.Options{
		Config:  cfg,
		Mode:    mode,
		Logger:  logger,
		Link:    hub,
		Metrics: api.PromMetrics{},
		Sound:   client.LogSound{Log: logging.Component(logger, "sound")},
		Widget:  client.WidgetFactory(logging.Component(logger, "hud")),
	})

	logger.Info().
		Stringer("mode", mode).
		Int("tickrate", cfg.Server.TickRate).
		Int("max_players", cfg.Server.MaxPlayers).
		Int("max_characters", cfg.Limits.MaxCharacters).
		Int("max_projectiles", cfg.Limits.MaxProjectiles).
		Msg("Ceremony server configured")

	if cfg.Server.ListenHost {
		id, err := engine.Join(cfg.Server.HostName, true)
		if err != nil {
			logger.Fatal().Err(err).Msg("host could not join")
		}
		logger.Info().Uint32("character", uint32(id)).Str("name", cfg.Server.HostName).Msg("Listen host seated")
	}

	if path := cfg.Observability.EventLogPath; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			logger.Warn().Err(err).Msg("Event log disabled")
		} else {
			logger.Info().Str("path", path).Msg("Event log started")
		}
	}

	debug := api.StartDebugServer(cfg.Observability.DebugPort, logger)
	server := api.NewServer(cfg, engine, hub, logger)

	engine.Start()

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start(addr) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Str("addr", addr).Msg("Server ready, press Ctrl+C to stop")
	select {
	case sig := <-quit:
		logger.Info().Stringer("signal", sig).Msg("Shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("API server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn().Err(err).Msg("API shutdown")
	}
	if debug != nil {
		_ = debug.Shutdown(ctx)
	}
	engine.Stop()
	logger.Info().Msg("Goodbye")
}
