// Command sparring connects scripted sparring partners to a running server.
//
// Settings come from the same ceremony.json / CEREMONY_* environment as the
// server, plus:
//
//	CEREMONY_SPARRING_URL    websocket endpoint (default ws://localhost:<port>/ws)
//	CEREMONY_SPARRING_NAME   name prefix (default "sparrer")
//	CEREMONY_SPARRING_COUNT  partners to connect (default 1)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/samalo0/Ceremony/internal/client"
	"github.com/samalo0/Ceremony/internal/config"
	"github.com/samalo0/Ceremony/internal/game"
	"github.com/samalo0/Ceremony/internal/logging"
)

const maxPartners = 32

func main() {
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("../.env")
	}

	v := viper.New()
	v.SetDefault("sparring.name", "sparrer")
	v.SetDefault("sparring.count", 1)
	cfg, err := config.LoadWith(v)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(cfg.Logging)

	url := v.GetString("sparring.url")
	if url == "" {
		url = fmt.Sprintf("ws://localhost:%d/ws", cfg.Server.Port)
	}
	count := min(max(v.GetInt("sparring.count"), 1), maxPartners)
	prefix := v.GetString("sparring.name")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 1; i <= count; i++ {
		name := prefix
		if count > 1 {
			name = fmt.Sprintf("%s-%d", prefix, i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			spar(ctx, cfg, logger.With().Str("partner", name).Logger(), url, name)
		}()
	}

	logger.Info().Str("url", url).Int("partners", count).Msg("Sparring, press Ctrl+C to stop")
	wg.Wait()
	logger.Info().Msg("Goodbye")
}

// spar keeps one partner connected until ctx ends, redialing after a
// dropped session.
func spar(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger, url, name string) {
	backoff := time.Second
	for ctx.Err() == nil {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		c, err := client.Dial(dialCtx, client.Options{
			URL:  url,
			Name: name,
			Engine: game.Options{
				Config: cfg,
				Logger: logger,
				Sound:  client.LogSound{Log: logger},
				Widget: client.WidgetFactory(logger),
			},
		})
		cancel()
		if err != nil {
			if errors.Is(err, client.ErrRefused) {
				logger.Error().Err(err).Msg("Server refused partner")
				return
			}
			logger.Warn().Err(err).Dur("retry", backoff).Msg("Dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second

		runErr := make(chan error, 1)
		go func() { runErr <- c.Run(ctx) }()
		if err := c.Spar(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("Session dropped")
		}
		c.Close()
		<-runErr
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
