package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/slotpoll/internal/bootstrap"
	"github.com/vncsmyrnk/slotpoll/internal/config"
	"github.com/vncsmyrnk/slotpoll/internal/logging"
)

// driver keeps evaluating one poll until interrupted, the way an open
// results view would.
func main() {
	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var pollID string
	flag.StringVar(&pollID, "poll-id", "", "Poll to evaluate")
	flag.DurationVar(&cfg.TickInterval, "interval", cfg.TickInterval, "Time between evaluation passes")
	flag.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Store backend: postgres or firestore")
	flag.Parse()

	id, err := uuid.Parse(pollID)
	if err != nil {
		log.Fatal().Str("poll_id", pollID).Msg("a valid -poll-id is required")
	}
	if cfg.StoreBackend == config.BackendMemory {
		log.Fatal().Msg("the driver needs a shared store; use postgres or firestore")
	}
	if err := cfg.Validate(false); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer stores.Close()

	driver := bootstrap.NewDriver(cfg, stores, log, nil)

	log.Info().Str("poll_id", id.String()).Dur("interval", cfg.TickInterval).Msg("driving poll")
	if err := driver.Run(ctx, id); err != nil {
		log.Fatal().Err(err).Str("poll_id", id.String()).Msg("driver stopped")
	}
	log.Info().Msg("driver stopped")
}
