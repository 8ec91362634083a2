package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/vncsmyrnk/slotpoll/internal/bootstrap"
	"github.com/vncsmyrnk/slotpoll/internal/config"
	"github.com/vncsmyrnk/slotpoll/internal/core/services"
	"github.com/vncsmyrnk/slotpoll/internal/logging"
)

// pollsweeper runs one evaluation pass over every undecided poll. It is
// meant for cron and is safe to run next to open results views.
func main() {
	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var timeout time.Duration
	flag.IntVar(&cfg.SweepConcurrency, "concurrency", cfg.SweepConcurrency, "Polls evaluated in parallel")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Upper bound for the whole sweep")
	flag.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Store backend: postgres or firestore")
	flag.Parse()

	if err := cfg.Validate(false); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer stores.Close()

	driver := bootstrap.NewDriver(cfg, stores, log, nil)
	sweeper := services.NewSweepService(stores.Polls, driver, cfg.SweepConcurrency, log)

	log.Info().Int("concurrency", cfg.SweepConcurrency).Msg("starting poll sweep")
	if err := sweeper.SweepUndecided(ctx); err != nil {
		log.Fatal().Err(err).Msg("poll sweep finished with errors")
	}
	log.Info().Msg("poll sweep completed")
}
