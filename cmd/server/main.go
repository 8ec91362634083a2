package main

import (
	"context"
	"errors"
	"flag"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vncsmyrnk/slotpoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/slotpoll/internal/bootstrap"
	"github.com/vncsmyrnk/slotpoll/internal/config"
	"github.com/vncsmyrnk/slotpoll/internal/core/services"
	"github.com/vncsmyrnk/slotpoll/internal/logging"
	"github.com/vncsmyrnk/slotpoll/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Store backend: memory, postgres or firestore")
	flag.Parse()

	if err := cfg.Validate(true); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer stores.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg)

	driver := bootstrap.NewDriver(cfg, stores, log, m)
	pollService := services.NewPollService(stores.Polls, services.SystemClock{})
	voteService := services.NewVoteService(stores.Polls, stores.Votes, services.SystemClock{})

	handler := http.NewHandler(
		http.RouterConfig{
			JWTSecret:      []byte(cfg.JWTSecret),
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		},
		http.NewPollHandler(pollService),
		http.NewVoteHandler(voteService),
		http.NewResultsHandler(driver),
	)
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.StoreBackend).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("shutdown failed")
	}
}
