package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/crypturls/internal/aggregator"
	"github.com/LJTian/crypturls/internal/api"
	"github.com/LJTian/crypturls/internal/cache"
	"github.com/LJTian/crypturls/internal/config"
	"github.com/LJTian/crypturls/internal/fetch"
	"github.com/LJTian/crypturls/internal/logging"
	"github.com/LJTian/crypturls/internal/scheduler"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFile)

	client := fetch.New(
		fetch.WithTimeout(cfg.HTTPTimeout),
		fetch.WithHostLimit(fetch.CoinGeckoHost, cfg.CoinGeckoInterval, 3),
	)
	agg := aggregator.New(
		cache.New(cache.DefaultCleanupInterval),
		client,
		aggregator.WithAIXBTKey(cfg.AIXBTAPIKey),
	)

	var sched *scheduler.Scheduler
	if cfg.WarmEnabled {
		warmers := agg.Warmers()
		list := make([]scheduler.Warmer, 0, len(warmers))
		for _, w := range warmers {
			list = append(list, w)
		}
		s, err := scheduler.New(
			[]scheduler.Job{{Warmers: list, CronSpec: cfg.WarmCronSpec}},
			scheduler.WithStartupDelay(cfg.WarmStartupDelay),
		)
		if err != nil {
			log.Fatal().Err(err).Str("cron", cfg.WarmCronSpec).Msg("init scheduler failed")
		}
		s.Start()
		sched = s
	}

	addr := ":" + cfg.AppPort
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(agg),
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exit")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if sched != nil {
		sched.Stop()
	}
	log.Info().Msg("bye")
}
