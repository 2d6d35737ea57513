package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forex-autotrader/internal/api"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/store"
	"forex-autotrader/internal/supervisor"
	"forex-autotrader/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	must(err)
	cfgStore := store.NewStore(cfg)

	dlog, err := initializeDecisionLog(ctx, cfg)
	must(err)
	defer dlog.Close()

	feeds, executor := initializeFeeds(ctx, cfg)
	scorer := initializeScorer(cfgStore)

	sup := supervisor.New(cfgStore, feeds, scorer, executor, dlog, startingEquity())
	hub := api.NewHub()
	sup.SetNotifier(hub.Broadcast)

	srv := api.NewServer(sup, cfgStore, dlog, hub)
	go func() {
		if err := srv.Run(cfg.API.Listen); err != nil {
			logger.ErrorWithErr(ctx, "API server failed", err)
			cancel()
		}
	}()
	logger.Info(ctx, "Control API listening", "addr", cfg.API.Listen)

	if autoStart() {
		must(sup.Start(ctx))
	} else {
		logger.Info(ctx, "Waiting for start command")
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info(ctx, "Shutting down...")
	case <-ctx.Done():
	}

	if err := sup.Stop(ctx, "process shutdown"); err != nil && !isTransitionError(err) {
		logger.ErrorWithErr(ctx, "Supervisor stop failed", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	hub.Close(shutdownCtx)
	_ = srv.Shutdown(shutdownCtx)
	_ = trace.Shutdown(shutdownCtx)
}
