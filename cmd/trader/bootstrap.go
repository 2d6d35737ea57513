package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"forex-autotrader/internal/adapters"
	"forex-autotrader/internal/decisionlog"
	"forex-autotrader/internal/engines"
	"forex-autotrader/internal/engines/scorerobs"
	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/store"
	"forex-autotrader/internal/supervisor"
	"forex-autotrader/internal/trace"
)

// initializeSystem initializes environment, logger and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

func initializeDecisionLog(ctx context.Context, cfg *store.Config) (*decisionlog.SQLite, error) {
	dlog, err := decisionlog.Open(cfg.DBPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open decision log", err, "path", cfg.DBPath)
		return nil, err
	}
	logger.Info(ctx, "Decision log opened", "path", cfg.DBPath)
	return dlog, nil
}

// initializeFeeds builds the market snapshot source and the trade executor.
// Execution is always paper: real broker integrations live behind the
// TradeExecutor contract.
func initializeFeeds(ctx context.Context, cfg *store.Config) (supervisor.SnapshotSource, interfaces.TradeExecutor) {
	var (
		prices   interfaces.PriceFeed
		news     interfaces.NewsFeed
		calendar interfaces.CalendarFeed
	)

	if cfg.DataSource == "LIVE" {
		prices = adapters.NewLivePriceFeed(adapters.LivePriceFeedParams{
			BaseURL: os.Getenv("MARKETDATA_URL"),
			APIKey:  os.Getenv("MARKETDATA_API_KEY"),
		})
		news = adapters.NewNewsScraper()
		calendar = adapters.NewCalendarClient(os.Getenv("CALENDAR_URL"))
		logger.Info(ctx, "Using LIVE market data feeds")
	} else {
		prices = adapters.NewSimPriceFeed()
		news = adapters.NewSimNewsFeed()
		calendar = adapters.NewSimCalendarFeed()
		logger.Info(ctx, "Using STATIC simulated feeds")
	}

	broker := adapters.NewSimBroker(prices)
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	} else {
		logger.Warn(ctx, "LIVE mode requested but execution is paper-only in this build")
	}

	return adapters.NewSignalAdapter(prices, news, calendar, broker), broker
}

// initializeScorer builds the five engines and wraps the scorer with
// observability middleware.
func initializeScorer(cfg *store.Store) interfaces.Scorer {
	scorer := engines.NewScorer(cfg,
		engines.NewTechnicalEngine(cfg),
		engines.NewSentimentEngine(),
		engines.NewFundamentalEngine(cfg),
		engines.NewAdvisorEngine(cfg),
		engines.NewRiskScoreEngine(cfg),
	)
	return scorerobs.Wrap(scorer)
}

func startingEquity() float64 {
	if v := os.Getenv("STARTING_EQUITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 100000
}

func autoStart() bool {
	return os.Getenv("AUTO_START") != "false"
}

func isTransitionError(err error) bool {
	return errors.Is(err, supervisor.ErrNotRunning) || errors.Is(err, supervisor.ErrAlreadyRunning)
}
