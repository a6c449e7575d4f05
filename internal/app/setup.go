package app

import (
	"context"
	"fmt"

	"github.com/jmlago/prediction-arb/internal/arbitrage"
	"github.com/jmlago/prediction-arb/internal/circuitbreaker"
	"github.com/jmlago/prediction-arb/internal/executor"
	"github.com/jmlago/prediction-arb/internal/feed"
	"github.com/jmlago/prediction-arb/internal/marketbook"
	"github.com/jmlago/prediction-arb/internal/positions"
	"github.com/jmlago/prediction-arb/internal/storage"
	"github.com/jmlago/prediction-arb/pkg/cache"
	"github.com/jmlago/prediction-arb/pkg/config"
	"github.com/jmlago/prediction-arb/pkg/healthprobe"
	"github.com/jmlago/prediction-arb/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	priceCache, err := setupPriceCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup price cache: %w", err)
	}

	feedClient := setupFeedClient(cfg, logger)
	bookManager := setupBookManager(cfg, logger, priceCache, feedClient)

	detector, err := setupDetector(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup detector: %w", err)
	}

	validator, err := setupValidator(cfg, logger, priceCache)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup validator: %w", err)
	}

	breaker, err := setupBreaker(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	tracker, err := positions.NewTracker(&positions.TrackerConfig{Logger: logger})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup position tracker: %w", err)
	}

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	oppChan := make(chan *arbitrage.Opportunity, cfg.OpportunityBufSize)

	paperExec, err := executor.New(&executor.Config{
		Logger:          logger,
		Breaker:         breaker,
		Tracker:         tracker,
		Validator:       validator,
		Storage:         store,
		OpportunityChan: oppChan,
		SettlementChan:  feedClient.SettlementChan(),
		LiquidityFactor: cfg.ExecutionLiquidityFactor,
		GasBufferCents:  cfg.ExecutionGasBufferCents,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup executor: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Breaker:       breaker,
		Tracker:       tracker,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		priceCache:    priceCache,
		feedClient:    feedClient,
		bookManager:   bookManager,
		detector:      detector,
		validator:     validator,
		breaker:       breaker,
		tracker:       tracker,
		paperExec:     paperExec,
		storage:       store,
		oppChan:       oppChan,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupPriceCache(cfg *config.Config, logger *zap.Logger) (*cache.PriceCache, error) {
	return cache.NewPriceCache(&cache.PriceCacheConfig{
		NumCounters: cfg.PriceCacheMaxItems * 10,
		MaxItems:    cfg.PriceCacheMaxItems,
		TTL:         cfg.PriceCacheTTL,
		Logger:      logger,
	})
}

func setupFeedClient(cfg *config.Config, logger *zap.Logger) *feed.Client {
	return feed.New(feed.Config{
		URL:                   cfg.FeedWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		BufferSize:            cfg.WSMessageBufferSize,
		Logger:                logger,
	})
}

func setupBookManager(cfg *config.Config, logger *zap.Logger, prices *cache.PriceCache, feedClient *feed.Client) *marketbook.Manager {
	return marketbook.New(&marketbook.Config{
		Logger:     logger,
		Prices:     prices,
		TickChan:   feedClient.TickChan(),
		MetaChan:   feedClient.MetaChan(),
		BufferSize: cfg.WSMessageBufferSize,
	})
}

func setupDetector(cfg *config.Config, logger *zap.Logger) (*arbitrage.Detector, error) {
	return arbitrage.New(arbitrage.Config{
		FeeCents:        cfg.ArbFeeCents,
		MinTradeSizeUSD: cfg.ArbMinTradeSize,
		MaxTradeSizeUSD: cfg.ArbMaxTradeSize,
		Logger:          logger,
	})
}

func setupValidator(cfg *config.Config, logger *zap.Logger, prices *cache.PriceCache) (*arbitrage.Validator, error) {
	return arbitrage.NewValidator(arbitrage.ValidatorConfig{
		Prices:   prices,
		MaxStale: cfg.ValidatorMaxStale,
		Logger:   logger,
	})
}

func setupBreaker(cfg *config.Config, logger *zap.Logger) (*circuitbreaker.Breaker, error) {
	return circuitbreaker.New(&circuitbreaker.Config{
		MaxPositionPerMarketUSD: cfg.BreakerMaxPositionPerMarket,
		MaxTotalPositionUSD:     cfg.BreakerMaxTotalPosition,
		MaxDailyLossUSD:         cfg.BreakerMaxDailyLoss,
		MaxLossPerTradeUSD:      cfg.BreakerMaxLossPerTrade,
		MaxConsecutiveErrors:    cfg.BreakerMaxConsecutiveErrors,
		ErrorCooldown:           cfg.BreakerErrorCooldown,
		GasBufferCents:          cfg.ExecutionGasBufferCents,
		LiquidityFactor:         cfg.ExecutionLiquidityFactor,
		Logger:                  logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}
