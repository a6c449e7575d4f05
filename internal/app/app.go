package app

import (
	"context"
	"sync"

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

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	priceCache    *cache.PriceCache
	feedClient    *feed.Client
	bookManager   *marketbook.Manager
	detector      *arbitrage.Detector
	validator     *arbitrage.Validator
	breaker       *circuitbreaker.Breaker
	tracker       *positions.Tracker
	paperExec     *executor.Executor
	storage       storage.Storage
	oppChan       chan *arbitrage.Opportunity
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
