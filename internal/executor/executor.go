// Package executor turns validated opportunities into paper positions.
// Real order placement is out of scope; the executor exercises the same
// risk path a live engine would: reserve with the circuit breaker, open
// the legs, record fills, report the result back to the breaker.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmlago/prediction-arb/internal/arbitrage"
	"github.com/jmlago/prediction-arb/internal/circuitbreaker"
	"github.com/jmlago/prediction-arb/internal/positions"
	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Storage persists execution artifacts. Implemented by internal/storage.
type Storage interface {
	StoreFill(ctx context.Context, fill types.FillRecord) error
	StoreSettlement(ctx context.Context, rec types.SettlementRecord) error
}

// Executor consumes opportunities and settlements.
type Executor struct {
	logger          *zap.Logger
	breaker         *circuitbreaker.Breaker
	tracker         *positions.Tracker
	validator       *arbitrage.Validator
	storage         Storage
	oppChan         <-chan *arbitrage.Opportunity
	settlementChan  <-chan *types.SettlementEvent
	liquidityFactor float64
	gasBufferCents  int
	ctx             context.Context
	wg              sync.WaitGroup
}

// Config holds executor configuration.
type Config struct {
	Logger          *zap.Logger
	Breaker         *circuitbreaker.Breaker
	Tracker         *positions.Tracker
	Validator       *arbitrage.Validator
	Storage         Storage
	OpportunityChan <-chan *arbitrage.Opportunity
	SettlementChan  <-chan *types.SettlementEvent
	LiquidityFactor float64 // fraction of available liquidity to take
	GasBufferCents  int
}

// New creates a new paper executor.
func New(cfg *Config) (*Executor, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Breaker == nil || cfg.Tracker == nil || cfg.Validator == nil {
		return nil, fmt.Errorf("breaker, tracker and validator are required")
	}
	if cfg.LiquidityFactor <= 0 || cfg.LiquidityFactor > 1 {
		return nil, fmt.Errorf("liquidity factor must be in (0, 1]")
	}

	return &Executor{
		logger:          cfg.Logger,
		breaker:         cfg.Breaker,
		tracker:         cfg.Tracker,
		validator:       cfg.Validator,
		storage:         cfg.Storage,
		oppChan:         cfg.OpportunityChan,
		settlementChan:  cfg.SettlementChan,
		liquidityFactor: cfg.LiquidityFactor,
		gasBufferCents:  cfg.GasBufferCents,
	}, nil
}

// Start starts the execution loop.
func (e *Executor) Start(ctx context.Context) error {
	e.ctx = ctx
	e.logger.Info("executor-starting",
		zap.Float64("liquidity-factor", e.liquidityFactor))

	e.wg.Add(1)
	go e.loop()

	return nil
}

func (e *Executor) loop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("executor-stopping")
			return

		case opp, ok := <-e.oppChan:
			if !ok {
				return
			}
			start := time.Now()
			e.handleOpportunity(opp)
			ExecutionDurationSeconds.Observe(time.Since(start).Seconds())

		case event, ok := <-e.settlementChan:
			if !ok {
				return
			}
			e.handleSettlement(event)
		}
	}
}

// handleOpportunity is the check-then-act critical path: revalidate,
// reserve against the breaker, then open the legs. The breaker's Reserve
// keeps validation and booking atomic so two opportunities cannot both
// pass against the same remaining limit.
func (e *Executor) handleOpportunity(opp *arbitrage.Opportunity) {
	result := e.validator.Validate(opp)
	if !result.Valid {
		opp.Status = arbitrage.StatusExpired
		e.logger.Debug("opportunity-rejected-by-validator",
			zap.String("opportunity-id", opp.ID),
			zap.String("reason", string(result.Reason)),
			zap.String("detail", result.Detail))
		return
	}

	sizeUSD := opp.MaxTradeSizeUSD * e.liquidityFactor
	if sizeUSD < opp.MinTradeSizeUSD {
		e.logger.Debug("opportunity-below-min-size",
			zap.String("opportunity-id", opp.ID),
			zap.Float64("size-usd", sizeUSD),
			zap.Float64("min-size-usd", opp.MinTradeSizeUSD))
		return
	}

	gasBufferUSD := float64(e.gasBufferCents) / 100
	estimatedLossUSD := sizeUSD*opp.SlippageEstimate + gasBufferUSD

	verdict := e.breaker.Reserve(opp.MarketID, sizeUSD, estimatedLossUSD)
	if !verdict.CanExecute {
		opp.Status = arbitrage.StatusExpired
		e.logger.Info("trade-rejected-by-breaker",
			zap.String("opportunity-id", opp.ID),
			zap.String("reason", verdict.Reason.String()))
		return
	}

	opp.Status = arbitrage.StatusExecuting

	err := e.executePaper(opp, sizeUSD, gasBufferUSD)
	if err != nil {
		opp.Status = arbitrage.StatusExpired
		e.breaker.RecordFailure(opp.MarketID, sizeUSD, err)
		ExecutionsFailedTotal.Inc()
		e.logger.Error("execution-failed",
			zap.String("opportunity-id", opp.ID),
			zap.Error(err))
		return
	}

	// Each contract set locks in the net profit at settlement.
	quantity := sizeUSD * 100 / float64(opp.TotalCostCents)
	expectedProfitUSD := quantity * opp.NetProfitUSD

	opp.Status = arbitrage.StatusClosed
	e.breaker.RecordSuccess(types.TradeResult{
		OpportunityID: opp.ID,
		MarketID:      opp.MarketID,
		SizeUSD:       sizeUSD,
		PnLUSD:        expectedProfitUSD,
		GasUSD:        gasBufferUSD,
		Success:       true,
		ExecutedAt:    time.Now(),
	})
	ExecutionsTotal.Inc()

	e.logger.Info("execution-successful",
		zap.String("opportunity-id", opp.ID),
		zap.String("strategy", string(opp.Strategy)),
		zap.Float64("size-usd", sizeUSD),
		zap.Float64("expected-profit-usd", expectedProfitUSD))
}

// executePaper opens the positions a live execution would. Two-leg
// strategies become a tracked arbitrage pair; wider baskets open one
// position per leg.
func (e *Executor) executePaper(opp *arbitrage.Opportunity, sizeUSD, gasBufferUSD float64) error {
	quantity := sizeUSD * 100 / float64(opp.TotalCostCents)
	feePerLegUSD := quantity * float64(opp.FeesCents) / 100 / float64(len(opp.Legs))
	gasPerLegUSD := gasBufferUSD / float64(len(opp.Legs))

	params := make([]positions.OpenParams, len(opp.Legs))
	for i, leg := range opp.Legs {
		params[i] = positions.OpenParams{
			MarketID:        leg.MarketID,
			Platform:        leg.Platform,
			Outcome:         leg.Outcome,
			Quantity:        quantity,
			EntryPriceCents: leg.PriceCents,
			FeesUSD:         feePerLegUSD,
			GasUSD:          gasPerLegUSD,
		}
	}

	if len(params) == 2 {
		_, err := e.tracker.CreateArbitragePair(string(opp.Strategy), params[0], params[1])
		if err != nil {
			return fmt.Errorf("create pair: %w", err)
		}
	} else {
		for _, p := range params {
			if _, err := e.tracker.OpenPosition(p); err != nil {
				return fmt.Errorf("open %s leg: %w", p.Outcome, err)
			}
		}
	}

	for i, leg := range opp.Legs {
		fill := types.FillRecord{
			ID:         uuid.New().String(),
			OrderID:    fmt.Sprintf("paper-%s-%d", shortID(opp.ID), i),
			MarketID:   leg.MarketID,
			Platform:   leg.Platform,
			Outcome:    leg.Outcome,
			Side:       "BUY",
			PriceCents: leg.PriceCents,
			Size:       quantity,
			FeeUSD:     feePerLegUSD,
			FilledAt:   time.Now(),
		}
		e.tracker.RecordFill(fill)
		e.storeFill(fill)
	}

	return nil
}

// handleSettlement reconciles a market resolution: every position on
// the market snaps to its final price, the breaker's exposure for the
// market is released, and the settlement is persisted.
func (e *Executor) handleSettlement(event *types.SettlementEvent) {
	expectedUSD := 0.0
	for _, pos := range e.tracker.ActivePositionList() {
		if pos.MarketID != event.ConditionID || pos.SettledAt != nil {
			continue
		}
		if settlesToWin(pos.Outcome, event.WinningOutcome) {
			expectedUSD += pos.Quantity
		}
	}

	rec := types.SettlementRecord{
		ID:                uuid.New().String(),
		MarketID:          event.ConditionID,
		WinningOutcome:    event.WinningOutcome,
		ExpectedPayoutUSD: expectedUSD,
		// Paper mode pays out exactly what the book expects.
		ActualPayoutUSD: expectedUSD,
		SettledAt:       time.Unix(event.Timestamp, 0),
	}

	e.tracker.RecordSettlement(rec)
	e.breaker.ReleaseMarket(event.ConditionID)
	e.storeSettlement(rec)
	SettlementsHandledTotal.Inc()

	e.logger.Info("settlement-handled",
		zap.String("market-id", event.ConditionID),
		zap.String("winning-outcome", event.WinningOutcome),
		zap.Float64("payout-usd", expectedUSD))
}

func (e *Executor) storeFill(fill types.FillRecord) {
	if e.storage == nil {
		return
	}
	if err := e.storage.StoreFill(e.ctx, fill); err != nil {
		e.logger.Error("failed-to-store-fill",
			zap.String("fill-id", fill.ID),
			zap.Error(err))
	}
}

func (e *Executor) storeSettlement(rec types.SettlementRecord) {
	if e.storage == nil {
		return
	}
	if err := e.storage.StoreSettlement(e.ctx, rec); err != nil {
		e.logger.Error("failed-to-store-settlement",
			zap.String("market-id", rec.MarketID),
			zap.Error(err))
	}
}

// Close waits for the loop to drain.
func (e *Executor) Close() error {
	e.wg.Wait()
	e.logger.Info("executor-closed")
	return nil
}

// settlesToWin mirrors the tracker's payout rule for expected-payout
// accounting.
func settlesToWin(legOutcome, winningOutcome string) bool {
	leg := strings.ToUpper(legOutcome)
	winner := strings.ToUpper(winningOutcome)
	if base, isShort := strings.CutSuffix(leg, "_NO"); isShort {
		return base != winner
	}
	return leg == winner
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
