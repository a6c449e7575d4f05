package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// State is the breaker's trading gate state.
type State string

const (
	// StateClosed means trading is enabled.
	StateClosed State = "CLOSED"
	// StateOpen means trading is halted.
	StateOpen State = "OPEN"
	// StateHalfOpen is probation after the cooldown: trading is allowed
	// but any error re-trips immediately.
	StateHalfOpen State = "HALF_OPEN"
)

const dailyMetricsDateLayout = "2006-01-02"

// Config holds the breaker's risk limits plus its collaborators.
// Limits are immutable per session except through UpdateConfig.
type Config struct {
	MaxPositionPerMarketUSD float64
	MaxTotalPositionUSD     float64
	MaxDailyLossUSD         float64
	MaxLossPerTradeUSD      float64
	MaxConsecutiveErrors    int
	ErrorCooldown           time.Duration
	GasBufferCents          int
	LiquidityFactor         float64

	Logger *zap.Logger
	Clock  func() time.Time // override for tests; nil means time.Now
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		MaxPositionPerMarketUSD: 50000,
		MaxTotalPositionUSD:     100000,
		MaxDailyLossUSD:         500,
		MaxLossPerTradeUSD:      5,
		MaxConsecutiveErrors:    5,
		ErrorCooldown:           60 * time.Second,
		GasBufferCents:          3,
		LiquidityFactor:         0.5,
	}
}

// Validate checks limit consistency.
func (c *Config) Validate() error {
	if c.MaxPositionPerMarketUSD <= 0 {
		return fmt.Errorf("max position per market must be positive")
	}
	if c.MaxTotalPositionUSD < c.MaxPositionPerMarketUSD {
		return fmt.Errorf("max total position must be >= max position per market")
	}
	if c.MaxDailyLossUSD <= 0 {
		return fmt.Errorf("max daily loss must be positive")
	}
	if c.MaxLossPerTradeUSD <= 0 {
		return fmt.Errorf("max loss per trade must be positive")
	}
	if c.MaxConsecutiveErrors <= 0 {
		return fmt.Errorf("max consecutive errors must be positive")
	}
	if c.ErrorCooldown <= 0 {
		return fmt.Errorf("error cooldown must be positive")
	}
	return nil
}

// ConfigPatch updates a subset of limits. Nil fields are left unchanged.
type ConfigPatch struct {
	MaxPositionPerMarketUSD *float64
	MaxTotalPositionUSD     *float64
	MaxDailyLossUSD         *float64
	MaxLossPerTradeUSD      *float64
	MaxConsecutiveErrors    *int
	ErrorCooldown           *time.Duration
	GasBufferCents          *int
	LiquidityFactor         *float64
}

// DailyMetrics accumulates one calendar day of trading results. It is
// keyed by date and resets automatically when the date rolls over.
type DailyMetrics struct {
	Date           string
	RealizedPnLUSD float64
	GasSpentUSD    float64
	TradesExecuted int
	TradesFailed   int
}

// Status is the operator-facing summary.
type Status struct {
	State                  State
	CanTrade               bool
	ErrorCount             int
	ConsecutiveErrors      int
	DailyPnLUSD            float64
	RemainingLossBudgetUSD float64
	OpenPositionCount      int
	TotalPositionUSD       float64
	TripReason             string
	TrippedAt              time.Time
}

// Diagnostics is the full config and state dump.
type Diagnostics struct {
	Config    Config
	Status    Status
	Daily     DailyMetrics
	Positions map[string]float64
}

// Breaker is the single gate in front of trade execution. It tracks
// daily P&L, consecutive errors and position exposure, and halts trading
// past configured limits.
//
// One instance owns one trading session. All state lives behind a single
// mutex; Reserve is the atomic check-then-act path callers must use when
// a passing validation is immediately followed by opening a position.
//
// The OPEN -> HALF_OPEN -> CLOSED recovery is evaluated lazily on read:
// nothing transitions the breaker until State, CanTrade, ValidateTrade or
// Reserve is called.
type Breaker struct {
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	state             State
	trippedAt         time.Time
	tripReason        string
	errorCount        int
	consecutiveErrors int
	daily             DailyMetrics
	positions         map[string]float64
	totalPositionUSD  float64
}

// New creates a breaker in the CLOSED state.
func New(cfg *Config) (*Breaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	b := &Breaker{
		cfg:       *cfg,
		logger:    cfg.Logger,
		now:       now,
		state:     StateClosed,
		positions: make(map[string]float64),
	}
	b.daily = DailyMetrics{Date: now().Format(dailyMetricsDateLayout)}

	BreakerState.Set(stateGauge(StateClosed))

	return b, nil
}

// State returns the current state, applying any cooldown transitions due.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(b.now())
	return b.state
}

// CanTrade reports whether any trade may currently be submitted.
func (b *Breaker) CanTrade() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(b.now())
	return b.state != StateOpen
}

// ValidateTrade checks, in order: breaker state, projected daily loss,
// per-trade loss cap, per-market position cap and total position cap,
// returning the first failing limit. The ordering is part of the
// contract so callers can assert which limit rejected a trade.
//
// A projected daily-loss breach trips the breaker as a side effect.
func (b *Breaker) ValidateTrade(marketID string, tradeSizeUSD, estimatedLossUSD float64) Verdict {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.validateLocked(marketID, tradeSizeUSD, estimatedLossUSD)
}

// Reserve validates a trade and, if it passes, books its size against
// the per-market and total position limits in the same critical section.
// Callers must follow up with RecordSuccess or RecordFailure.
func (b *Breaker) Reserve(marketID string, tradeSizeUSD, estimatedLossUSD float64) Verdict {
	b.mu.Lock()
	defer b.mu.Unlock()

	verdict := b.validateLocked(marketID, tradeSizeUSD, estimatedLossUSD)
	if !verdict.CanExecute {
		return verdict
	}

	b.positions[marketID] += tradeSizeUSD
	b.totalPositionUSD += tradeSizeUSD
	OpenPositionsUSD.Set(b.totalPositionUSD)

	return verdict
}

func (b *Breaker) validateLocked(marketID string, tradeSizeUSD, estimatedLossUSD float64) Verdict {
	now := b.now()
	b.refresh(now)

	if b.state == StateOpen {
		TradesRejectedTotal.WithLabelValues(string(ReasonBreakerOpen)).Inc()
		return reject(ReasonBreakerOpen, 0, 0)
	}

	projected := b.daily.RealizedPnLUSD - estimatedLossUSD
	if projected < -b.cfg.MaxDailyLossUSD {
		b.trip(now, fmt.Sprintf("projected daily loss %.2f exceeds limit %.2f", -projected, b.cfg.MaxDailyLossUSD), false)
		TradesRejectedTotal.WithLabelValues(string(ReasonDailyLossExceeded)).Inc()
		return reject(ReasonDailyLossExceeded, b.cfg.MaxDailyLossUSD, -projected)
	}

	if estimatedLossUSD > b.cfg.MaxLossPerTradeUSD {
		TradesRejectedTotal.WithLabelValues(string(ReasonPerTradeLossExceeded)).Inc()
		return reject(ReasonPerTradeLossExceeded, b.cfg.MaxLossPerTradeUSD, estimatedLossUSD)
	}

	if b.positions[marketID]+tradeSizeUSD > b.cfg.MaxPositionPerMarketUSD {
		TradesRejectedTotal.WithLabelValues(string(ReasonPerMarketPositionExceeded)).Inc()
		return reject(ReasonPerMarketPositionExceeded, b.cfg.MaxPositionPerMarketUSD, b.positions[marketID]+tradeSizeUSD)
	}

	if b.totalPositionUSD+tradeSizeUSD > b.cfg.MaxTotalPositionUSD {
		TradesRejectedTotal.WithLabelValues(string(ReasonTotalPositionExceeded)).Inc()
		return reject(ReasonTotalPositionExceeded, b.cfg.MaxTotalPositionUSD, b.totalPositionUSD+tradeSizeUSD)
	}

	return approve()
}

// UpdatePosition applies a trade result against a market: a success is
// recorded into daily metrics, a failure releases the reserved size and
// counts toward the error trip threshold.
func (b *Breaker) UpdatePosition(marketID string, result types.TradeResult) {
	if result.Success {
		b.RecordSuccess(result)
		return
	}
	b.RecordFailure(marketID, result.SizeUSD, fmt.Errorf("execution failed for market %s", marketID))
}

// RecordSuccess accumulates realized P&L and gas spend and resets the
// consecutive-error counter. Successes also work off accumulated errors
// one at a time, so a HALF_OPEN breaker can close.
func (b *Breaker) RecordSuccess(result types.TradeResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.refresh(now)

	b.consecutiveErrors = 0
	if b.errorCount > 0 {
		b.errorCount--
	}

	b.daily.RealizedPnLUSD += result.PnLUSD
	b.daily.GasSpentUSD += result.GasUSD
	b.daily.TradesExecuted++

	DailyPnLUSD.Set(b.daily.RealizedPnLUSD)
	TradesExecutedTotal.Inc()

	b.logger.Info("trade-success-recorded",
		zap.String("opportunity-id", result.OpportunityID),
		zap.Float64("pnl-usd", result.PnLUSD),
		zap.Float64("daily-pnl-usd", b.daily.RealizedPnLUSD))

	// A success may complete the HALF_OPEN exit conditions.
	b.refresh(now)
}

// RecordFailure releases the reserved position size and routes the error
// through the trip logic.
func (b *Breaker) RecordFailure(marketID string, sizeUSD float64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked(marketID, sizeUSD)
	b.handleErrorLocked(err)
}

// Release removes booked size for a market, e.g. when its position is
// closed or settled.
func (b *Breaker) Release(marketID string, sizeUSD float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked(marketID, sizeUSD)
}

// ReleaseMarket removes all booked size for a market, e.g. when the
// market settles.
func (b *Breaker) ReleaseMarket(marketID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked(marketID, b.positions[marketID])
}

func (b *Breaker) releaseLocked(marketID string, sizeUSD float64) {
	current := b.positions[marketID]
	if sizeUSD >= current {
		delete(b.positions, marketID)
		b.totalPositionUSD -= current
	} else {
		b.positions[marketID] = current - sizeUSD
		b.totalPositionUSD -= sizeUSD
	}
	if b.totalPositionUSD < 0 {
		b.totalPositionUSD = 0
	}
	OpenPositionsUSD.Set(b.totalPositionUSD)
}

// HandleError counts an execution error and trips the breaker once the
// consecutive-error threshold is reached.
func (b *Breaker) HandleError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handleErrorLocked(err)
}

func (b *Breaker) handleErrorLocked(err error) {
	now := b.now()
	b.refresh(now)

	b.errorCount++
	b.consecutiveErrors++
	b.daily.TradesFailed++
	ExecutionErrorsTotal.Inc()

	b.logger.Warn("execution-error-recorded",
		zap.Error(err),
		zap.Int("consecutive-errors", b.consecutiveErrors),
		zap.Int("error-count", b.errorCount))

	if b.state == StateHalfOpen {
		// Probation failed.
		b.trip(now, fmt.Sprintf("error during probation: %v", err), false)
		return
	}

	if b.state != StateOpen && b.consecutiveErrors >= b.cfg.MaxConsecutiveErrors {
		b.trip(now, fmt.Sprintf("%d consecutive execution errors", b.consecutiveErrors), false)
	}
}

// ManualTrip halts trading on operator request.
func (b *Breaker) ManualTrip(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trip(b.now(), reason, true)
}

// ManualReset forces the breaker back to CLOSED and clears error state.
func (b *Breaker) ManualReset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.errorCount = 0
	b.consecutiveErrors = 0
	b.trippedAt = time.Time{}
	b.tripReason = ""
	BreakerState.Set(stateGauge(StateClosed))

	b.logger.Warn("circuit-breaker-manual-reset")
}

// UpdateConfig applies a partial limit update. It takes effect on the
// next validation call.
func (b *Breaker) UpdateConfig(patch ConfigPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	updated := b.cfg
	if patch.MaxPositionPerMarketUSD != nil {
		updated.MaxPositionPerMarketUSD = *patch.MaxPositionPerMarketUSD
	}
	if patch.MaxTotalPositionUSD != nil {
		updated.MaxTotalPositionUSD = *patch.MaxTotalPositionUSD
	}
	if patch.MaxDailyLossUSD != nil {
		updated.MaxDailyLossUSD = *patch.MaxDailyLossUSD
	}
	if patch.MaxLossPerTradeUSD != nil {
		updated.MaxLossPerTradeUSD = *patch.MaxLossPerTradeUSD
	}
	if patch.MaxConsecutiveErrors != nil {
		updated.MaxConsecutiveErrors = *patch.MaxConsecutiveErrors
	}
	if patch.ErrorCooldown != nil {
		updated.ErrorCooldown = *patch.ErrorCooldown
	}
	if patch.GasBufferCents != nil {
		updated.GasBufferCents = *patch.GasBufferCents
	}
	if patch.LiquidityFactor != nil {
		updated.LiquidityFactor = *patch.LiquidityFactor
	}

	if err := updated.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	b.cfg = updated
	b.logger.Info("circuit-breaker-config-updated",
		zap.Float64("max-daily-loss-usd", updated.MaxDailyLossUSD),
		zap.Float64("max-total-position-usd", updated.MaxTotalPositionUSD))

	return nil
}

// GetStatus returns the operator-facing summary.
func (b *Breaker) GetStatus() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(b.now())
	return b.statusLocked()
}

func (b *Breaker) statusLocked() Status {
	remaining := b.cfg.MaxDailyLossUSD + b.daily.RealizedPnLUSD
	if remaining < 0 {
		remaining = 0
	}
	if remaining > b.cfg.MaxDailyLossUSD {
		remaining = b.cfg.MaxDailyLossUSD
	}

	return Status{
		State:                  b.state,
		CanTrade:               b.state != StateOpen,
		ErrorCount:             b.errorCount,
		ConsecutiveErrors:      b.consecutiveErrors,
		DailyPnLUSD:            b.daily.RealizedPnLUSD,
		RemainingLossBudgetUSD: remaining,
		OpenPositionCount:      len(b.positions),
		TotalPositionUSD:       b.totalPositionUSD,
		TripReason:             b.tripReason,
		TrippedAt:              b.trippedAt,
	}
}

// GetDiagnostics returns the full config and state dump.
func (b *Breaker) GetDiagnostics() Diagnostics {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(b.now())

	positions := make(map[string]float64, len(b.positions))
	for market, size := range b.positions {
		positions[market] = size
	}

	return Diagnostics{
		Config:    b.cfg,
		Status:    b.statusLocked(),
		Daily:     b.daily,
		Positions: positions,
	}
}

// refresh applies the lazy transitions: daily metrics rollover,
// OPEN -> HALF_OPEN after the cooldown, HALF_OPEN -> CLOSED once error
// state and daily P&L allow. Must be called with the lock held.
func (b *Breaker) refresh(now time.Time) {
	date := now.Format(dailyMetricsDateLayout)
	if date != b.daily.Date {
		b.logger.Info("daily-metrics-rollover",
			zap.String("previous-date", b.daily.Date),
			zap.Float64("previous-pnl-usd", b.daily.RealizedPnLUSD),
			zap.Int("previous-trades", b.daily.TradesExecuted))
		b.daily = DailyMetrics{Date: date}
		DailyPnLUSD.Set(0)
	}

	if b.state == StateOpen && now.Sub(b.trippedAt) > b.cfg.ErrorCooldown {
		b.state = StateHalfOpen
		// Halve instead of reset: risk appetite ramps back gradually.
		b.errorCount /= 2
		BreakerState.Set(stateGauge(StateHalfOpen))

		b.logger.Info("circuit-breaker-half-open",
			zap.Duration("cooldown", b.cfg.ErrorCooldown),
			zap.Int("error-count", b.errorCount))
	}

	if b.state == StateHalfOpen &&
		b.errorCount == 0 &&
		b.consecutiveErrors < b.cfg.MaxConsecutiveErrors &&
		b.daily.RealizedPnLUSD > -b.cfg.MaxDailyLossUSD {
		b.state = StateClosed
		BreakerState.Set(stateGauge(StateClosed))

		b.logger.Info("circuit-breaker-closed",
			zap.Float64("daily-pnl-usd", b.daily.RealizedPnLUSD))
	}
}

// trip moves the breaker to OPEN. Must be called with the lock held.
func (b *Breaker) trip(now time.Time, reason string, manual bool) {
	b.state = StateOpen
	b.trippedAt = now
	b.tripReason = reason
	BreakerState.Set(stateGauge(StateOpen))
	BreakerTripsTotal.Inc()

	if manual {
		b.logger.Warn("circuit-breaker-manual-trip", zap.String("reason", reason))
		return
	}

	b.logger.Error("circuit-breaker-tripped", zap.String("reason", reason))
}

func stateGauge(s State) float64 {
	switch s {
	case StateClosed:
		return 0
	case StateHalfOpen:
		return 1
	default:
		return 2
	}
}
