package positions

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// settlementDiscrepancyToleranceUSD is the reconciliation alarm level:
// settlements whose payout gap exceeds one cent are surfaced by
// CheckSettlementDiscrepancies.
const settlementDiscrepancyToleranceUSD = 0.01

// Position is one leg of a trade: a quantity of outcome contracts on one
// platform. Value and unrealized P&L are recomputed on every price tick;
// UnrealizedPnLUSD always equals CurrentValueUSD - CostBasisUSD.
type Position struct {
	ID                string
	MarketID          string
	Platform          string
	Outcome           string
	Quantity          float64
	EntryPriceCents   int
	CurrentPriceCents int
	CostBasisUSD      float64
	CurrentValueUSD   float64
	UnrealizedPnLUSD  float64
	UnrealizedPnLPct  float64
	MaxLossUSD        float64
	MaxGainUSD        float64
	PairID            string
	OpenedAt          time.Time
	SettledAt         *time.Time
}

// ClosedPosition is the realized history entry for a closed leg.
type ClosedPosition struct {
	Position       Position
	ExitPriceCents int
	ExitCostsUSD   float64
	RealizedPnLUSD float64
	ClosedAt       time.Time
}

// OpenParams describes one leg to open.
type OpenParams struct {
	MarketID        string
	Platform        string
	Outcome         string
	Quantity        float64
	EntryPriceCents int
	FeesUSD         float64
	GasUSD          float64
}

// Tracker maintains the active positions and arbitrage pairs for one
// trading session and reconciles settlements against them. One instance
// per session; all state is behind a single mutex, so settlement
// recording and concurrent price updates on the same market serialize.
type Tracker struct {
	mu          sync.Mutex
	logger      *zap.Logger
	now         func() time.Time
	positions   map[string]*Position
	pairs       map[string]*Pair
	closed      []ClosedPosition
	fills       []types.FillRecord
	settlements []types.SettlementRecord
}

// TrackerConfig holds tracker configuration.
type TrackerConfig struct {
	Logger *zap.Logger
	Clock  func() time.Time // override for tests; nil means time.Now
}

// NewTracker creates an empty position tracker.
func NewTracker(cfg *TrackerConfig) (*Tracker, error) {
	if cfg == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		logger:    cfg.Logger,
		now:       now,
		positions: make(map[string]*Position),
		pairs:     make(map[string]*Pair),
	}, nil
}

// OpenPosition opens one leg. Cost basis includes entry fees and gas;
// the worst case is losing the whole basis, the best case is the full
// 100c settlement minus the basis.
func (t *Tracker) OpenPosition(params OpenParams) (Position, error) {
	if params.Quantity <= 0 {
		return Position{}, fmt.Errorf("quantity must be positive")
	}
	if params.EntryPriceCents <= 0 || params.EntryPriceCents >= 100 {
		return Position{}, fmt.Errorf("entry price %d out of range (0, 100)", params.EntryPriceCents)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pos := t.openLocked(params)
	return *pos, nil
}

func (t *Tracker) openLocked(params OpenParams) *Position {
	entryValue := params.Quantity * float64(params.EntryPriceCents) / 100
	costBasis := entryValue + params.FeesUSD + params.GasUSD

	pos := &Position{
		ID:                uuid.New().String(),
		MarketID:          params.MarketID,
		Platform:          params.Platform,
		Outcome:           params.Outcome,
		Quantity:          params.Quantity,
		EntryPriceCents:   params.EntryPriceCents,
		CurrentPriceCents: params.EntryPriceCents,
		CostBasisUSD:      costBasis,
		MaxLossUSD:        costBasis,
		MaxGainUSD:        params.Quantity - costBasis,
		OpenedAt:          t.now(),
	}
	pos.revalue()

	t.positions[pos.ID] = pos
	PositionsOpenedTotal.Inc()
	ActivePositions.Set(float64(len(t.positions)))

	t.logger.Info("position-opened",
		zap.String("position-id", pos.ID),
		zap.String("market-id", pos.MarketID),
		zap.String("outcome", pos.Outcome),
		zap.Float64("quantity", pos.Quantity),
		zap.Int("entry-cents", pos.EntryPriceCents),
		zap.Float64("cost-basis-usd", pos.CostBasisUSD))

	return pos
}

// revalue recomputes the derived fields from the current price. O(1) and
// idempotent; safe to call on every tick.
func (p *Position) revalue() {
	p.CurrentValueUSD = p.Quantity * float64(p.CurrentPriceCents) / 100
	p.UnrealizedPnLUSD = p.CurrentValueUSD - p.CostBasisUSD
	if p.CostBasisUSD != 0 {
		p.UnrealizedPnLPct = p.UnrealizedPnLUSD / p.CostBasisUSD * 100
	}
}

// UpdatePositionPrice applies a price tick to one leg.
func (t *Tracker) UpdatePositionPrice(id string, priceCents int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	if !ok {
		return fmt.Errorf("position %s not found", id)
	}
	if pos.SettledAt != nil {
		// Settlement is final; late ticks must not move the price.
		return nil
	}

	pos.CurrentPriceCents = priceCents
	pos.revalue()

	return nil
}

// ClosePosition finalizes a leg against an exit price. Exit fee and gas
// are summed into the exit costs. Removes the leg from the active set;
// its P&L becomes realized history.
func (t *Tracker) ClosePosition(id string, exitPriceCents int, exitFeeUSD, exitGasUSD float64) (ClosedPosition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	if !ok {
		return ClosedPosition{}, fmt.Errorf("position %s not found", id)
	}

	exitCosts := exitFeeUSD + exitGasUSD
	exitValue := pos.Quantity * float64(exitPriceCents) / 100

	pos.CurrentPriceCents = exitPriceCents
	pos.revalue()

	record := ClosedPosition{
		Position:       *pos,
		ExitPriceCents: exitPriceCents,
		ExitCostsUSD:   exitCosts,
		RealizedPnLUSD: exitValue - pos.CostBasisUSD - exitCosts,
		ClosedAt:       t.now(),
	}

	delete(t.positions, id)
	t.closed = append(t.closed, record)
	PositionsClosedTotal.Inc()
	ActivePositions.Set(float64(len(t.positions)))

	t.logger.Info("position-closed",
		zap.String("position-id", id),
		zap.Int("exit-cents", exitPriceCents),
		zap.Float64("realized-pnl-usd", record.RealizedPnLUSD))

	return record, nil
}

// GetPosition returns a copy of an active position.
func (t *Tracker) GetPosition(id string) (Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// ActivePositionList returns copies of all active positions.
func (t *Tracker) ActivePositionList() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := make([]Position, 0, len(t.positions))
	for _, pos := range t.positions {
		list = append(list, *pos)
	}
	return list
}

// RecordFill appends one leg fill to the append-only history.
func (t *Tracker) RecordFill(fill types.FillRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.fills = append(t.fills, fill)
	FillsRecordedTotal.Inc()
}

// Fills returns a copy of the fill history.
func (t *Tracker) Fills() []types.FillRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	fills := make([]types.FillRecord, len(t.fills))
	copy(fills, t.fills)
	return fills
}

// RecordSettlement snaps every position on the settled market to exactly
// 0 or 100 cents, locks in any pair referencing the market, and records
// the settlement. A payout discrepancy is recorded, never corrected.
func (t *Tracker) RecordSettlement(rec types.SettlementRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, pos := range t.positions {
		if pos.MarketID != rec.MarketID || pos.SettledAt != nil {
			continue
		}

		if outcomeWins(pos.Outcome, rec.WinningOutcome) {
			pos.CurrentPriceCents = 100
		} else {
			pos.CurrentPriceCents = 0
		}
		settledAt := rec.SettledAt
		pos.SettledAt = &settledAt
		pos.revalue()
	}

	for _, pair := range t.pairs {
		if pair.Status != PairStatusOpen {
			continue
		}
		if !t.pairReferencesMarket(pair, rec.MarketID) {
			continue
		}
		if !t.pairFullySettled(pair) {
			continue
		}

		t.settlePairLocked(pair, rec.SettledAt)
	}

	t.settlements = append(t.settlements, rec)
	SettlementsRecordedTotal.Inc()

	discrepancy := rec.DiscrepancyUSD()
	if discrepancy > settlementDiscrepancyToleranceUSD || discrepancy < -settlementDiscrepancyToleranceUSD {
		SettlementDiscrepanciesTotal.Inc()
		t.logger.Warn("settlement-discrepancy-recorded",
			zap.String("market-id", rec.MarketID),
			zap.Float64("expected-usd", rec.ExpectedPayoutUSD),
			zap.Float64("actual-usd", rec.ActualPayoutUSD),
			zap.Float64("discrepancy-usd", discrepancy))
	}

	t.logger.Info("settlement-recorded",
		zap.String("market-id", rec.MarketID),
		zap.String("winning-outcome", rec.WinningOutcome))
}

// CheckSettlementDiscrepancies returns every settlement whose payout gap
// exceeds one cent. This is a reconciliation alarm for the caller to act
// on asynchronously.
func (t *Tracker) CheckSettlementDiscrepancies() []types.SettlementRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var flagged []types.SettlementRecord
	for _, rec := range t.settlements {
		d := rec.DiscrepancyUSD()
		if d > settlementDiscrepancyToleranceUSD || d < -settlementDiscrepancyToleranceUSD {
			flagged = append(flagged, rec)
		}
	}
	return flagged
}

// outcomeWins decides whether a leg pays out for the settled outcome.
// A leg named "X_NO" is short outcome X and wins when X did not settle;
// plain legs win on an exact (case-insensitive) match.
func outcomeWins(legOutcome, winningOutcome string) bool {
	leg := strings.ToUpper(legOutcome)
	winner := strings.ToUpper(winningOutcome)

	if base, isShort := strings.CutSuffix(leg, "_NO"); isShort {
		return base != winner
	}
	return leg == winner
}
