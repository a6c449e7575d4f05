package positions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PairStatus is the lifecycle of an executed arbitrage pair.
type PairStatus string

const (
	PairStatusOpen    PairStatus = "open"
	PairStatusSettled PairStatus = "settled"
	PairStatusClosed  PairStatus = "closed"
	PairStatusFailed  PairStatus = "failed"
)

// Pair links the two legs of one executed arbitrage. It stores no
// combined value or P&L of its own: those are derived from the legs at
// read time so the pair can never drift out of sync with them.
type Pair struct {
	ID             string
	Strategy       string
	Leg1ID         string
	Leg2ID         string
	Status         PairStatus
	EntryCostUSD   float64
	RealizedPnLUSD float64 // locked in when the pair leaves the open state
	OpenedAt       time.Time
	SettledAt      *time.Time
}

// PairSnapshot is a pair plus its combined metrics computed from the
// legs at the moment of the read.
type PairSnapshot struct {
	Pair
	CurrentValueUSD float64
	NetPnLUSD       float64
}

// CreateArbitragePair opens both legs and links them as one pair.
func (t *Tracker) CreateArbitragePair(strategy string, leg1, leg2 OpenParams) (PairSnapshot, error) {
	for _, params := range []OpenParams{leg1, leg2} {
		if params.Quantity <= 0 {
			return PairSnapshot{}, fmt.Errorf("quantity must be positive")
		}
		if params.EntryPriceCents <= 0 || params.EntryPriceCents >= 100 {
			return PairSnapshot{}, fmt.Errorf("entry price %d out of range (0, 100)", params.EntryPriceCents)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pos1 := t.openLocked(leg1)
	pos2 := t.openLocked(leg2)

	pair := &Pair{
		ID:           uuid.New().String(),
		Strategy:     strategy,
		Leg1ID:       pos1.ID,
		Leg2ID:       pos2.ID,
		Status:       PairStatusOpen,
		EntryCostUSD: pos1.CostBasisUSD + pos2.CostBasisUSD,
		OpenedAt:     t.now(),
	}
	pos1.PairID = pair.ID
	pos2.PairID = pair.ID

	t.pairs[pair.ID] = pair
	PairsOpenedTotal.Inc()

	t.logger.Info("arbitrage-pair-opened",
		zap.String("pair-id", pair.ID),
		zap.String("strategy", strategy),
		zap.Float64("entry-cost-usd", pair.EntryCostUSD))

	return t.pairSnapshotLocked(pair), nil
}

// UpdateArbitragePair applies fresh prices to both legs.
func (t *Tracker) UpdateArbitragePair(id string, leg1PriceCents, leg2PriceCents int) (PairSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pair, ok := t.pairs[id]
	if !ok {
		return PairSnapshot{}, fmt.Errorf("pair %s not found", id)
	}

	for legID, price := range map[string]int{pair.Leg1ID: leg1PriceCents, pair.Leg2ID: leg2PriceCents} {
		pos, ok := t.positions[legID]
		if !ok || pos.SettledAt != nil {
			continue
		}
		pos.CurrentPriceCents = price
		pos.revalue()
	}

	return t.pairSnapshotLocked(pair), nil
}

// GetPair returns a pair with its combined metrics derived from the legs.
func (t *Tracker) GetPair(id string) (PairSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pair, ok := t.pairs[id]
	if !ok {
		return PairSnapshot{}, false
	}
	return t.pairSnapshotLocked(pair), true
}

// Pairs returns snapshots of all pairs, open and historical.
func (t *Tracker) Pairs() []PairSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := make([]PairSnapshot, 0, len(t.pairs))
	for _, pair := range t.pairs {
		list = append(list, t.pairSnapshotLocked(pair))
	}
	return list
}

// FailPair marks a pair whose execution did not complete. Its remaining
// legs are closed out at their current prices.
func (t *Tracker) FailPair(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pair, ok := t.pairs[id]
	if !ok {
		return fmt.Errorf("pair %s not found", id)
	}
	if pair.Status != PairStatusOpen {
		return fmt.Errorf("pair %s is %s, not open", id, pair.Status)
	}

	snapshot := t.pairSnapshotLocked(pair)
	pair.Status = PairStatusFailed
	pair.RealizedPnLUSD = snapshot.NetPnLUSD
	PairsFailedTotal.Inc()

	t.logger.Warn("arbitrage-pair-failed",
		zap.String("pair-id", id),
		zap.Float64("realized-pnl-usd", pair.RealizedPnLUSD))

	return nil
}

// pairSnapshotLocked derives the combined metrics from the legs. Legs
// already moved to closed history contribute their realized values.
func (t *Tracker) pairSnapshotLocked(pair *Pair) PairSnapshot {
	if pair.Status != PairStatusOpen {
		return PairSnapshot{
			Pair:            *pair,
			CurrentValueUSD: pair.EntryCostUSD + pair.RealizedPnLUSD,
			NetPnLUSD:       pair.RealizedPnLUSD,
		}
	}

	value := 0.0
	pnl := 0.0
	for _, legID := range []string{pair.Leg1ID, pair.Leg2ID} {
		if pos, ok := t.positions[legID]; ok {
			value += pos.CurrentValueUSD
			pnl += pos.UnrealizedPnLUSD
			continue
		}
		for i := range t.closed {
			if t.closed[i].Position.ID == legID {
				value += t.closed[i].Position.CurrentValueUSD
				pnl += t.closed[i].RealizedPnLUSD
				break
			}
		}
	}

	return PairSnapshot{Pair: *pair, CurrentValueUSD: value, NetPnLUSD: pnl}
}

// pairReferencesMarket reports whether either leg trades the market.
func (t *Tracker) pairReferencesMarket(pair *Pair, marketID string) bool {
	for _, legID := range []string{pair.Leg1ID, pair.Leg2ID} {
		if pos, ok := t.positions[legID]; ok && pos.MarketID == marketID {
			return true
		}
	}
	return false
}

// pairFullySettled reports whether every leg still active has settled.
func (t *Tracker) pairFullySettled(pair *Pair) bool {
	for _, legID := range []string{pair.Leg1ID, pair.Leg2ID} {
		if pos, ok := t.positions[legID]; ok && pos.SettledAt == nil {
			return false
		}
	}
	return true
}

// settlePairLocked locks in the pair's payout.
func (t *Tracker) settlePairLocked(pair *Pair, settledAt time.Time) {
	snapshot := t.pairSnapshotLocked(pair)
	pair.Status = PairStatusSettled
	pair.RealizedPnLUSD = snapshot.NetPnLUSD
	ts := settledAt
	pair.SettledAt = &ts
	PairsSettledTotal.Inc()

	t.logger.Info("arbitrage-pair-settled",
		zap.String("pair-id", pair.ID),
		zap.Float64("realized-pnl-usd", pair.RealizedPnLUSD))
}
