package types

import "time"

// TradeResult reports the outcome of one executed arbitrage to the
// circuit breaker.
type TradeResult struct {
	OpportunityID string
	MarketID      string
	SizeUSD       float64
	PnLUSD        float64
	GasUSD        float64
	Success       bool
	ExecutedAt    time.Time
}

// FillRecord is one leg fill, append-only history.
type FillRecord struct {
	ID         string
	OrderID    string
	MarketID   string
	Platform   string
	Outcome    string
	Side       string // "BUY" or "SELL"
	PriceCents int
	Size       float64
	FeeUSD     float64
	FilledAt   time.Time
}

// SettlementRecord finalizes a market: every position on it snaps to
// 0 or 100 cents. DiscrepancyUSD captures any gap between expected
// and actual payout; it is recorded, never silently corrected.
type SettlementRecord struct {
	ID                string
	MarketID          string
	WinningOutcome    string
	ExpectedPayoutUSD float64
	ActualPayoutUSD   float64
	SettledAt         time.Time
}

// DiscrepancyUSD returns actual minus expected payout.
func (s SettlementRecord) DiscrepancyUSD() float64 {
	return s.ActualPayoutUSD - s.ExpectedPayoutUSD
}
