package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Strategy identifies which detector produced an opportunity.
type Strategy string

const (
	StrategySingleMarket  Strategy = "single_market"
	StrategyCrossPlatform Strategy = "cross_platform"
	StrategyMultiOutcome  Strategy = "multi_outcome"
	StrategyThreeWay      Strategy = "three_way"
)

// Status is the opportunity lifecycle: active -> executing -> expired|closed.
type Status string

const (
	StatusActive    Status = "active"
	StatusExecuting Status = "executing"
	StatusExpired   Status = "expired"
	StatusClosed    Status = "closed"
)

// Leg is one side of a multi-part trade: an outcome to buy on a venue.
type Leg struct {
	Platform   string
	MarketID   string
	TokenID    string
	Outcome    string
	PriceCents int
}

// PriceUSD returns the leg price in fractional dollars.
func (l Leg) PriceUSD() float64 {
	return float64(l.PriceCents) / 100
}

// Opportunity is a detected cross-market mispricing. All fields except
// Status are fixed at detection time.
//
// Profit invariant: NetProfitUSD == (100 - TotalCostCents - FeesCents)/100,
// per contract set, and an opportunity is never produced when
// TotalCostCents + FeesCents >= 100.
type Opportunity struct {
	ID               string
	Strategy         Strategy
	MarketID         string
	Question         string
	Legs             []Leg
	Direction        string
	Action           string
	TotalCostCents   int
	FeesCents        int
	GrossProfitUSD   float64
	NetProfitUSD     float64
	MinTradeSizeUSD  float64
	MaxTradeSizeUSD  float64
	LiquidityUSD     float64
	SlippageEstimate float64
	Confidence       float64
	RiskScore        int
	DetectedAt       time.Time
	Status           Status
}

// newOpportunity fills in the profit fields derived from cost and fees.
// Callers must have already checked totalCostCents+feesCents < 100.
func newOpportunity(strategy Strategy, marketID, question string, legs []Leg, totalCostCents, feesCents int) *Opportunity {
	return &Opportunity{
		ID:             uuid.New().String(),
		Strategy:       strategy,
		MarketID:       marketID,
		Question:       question,
		Legs:           legs,
		TotalCostCents: totalCostCents,
		FeesCents:      feesCents,
		GrossProfitUSD: float64(100-totalCostCents) / 100,
		NetProfitUSD:   float64(100-totalCostCents-feesCents) / 100,
		DetectedAt:     time.Now(),
		Status:         StatusActive,
	}
}

// String returns a compact human-readable summary.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] strategy=%s market=%s cost=%dc fees=%dc net=$%.2f conf=%.2f risk=%d legs=%d",
		shortID(o.ID),
		o.Strategy,
		o.MarketID,
		o.TotalCostCents,
		o.FeesCents,
		o.NetProfitUSD,
		o.Confidence,
		o.RiskScore,
		len(o.Legs),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
