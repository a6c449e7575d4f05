package arbitrage

import (
	"fmt"
	"math"
	"time"

	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

const (
	// threeWayLegMultiplier scales the minimum trade size for three-way
	// hedges: the extra leg and settlement ambiguity make small trades
	// not worth the fill risk.
	threeWayLegMultiplier = 3

	riskSingleMarket  = 1
	riskCrossPlatform = 3
	riskThreeWay      = 5

	confidenceSingleMarket = 0.95
)

// Detector runs the no-arbitrage boundary checks over market snapshots.
// All detectors are total functions: a failed profit test or structural
// precondition returns nil, never an error.
type Detector struct {
	config Config
	logger *zap.Logger
}

// Config holds detector configuration.
type Config struct {
	FeeCents        int
	MinTradeSizeUSD float64
	MaxTradeSizeUSD float64
	Logger          *zap.Logger
}

// New creates a new detector.
func New(cfg Config) (*Detector, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.FeeCents < 0 {
		return nil, fmt.Errorf("fee cents cannot be negative")
	}
	if cfg.MinTradeSizeUSD <= 0 {
		return nil, fmt.Errorf("min trade size must be positive")
	}
	if cfg.MaxTradeSizeUSD < cfg.MinTradeSizeUSD {
		return nil, fmt.Errorf("max trade size must be >= min trade size")
	}

	return &Detector{config: cfg, logger: cfg.Logger}, nil
}

// Detect dispatches a snapshot to the detector matching its shape.
func (d *Detector) Detect(snap *types.MarketSnapshot) *Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	switch snap.Shape {
	case types.ShapeSingleMarket:
		return d.DetectSingleMarket(snap.Single)
	case types.ShapeCrossPlatform:
		return d.DetectCrossPlatform(snap.Cross)
	case types.ShapeMultiOutcome:
		return d.DetectMultiOutcome(snap.Multi)
	case types.ShapeThreeWay:
		return d.DetectThreeWay(snap.ThreeWay)
	default:
		d.logger.Warn("unknown-market-shape", zap.String("shape", string(snap.Shape)))
		return nil
	}
}

// DetectSingleMarket checks a binary market for a two-sided hedge:
// buying YES and NO together costs less than the guaranteed 100c payout.
func (d *Detector) DetectSingleMarket(m *types.SingleMarket) *Opportunity {
	if m == nil {
		return nil
	}
	if !validCents(m.YesPriceCents) || !validCents(m.NoPriceCents) {
		OpportunitiesRejectedTotal.WithLabelValues("invalid_price").Inc()
		return nil
	}

	totalCost := m.YesPriceCents + m.NoPriceCents
	if totalCost+d.config.FeeCents >= 100 {
		OpportunitiesRejectedTotal.WithLabelValues("not_profitable").Inc()
		return nil
	}

	minSize, maxSize, ok := d.sizeBounds(m.LiquidityUSD, 1)
	if !ok {
		return nil
	}

	legs := []Leg{
		{Platform: "polymarket", MarketID: m.ConditionID, Outcome: "YES", PriceCents: m.YesPriceCents},
		{Platform: "polymarket", MarketID: m.ConditionID, Outcome: "NO", PriceCents: m.NoPriceCents},
	}

	opp := newOpportunity(StrategySingleMarket, m.ConditionID, m.Question, legs, totalCost, d.config.FeeCents)
	opp.Direction = "yes_no_hedge"
	opp.Action = "buy_both_sides"
	opp.MinTradeSizeUSD = minSize
	opp.MaxTradeSizeUSD = maxSize
	opp.LiquidityUSD = m.LiquidityUSD
	opp.SlippageEstimate = estimateSlippage(maxSize, m.LiquidityUSD)
	opp.RiskScore = riskSingleMarket
	opp.Confidence = confidenceSingleMarket

	d.record(opp)
	return opp
}

// DetectCrossPlatform checks both directional combinations across two
// venues and keeps whichever clears the 100c boundary with more profit.
func (d *Detector) DetectCrossPlatform(p *types.CrossPlatformPair) *Opportunity {
	if p == nil {
		return nil
	}
	if !validCents(p.PolymarketYesCents) || !validCents(p.PolymarketNoCents) ||
		!validCents(p.LimitlessYesCents) || !validCents(p.LimitlessNoCents) {
		OpportunitiesRejectedTotal.WithLabelValues("invalid_price").Inc()
		return nil
	}

	costA := p.PolymarketYesCents + p.LimitlessNoCents // poly YES + limitless NO
	costB := p.LimitlessYesCents + p.PolymarketNoCents // limitless YES + poly NO

	// Lower cost means larger profit; take the better of the two
	// combinations that clears the boundary.
	cost := costA
	direction := "polymarket_yes_limitless_no"
	legs := []Leg{
		{Platform: "polymarket", MarketID: p.ConditionID, Outcome: "YES", PriceCents: p.PolymarketYesCents},
		{Platform: "limitless", MarketID: p.ConditionID, Outcome: "NO", PriceCents: p.LimitlessNoCents},
	}
	if costB < costA {
		cost = costB
		direction = "limitless_yes_polymarket_no"
		legs = []Leg{
			{Platform: "limitless", MarketID: p.ConditionID, Outcome: "YES", PriceCents: p.LimitlessYesCents},
			{Platform: "polymarket", MarketID: p.ConditionID, Outcome: "NO", PriceCents: p.PolymarketNoCents},
		}
	}

	if cost+d.config.FeeCents >= 100 {
		OpportunitiesRejectedTotal.WithLabelValues("not_profitable").Inc()
		return nil
	}

	// The smaller venue bounds the executable size on both.
	liquidity := math.Min(p.PolymarketLiquidityUSD, p.LimitlessLiquidityUSD)

	minSize, maxSize, ok := d.sizeBounds(liquidity, 1)
	if !ok {
		return nil
	}

	opp := newOpportunity(StrategyCrossPlatform, p.ConditionID, p.Question, legs, cost, d.config.FeeCents)
	opp.Direction = direction
	opp.Action = "buy_cross_platform"
	opp.MinTradeSizeUSD = minSize
	opp.MaxTradeSizeUSD = maxSize
	opp.LiquidityUSD = liquidity
	opp.SlippageEstimate = estimateSlippage(maxSize, liquidity)
	opp.RiskScore = riskCrossPlatform
	opp.Confidence = CalculateConfidence(opp.NetProfitUSD, liquidity, opp.RiskScore, opp.SlippageEstimate)

	d.record(opp)
	return opp
}

// DetectMultiOutcome checks a market with N mutually-exclusive outcomes:
// buying every YES costs less than the single guaranteed 100c payout.
// Fewer than three outcomes is a structural precondition failure, not a
// zero-profit case.
func (d *Detector) DetectMultiOutcome(m *types.MultiOutcomeMarket) *Opportunity {
	if m == nil {
		return nil
	}
	if len(m.Outcomes) < 3 {
		OpportunitiesRejectedTotal.WithLabelValues("too_few_outcomes").Inc()
		return nil
	}

	totalCost := 0
	minLiquidity := math.MaxFloat64
	legs := make([]Leg, 0, len(m.Outcomes))
	for _, outcome := range m.Outcomes {
		if !validCents(outcome.YesPriceCents) {
			OpportunitiesRejectedTotal.WithLabelValues("invalid_price").Inc()
			return nil
		}
		totalCost += outcome.YesPriceCents
		if outcome.LiquidityUSD < minLiquidity {
			minLiquidity = outcome.LiquidityUSD
		}
		legs = append(legs, Leg{
			Platform:   "polymarket",
			MarketID:   m.ConditionID,
			TokenID:    outcome.TokenID,
			Outcome:    outcome.Name,
			PriceCents: outcome.YesPriceCents,
		})
	}

	if totalCost+d.config.FeeCents >= 100 {
		OpportunitiesRejectedTotal.WithLabelValues("not_profitable").Inc()
		return nil
	}

	minSize, maxSize, ok := d.sizeBounds(minLiquidity, 1)
	if !ok {
		return nil
	}

	n := len(m.Outcomes)

	opp := newOpportunity(StrategyMultiOutcome, m.ConditionID, m.Question, legs, totalCost, d.config.FeeCents)
	opp.Direction = "all_outcomes"
	opp.Action = "buy_all_outcomes"
	opp.MinTradeSizeUSD = minSize
	opp.MaxTradeSizeUSD = maxSize
	opp.LiquidityUSD = minLiquidity
	opp.SlippageEstimate = estimateSlippage(maxSize, minLiquidity)
	// Execution needs N simultaneous fills, so risk grows and confidence
	// shrinks with the outcome count.
	opp.RiskScore = multiOutcomeRisk(n)
	opp.Confidence = multiOutcomeConfidence(n)

	d.record(opp)
	return opp
}

// DetectThreeWay checks a home/away/draw market. Two hedge options cover
// all three results; the cheaper one wins.
func (d *Detector) DetectThreeWay(m *types.ThreeWayMarket) *Opportunity {
	if m == nil {
		return nil
	}
	if !validCents(m.HomeTeam.YesPriceCents) || !validCents(m.HomeTeam.NoPriceCents) ||
		!validCents(m.AwayTeam.YesPriceCents) || !validCents(m.AwayTeam.NoPriceCents) ||
		!validCents(m.DrawYesCents) {
		OpportunitiesRejectedTotal.WithLabelValues("invalid_price").Inc()
		return nil
	}

	costA := m.HomeTeam.YesPriceCents + m.AwayTeam.NoPriceCents + m.DrawYesCents
	costB := m.AwayTeam.YesPriceCents + m.HomeTeam.NoPriceCents + m.DrawYesCents

	cost := costA
	direction := "home_yes_away_no_draw"
	legs := []Leg{
		{Platform: "polymarket", MarketID: m.ConditionID, Outcome: "HOME", PriceCents: m.HomeTeam.YesPriceCents},
		{Platform: "polymarket", MarketID: m.ConditionID, Outcome: "AWAY_NO", PriceCents: m.AwayTeam.NoPriceCents},
		{Platform: "polymarket", MarketID: m.ConditionID, Outcome: "DRAW", PriceCents: m.DrawYesCents},
	}
	if costB < costA {
		cost = costB
		direction = "away_yes_home_no_draw"
		legs = []Leg{
			{Platform: "polymarket", MarketID: m.ConditionID, Outcome: "AWAY", PriceCents: m.AwayTeam.YesPriceCents},
			{Platform: "polymarket", MarketID: m.ConditionID, Outcome: "HOME_NO", PriceCents: m.HomeTeam.NoPriceCents},
			{Platform: "polymarket", MarketID: m.ConditionID, Outcome: "DRAW", PriceCents: m.DrawYesCents},
		}
	}

	if cost+d.config.FeeCents >= 100 {
		OpportunitiesRejectedTotal.WithLabelValues("not_profitable").Inc()
		return nil
	}

	minSize, maxSize, ok := d.sizeBounds(m.LiquidityUSD, threeWayLegMultiplier)
	if !ok {
		return nil
	}

	opp := newOpportunity(StrategyThreeWay, m.ConditionID, m.Question, legs, cost, d.config.FeeCents)
	opp.Direction = direction
	opp.Action = "buy_three_legs"
	opp.MinTradeSizeUSD = minSize
	opp.MaxTradeSizeUSD = maxSize
	opp.LiquidityUSD = m.LiquidityUSD
	opp.SlippageEstimate = estimateSlippage(maxSize, m.LiquidityUSD)
	opp.RiskScore = riskThreeWay
	opp.Confidence = CalculateConfidence(opp.NetProfitUSD, m.LiquidityUSD, opp.RiskScore, opp.SlippageEstimate)

	d.record(opp)
	return opp
}

// sizeBounds derives the executable trade size window from available
// liquidity. Returns ok=false when the window collapses below the
// configured minimum.
func (d *Detector) sizeBounds(liquidityUSD float64, minMultiplier int) (minSize, maxSize float64, ok bool) {
	if liquidityUSD <= 0 {
		OpportunitiesRejectedTotal.WithLabelValues("no_liquidity").Inc()
		return 0, 0, false
	}

	minSize = d.config.MinTradeSizeUSD * float64(minMultiplier)
	maxSize = math.Min(liquidityUSD, d.config.MaxTradeSizeUSD)

	if maxSize < minSize {
		OpportunitiesRejectedTotal.WithLabelValues("below_min_size").Inc()
		return 0, 0, false
	}

	return minSize, maxSize, true
}

func (d *Detector) record(opp *Opportunity) {
	OpportunitiesDetectedTotal.WithLabelValues(string(opp.Strategy)).Inc()
	NetProfitUSD.Observe(opp.NetProfitUSD)
	OpportunitySizeUSD.Observe(opp.MaxTradeSizeUSD)

	d.logger.Info("arbitrage-opportunity-detected",
		zap.String("opportunity-id", opp.ID),
		zap.String("strategy", string(opp.Strategy)),
		zap.String("market-id", opp.MarketID),
		zap.Int("total-cost-cents", opp.TotalCostCents),
		zap.Float64("net-profit-usd", opp.NetProfitUSD),
		zap.Float64("confidence", opp.Confidence),
		zap.Int("risk-score", opp.RiskScore))
}

// multiOutcomeRisk is min(10, ceil(n/2)+1): each extra outcome is one
// more simultaneous fill that can miss.
func multiOutcomeRisk(n int) int {
	risk := (n+1)/2 + 1
	if risk > 10 {
		risk = 10
	}
	return risk
}

// multiOutcomeConfidence is max(0, 1 - n*0.05).
func multiOutcomeConfidence(n int) float64 {
	c := 1 - float64(n)*0.05
	if c < 0 {
		return 0
	}
	return c
}

// estimateSlippage is a coarse depth heuristic: filling half the visible
// liquidity costs about one tick of slippage. Not calibrated against
// real order books.
func estimateSlippage(sizeUSD, liquidityUSD float64) float64 {
	if liquidityUSD <= 0 {
		return 1
	}
	s := sizeUSD / (2 * liquidityUSD)
	if s > 1 {
		return 1
	}
	return s
}

func validCents(price int) bool {
	return price > 0 && price < 100
}
