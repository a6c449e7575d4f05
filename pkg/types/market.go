package types

import "time"

// All prices are integer cents in [0, 100]. A prediction-market contract
// settles at exactly 0 or 100 cents, so a set of legs whose combined cost
// (plus fees) is below 100 cents is a guaranteed profit at settlement.

// MarketShape identifies which detector a market snapshot feeds.
type MarketShape string

const (
	ShapeSingleMarket  MarketShape = "single_market"
	ShapeCrossPlatform MarketShape = "cross_platform"
	ShapeMultiOutcome  MarketShape = "multi_outcome"
	ShapeThreeWay      MarketShape = "three_way"
)

// SingleMarket is a binary YES/NO market on one venue.
type SingleMarket struct {
	ConditionID   string  `json:"condition_id"`
	Question      string  `json:"question"`
	YesPriceCents int     `json:"yes_price"`
	NoPriceCents  int     `json:"no_price"`
	LiquidityUSD  float64 `json:"liquidity"`
}

// CrossPlatformPair is the same binary question quoted on two venues.
type CrossPlatformPair struct {
	ConditionID            string  `json:"condition_id"`
	Question               string  `json:"question"`
	PolymarketYesCents     int     `json:"polymarket_yes_price"`
	PolymarketNoCents      int     `json:"polymarket_no_price"`
	LimitlessYesCents      int     `json:"limitless_yes_price"`
	LimitlessNoCents       int     `json:"limitless_no_price"`
	PolymarketLiquidityUSD float64 `json:"polymarket_liquidity"`
	LimitlessLiquidityUSD  float64 `json:"limitless_liquidity"`
}

// OutcomePrice is one leg of a multi-outcome market.
type OutcomePrice struct {
	TokenID       string  `json:"token_id"`
	Name          string  `json:"name"`
	YesPriceCents int     `json:"yes_price"`
	LiquidityUSD  float64 `json:"liquidity"`
}

// MultiOutcomeMarket is a market with N mutually-exclusive outcomes.
// Detection requires at least three outcomes; binary markets go through
// SingleMarket instead.
type MultiOutcomeMarket struct {
	ConditionID string         `json:"condition_id"`
	Question    string         `json:"question"`
	Category    string         `json:"category"`
	Outcomes    []OutcomePrice `json:"outcomes"`
}

// MarketSnapshot is a tagged union over the four market shapes. Exactly
// one of the shape pointers is non-nil, matching Shape.
type MarketSnapshot struct {
	Shape     MarketShape         `json:"shape"`
	Single    *SingleMarket       `json:"single,omitempty"`
	Cross     *CrossPlatformPair  `json:"cross,omitempty"`
	Multi     *MultiOutcomeMarket `json:"multi,omitempty"`
	ThreeWay  *ThreeWayMarket     `json:"three_way,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ConditionID returns the condition ID of whichever shape is populated.
func (s *MarketSnapshot) ConditionID() string {
	switch s.Shape {
	case ShapeSingleMarket:
		if s.Single != nil {
			return s.Single.ConditionID
		}
	case ShapeCrossPlatform:
		if s.Cross != nil {
			return s.Cross.ConditionID
		}
	case ShapeMultiOutcome:
		if s.Multi != nil {
			return s.Multi.ConditionID
		}
	case ShapeThreeWay:
		if s.ThreeWay != nil {
			return s.ThreeWay.ConditionID
		}
	}
	return ""
}

// TeamQuote holds both sides of a team's binary market.
type TeamQuote struct {
	YesPriceCents int `json:"yes_price"`
	NoPriceCents  int `json:"no_price"`
}

// ThreeWayMarket is a home/away/draw sports market.
type ThreeWayMarket struct {
	ConditionID  string    `json:"condition_id"`
	Question     string    `json:"question"`
	HomeTeam     TeamQuote `json:"home_team"`
	AwayTeam     TeamQuote `json:"away_team"`
	DrawYesCents int       `json:"draw_yes_price"`
	LiquidityUSD float64   `json:"liquidity"`
}
