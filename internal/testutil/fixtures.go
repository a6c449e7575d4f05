// Package testutil holds shared fixtures and mocks for package tests.
package testutil

import (
	"time"

	"github.com/jmlago/prediction-arb/pkg/types"
)

// SingleMarketSnapshot builds a binary market snapshot with the given
// YES/NO prices.
func SingleMarketSnapshot(conditionID string, yesCents, noCents int, liquidityUSD float64) *types.MarketSnapshot {
	return &types.MarketSnapshot{
		Shape: types.ShapeSingleMarket,
		Single: &types.SingleMarket{
			ConditionID:   conditionID,
			Question:      "Test market " + conditionID,
			YesPriceCents: yesCents,
			NoPriceCents:  noCents,
			LiquidityUSD:  liquidityUSD,
		},
		UpdatedAt: time.Now(),
	}
}

// CrossPlatformSnapshot builds a cross-platform snapshot quoting the
// same question on both venues.
func CrossPlatformSnapshot(conditionID string, polyYes, polyNo, limitlessYes, limitlessNo int) *types.MarketSnapshot {
	return &types.MarketSnapshot{
		Shape: types.ShapeCrossPlatform,
		Cross: &types.CrossPlatformPair{
			ConditionID:            conditionID,
			Question:               "Test market " + conditionID,
			PolymarketYesCents:     polyYes,
			PolymarketNoCents:      polyNo,
			LimitlessYesCents:      limitlessYes,
			LimitlessNoCents:       limitlessNo,
			PolymarketLiquidityUSD: 5000,
			LimitlessLiquidityUSD:  3000,
		},
		UpdatedAt: time.Now(),
	}
}

// MultiOutcomeSnapshot builds a multi-outcome snapshot with one outcome
// per given price.
func MultiOutcomeSnapshot(conditionID string, yesCents ...int) *types.MarketSnapshot {
	outcomes := make([]types.OutcomePrice, len(yesCents))
	for i, cents := range yesCents {
		outcomes[i] = types.OutcomePrice{
			TokenID:       conditionID + "-" + string(rune('a'+i)),
			Name:          "Outcome " + string(rune('A'+i)),
			YesPriceCents: cents,
			LiquidityUSD:  2000,
		}
	}

	return &types.MarketSnapshot{
		Shape: types.ShapeMultiOutcome,
		Multi: &types.MultiOutcomeMarket{
			ConditionID: conditionID,
			Question:    "Test market " + conditionID,
			Category:    "politics",
			Outcomes:    outcomes,
		},
		UpdatedAt: time.Now(),
	}
}

// ThreeWaySnapshot builds a home/away/draw sports snapshot.
func ThreeWaySnapshot(conditionID string, home, homeNo, away, awayNo, draw int) *types.MarketSnapshot {
	return &types.MarketSnapshot{
		Shape: types.ShapeThreeWay,
		ThreeWay: &types.ThreeWayMarket{
			ConditionID:  conditionID,
			Question:     "Test match " + conditionID,
			HomeTeam:     types.TeamQuote{YesPriceCents: home, NoPriceCents: homeNo},
			AwayTeam:     types.TeamQuote{YesPriceCents: away, NoPriceCents: awayNo},
			DrawYesCents: draw,
			LiquidityUSD: 4000,
		},
		UpdatedAt: time.Now(),
	}
}

// Tick builds a price tick for one market leg.
func Tick(conditionID, platform, outcome string, priceCents int) *types.PriceTick {
	return &types.PriceTick{
		ConditionID:  conditionID,
		TokenID:      conditionID + "-" + outcome,
		Platform:     platform,
		Outcome:      outcome,
		PriceCents:   priceCents,
		LiquidityUSD: 5000,
		Timestamp:    time.Now().Unix(),
	}
}
