package arbitrage

import "math"

// Confidence factor weights. They sum to 1 so the clamped score stays a
// weighted average.
const (
	weightProfit    = 0.35
	weightLiquidity = 0.25
	weightRisk      = 0.25
	weightSlippage  = 0.15
)

// CalculateConfidence scores an opportunity in [0, 1] as a bounded
// weighted sum of profit magnitude, log-liquidity, inverse risk score and
// inverse slippage.
//
// This is a ranking heuristic, not a calibrated probability: a score of
// 0.8 does not mean an 80% chance of a clean fill, only that the
// opportunity ranks above one scoring 0.6.
func CalculateConfidence(netProfitUSD, liquidityUSD float64, riskScore int, slippage float64) float64 {
	// $0.10 per contract set saturates the profit factor.
	profitFactor := clamp01(netProfitUSD * 10)

	// Log scale: $100k of depth saturates the liquidity factor.
	liquidityFactor := 0.0
	if liquidityUSD > 1 {
		liquidityFactor = clamp01(math.Log10(liquidityUSD) / 5)
	}

	// Risk score runs 1..10; 1 maps to 1.0, 10 maps to 0.
	riskFactor := clamp01(float64(10-riskScore) / 9)

	// 10% estimated slippage zeroes the slippage factor.
	slippageFactor := clamp01(1 - slippage*10)

	return clamp01(weightProfit*profitFactor +
		weightLiquidity*liquidityFactor +
		weightRisk*riskFactor +
		weightSlippage*slippageFactor)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
