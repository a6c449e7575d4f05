package arbitrage

import (
	"math"
	"testing"
)

func TestCalculateConfidence_Bounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		netProfit float64
		liquidity float64
		risk      int
		slippage  float64
	}{
		{"best_case", 1.0, 1e6, 1, 0},
		{"worst_case", 0, 0, 10, 1},
		{"typical", 0.05, 5000, 3, 0.02},
		{"negative_profit_clamped", -0.5, 5000, 3, 0.02},
		{"huge_slippage_clamped", 0.05, 5000, 3, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CalculateConfidence(tt.netProfit, tt.liquidity, tt.risk, tt.slippage)
			if c < 0 || c > 1 {
				t.Errorf("confidence %f out of [0, 1]", c)
			}
		})
	}
}

func TestCalculateConfidence_Saturation(t *testing.T) {
	t.Parallel()

	// Saturated on every factor: profit >= $0.10, liquidity >= $100k,
	// risk 1, zero slippage.
	c := CalculateConfidence(0.10, 100000, 1, 0)
	if math.Abs(c-1.0) > 1e-9 {
		t.Errorf("saturated confidence = %f, want 1.0", c)
	}

	// All factors zeroed.
	c = CalculateConfidence(0, 1, 10, 0.1)
	if c != 0 {
		t.Errorf("zeroed confidence = %f, want 0", c)
	}
}

func TestCalculateConfidence_Ordering(t *testing.T) {
	t.Parallel()

	base := CalculateConfidence(0.03, 5000, 3, 0.02)

	moreProfit := CalculateConfidence(0.06, 5000, 3, 0.02)
	if moreProfit <= base {
		t.Errorf("more profit should raise confidence: %f <= %f", moreProfit, base)
	}

	moreRisk := CalculateConfidence(0.03, 5000, 8, 0.02)
	if moreRisk >= base {
		t.Errorf("more risk should lower confidence: %f >= %f", moreRisk, base)
	}

	moreLiquidity := CalculateConfidence(0.03, 50000, 3, 0.02)
	if moreLiquidity <= base {
		t.Errorf("more liquidity should raise confidence: %f <= %f", moreLiquidity, base)
	}

	moreSlippage := CalculateConfidence(0.03, 5000, 3, 0.08)
	if moreSlippage >= base {
		t.Errorf("more slippage should lower confidence: %f >= %f", moreSlippage, base)
	}
}
