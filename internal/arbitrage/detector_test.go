package arbitrage

import (
	"math"
	"testing"

	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap/zaptest"
)

func newTestDetector(t *testing.T, feeCents int) *Detector {
	t.Helper()

	d, err := New(Config{
		FeeCents:        feeCents,
		MinTradeSizeUSD: 10,
		MaxTradeSizeUSD: 10000,
		Logger:          zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	return d
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid",
			cfg:     Config{FeeCents: 2, MinTradeSizeUSD: 10, MaxTradeSizeUSD: 100, Logger: logger},
			wantErr: false,
		},
		{
			name:    "nil_logger",
			cfg:     Config{FeeCents: 2, MinTradeSizeUSD: 10, MaxTradeSizeUSD: 100},
			wantErr: true,
		},
		{
			name:    "negative_fee",
			cfg:     Config{FeeCents: -1, MinTradeSizeUSD: 10, MaxTradeSizeUSD: 100, Logger: logger},
			wantErr: true,
		},
		{
			name:    "zero_min_size",
			cfg:     Config{FeeCents: 2, MinTradeSizeUSD: 0, MaxTradeSizeUSD: 100, Logger: logger},
			wantErr: true,
		},
		{
			name:    "max_below_min",
			cfg:     Config{FeeCents: 2, MinTradeSizeUSD: 100, MaxTradeSizeUSD: 10, Logger: logger},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestDetectSingleMarket(t *testing.T) {
	tests := []struct {
		name      string
		yesCents  int
		noCents   int
		feeCents  int
		liquidity float64
		wantNil   bool
		wantNet   float64
	}{
		{
			name:      "boundary_exactly_100_is_no_opportunity",
			yesCents:  52,
			noCents:   45,
			feeCents:  3,
			liquidity: 5000,
			wantNil:   true,
		},
		{
			name:      "one_cent_under_boundary",
			yesCents:  52,
			noCents:   44,
			feeCents:  3,
			liquidity: 5000,
			wantNil:   false,
			wantNet:   0.01,
		},
		{
			name:      "wide_spread",
			yesCents:  45,
			noCents:   45,
			feeCents:  2,
			liquidity: 5000,
			wantNil:   false,
			wantNet:   0.08,
		},
		{
			name:      "efficient_market",
			yesCents:  52,
			noCents:   49,
			feeCents:  2,
			liquidity: 5000,
			wantNil:   true,
		},
		{
			name:      "zero_price_invalid",
			yesCents:  0,
			noCents:   44,
			feeCents:  2,
			liquidity: 5000,
			wantNil:   true,
		},
		{
			name:      "hundred_price_invalid",
			yesCents:  100,
			noCents:   44,
			feeCents:  0,
			liquidity: 5000,
			wantNil:   true,
		},
		{
			name:      "no_liquidity",
			yesCents:  45,
			noCents:   45,
			feeCents:  2,
			liquidity: 0,
			wantNil:   true,
		},
		{
			name:      "liquidity_below_min_trade_size",
			yesCents:  45,
			noCents:   45,
			feeCents:  2,
			liquidity: 5,
			wantNil:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, tt.feeCents)

			opp := d.DetectSingleMarket(&types.SingleMarket{
				ConditionID:   "0xabc",
				Question:      "Test?",
				YesPriceCents: tt.yesCents,
				NoPriceCents:  tt.noCents,
				LiquidityUSD:  tt.liquidity,
			})

			if tt.wantNil {
				if opp != nil {
					t.Fatalf("expected nil opportunity, got %v", opp)
				}
				return
			}

			if opp == nil {
				t.Fatal("expected opportunity, got nil")
			}
			if opp.Strategy != StrategySingleMarket {
				t.Errorf("strategy = %s, want %s", opp.Strategy, StrategySingleMarket)
			}
			if math.Abs(opp.NetProfitUSD-tt.wantNet) > 1e-9 {
				t.Errorf("NetProfitUSD = %f, want %f", opp.NetProfitUSD, tt.wantNet)
			}
			if opp.RiskScore != 1 {
				t.Errorf("RiskScore = %d, want 1", opp.RiskScore)
			}
			if opp.Confidence != 0.95 {
				t.Errorf("Confidence = %f, want 0.95", opp.Confidence)
			}
			if len(opp.Legs) != 2 {
				t.Errorf("legs = %d, want 2", len(opp.Legs))
			}
			assertProfitIdentity(t, opp)
		})
	}
}

func TestDetectCrossPlatform(t *testing.T) {
	t.Run("picks_cheaper_combination", func(t *testing.T) {
		d := newTestDetector(t, 2)

		// costA = polyYes + limitlessNo = 40 + 45 = 85
		// costB = limitlessYes + polyNo = 50 + 50 = 100
		opp := d.DetectCrossPlatform(&types.CrossPlatformPair{
			ConditionID:            "0xcross",
			PolymarketYesCents:     40,
			PolymarketNoCents:      50,
			LimitlessYesCents:      50,
			LimitlessNoCents:       45,
			PolymarketLiquidityUSD: 5000,
			LimitlessLiquidityUSD:  3000,
		})

		if opp == nil {
			t.Fatal("expected opportunity, got nil")
		}
		if opp.TotalCostCents != 85 {
			t.Errorf("TotalCostCents = %d, want 85", opp.TotalCostCents)
		}
		if opp.Direction != "polymarket_yes_limitless_no" {
			t.Errorf("Direction = %s", opp.Direction)
		}
		if opp.Legs[0].Platform != "polymarket" || opp.Legs[0].Outcome != "YES" {
			t.Errorf("leg 0 = %+v", opp.Legs[0])
		}
		if opp.Legs[1].Platform != "limitless" || opp.Legs[1].Outcome != "NO" {
			t.Errorf("leg 1 = %+v", opp.Legs[1])
		}
		// Smaller venue caps the size.
		if opp.LiquidityUSD != 3000 {
			t.Errorf("LiquidityUSD = %f, want 3000", opp.LiquidityUSD)
		}
		if opp.RiskScore != 3 {
			t.Errorf("RiskScore = %d, want 3", opp.RiskScore)
		}
		assertProfitIdentity(t, opp)
	})

	t.Run("reverse_combination_wins", func(t *testing.T) {
		d := newTestDetector(t, 2)

		// costA = 55 + 50 = 105, costB = 40 + 45 = 85
		opp := d.DetectCrossPlatform(&types.CrossPlatformPair{
			ConditionID:            "0xcross",
			PolymarketYesCents:     55,
			PolymarketNoCents:      45,
			LimitlessYesCents:      40,
			LimitlessNoCents:       50,
			PolymarketLiquidityUSD: 5000,
			LimitlessLiquidityUSD:  3000,
		})

		if opp == nil {
			t.Fatal("expected opportunity, got nil")
		}
		if opp.Direction != "limitless_yes_polymarket_no" {
			t.Errorf("Direction = %s", opp.Direction)
		}
		if opp.Legs[0].Platform != "limitless" || opp.Legs[0].Outcome != "YES" {
			t.Errorf("leg 0 = %+v", opp.Legs[0])
		}
	})

	t.Run("both_combinations_unprofitable", func(t *testing.T) {
		d := newTestDetector(t, 2)

		opp := d.DetectCrossPlatform(&types.CrossPlatformPair{
			ConditionID:            "0xcross",
			PolymarketYesCents:     52,
			PolymarketNoCents:      49,
			LimitlessYesCents:      51,
			LimitlessNoCents:       50,
			PolymarketLiquidityUSD: 5000,
			LimitlessLiquidityUSD:  3000,
		})

		if opp != nil {
			t.Fatalf("expected nil, got %v", opp)
		}
	})
}

func TestDetectMultiOutcome(t *testing.T) {
	outcomes := func(prices ...int) []types.OutcomePrice {
		out := make([]types.OutcomePrice, len(prices))
		for i, p := range prices {
			out[i] = types.OutcomePrice{
				TokenID:       "tok",
				Name:          "Outcome",
				YesPriceCents: p,
				LiquidityUSD:  2000,
			}
		}
		return out
	}

	t.Run("two_outcomes_is_structural_failure", func(t *testing.T) {
		d := newTestDetector(t, 2)

		opp := d.DetectMultiOutcome(&types.MultiOutcomeMarket{
			ConditionID: "0xmulti",
			Outcomes:    outcomes(45, 45),
		})
		if opp != nil {
			t.Fatalf("expected nil for binary market, got %v", opp)
		}
	})

	t.Run("four_outcome_basket", func(t *testing.T) {
		d := newTestDetector(t, 2)

		opp := d.DetectMultiOutcome(&types.MultiOutcomeMarket{
			ConditionID: "0xmulti",
			Outcomes:    outcomes(20, 25, 22, 25),
		})

		if opp == nil {
			t.Fatal("expected opportunity, got nil")
		}
		if opp.TotalCostCents != 92 {
			t.Errorf("TotalCostCents = %d, want 92", opp.TotalCostCents)
		}
		// risk = ceil(4/2)+1 = 3 for n=4
		if opp.RiskScore != 3 {
			t.Errorf("RiskScore = %d, want 3", opp.RiskScore)
		}
		// confidence = 1 - 4*0.05 = 0.8
		if math.Abs(opp.Confidence-0.8) > 1e-9 {
			t.Errorf("Confidence = %f, want 0.8", opp.Confidence)
		}
		if len(opp.Legs) != 4 {
			t.Errorf("legs = %d, want 4", len(opp.Legs))
		}
		assertProfitIdentity(t, opp)
	})

	t.Run("basket_cost_at_boundary", func(t *testing.T) {
		d := newTestDetector(t, 2)

		opp := d.DetectMultiOutcome(&types.MultiOutcomeMarket{
			ConditionID: "0xmulti",
			Outcomes:    outcomes(33, 33, 32),
		})
		if opp != nil {
			t.Fatalf("expected nil at cost 98 + 2 fees, got %v", opp)
		}
	})

	t.Run("invalid_outcome_price", func(t *testing.T) {
		d := newTestDetector(t, 2)

		opp := d.DetectMultiOutcome(&types.MultiOutcomeMarket{
			ConditionID: "0xmulti",
			Outcomes:    outcomes(30, 0, 30),
		})
		if opp != nil {
			t.Fatalf("expected nil for zero price, got %v", opp)
		}
	})
}

func TestMultiOutcomeRiskCap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want int
	}{
		{3, 3},
		{4, 3},
		{5, 4},
		{10, 6},
		{20, 10},
		{30, 10}, // capped
	}

	for _, tt := range tests {
		got := multiOutcomeRisk(tt.n)
		if got != tt.want {
			t.Errorf("multiOutcomeRisk(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}

	if multiOutcomeConfidence(25) != 0 {
		t.Error("confidence should floor at 0 for very wide baskets")
	}
}

func TestDetectThreeWay(t *testing.T) {
	t.Run("home_hedge_wins", func(t *testing.T) {
		d := newTestDetector(t, 2)

		// costA = homeYes + awayNo + draw = 30 + 35 + 25 = 90
		// costB = awayYes + homeNo + draw = 40 + 45 + 25 = 110
		opp := d.DetectThreeWay(&types.ThreeWayMarket{
			ConditionID:  "0x3way",
			HomeTeam:     types.TeamQuote{YesPriceCents: 30, NoPriceCents: 45},
			AwayTeam:     types.TeamQuote{YesPriceCents: 40, NoPriceCents: 35},
			DrawYesCents: 25,
			LiquidityUSD: 4000,
		})

		if opp == nil {
			t.Fatal("expected opportunity, got nil")
		}
		if opp.TotalCostCents != 90 {
			t.Errorf("TotalCostCents = %d, want 90", opp.TotalCostCents)
		}
		if opp.Direction != "home_yes_away_no_draw" {
			t.Errorf("Direction = %s", opp.Direction)
		}
		if len(opp.Legs) != 3 {
			t.Fatalf("legs = %d, want 3", len(opp.Legs))
		}
		if opp.RiskScore != 5 {
			t.Errorf("RiskScore = %d, want 5", opp.RiskScore)
		}
		// Three legs triple the minimum size.
		if opp.MinTradeSizeUSD != 30 {
			t.Errorf("MinTradeSizeUSD = %f, want 30", opp.MinTradeSizeUSD)
		}
		assertProfitIdentity(t, opp)
	})

	t.Run("away_hedge_wins", func(t *testing.T) {
		d := newTestDetector(t, 2)

		opp := d.DetectThreeWay(&types.ThreeWayMarket{
			ConditionID:  "0x3way",
			HomeTeam:     types.TeamQuote{YesPriceCents: 45, NoPriceCents: 30},
			AwayTeam:     types.TeamQuote{YesPriceCents: 35, NoPriceCents: 40},
			DrawYesCents: 20,
			LiquidityUSD: 4000,
		})

		if opp == nil {
			t.Fatal("expected opportunity, got nil")
		}
		if opp.Direction != "away_yes_home_no_draw" {
			t.Errorf("Direction = %s", opp.Direction)
		}
		if opp.TotalCostCents != 85 {
			t.Errorf("TotalCostCents = %d, want 85", opp.TotalCostCents)
		}
	})

	t.Run("liquidity_below_tripled_minimum", func(t *testing.T) {
		d := newTestDetector(t, 2)

		opp := d.DetectThreeWay(&types.ThreeWayMarket{
			ConditionID:  "0x3way",
			HomeTeam:     types.TeamQuote{YesPriceCents: 30, NoPriceCents: 45},
			AwayTeam:     types.TeamQuote{YesPriceCents: 40, NoPriceCents: 35},
			DrawYesCents: 25,
			LiquidityUSD: 20, // below 3 * MinTradeSizeUSD
		})
		if opp != nil {
			t.Fatalf("expected nil, got %v", opp)
		}
	})
}

func TestDetect_Dispatch(t *testing.T) {
	d := newTestDetector(t, 2)

	tests := []struct {
		name     string
		snap     *types.MarketSnapshot
		strategy Strategy
	}{
		{
			name: "single",
			snap: &types.MarketSnapshot{
				Shape:  types.ShapeSingleMarket,
				Single: &types.SingleMarket{ConditionID: "a", YesPriceCents: 45, NoPriceCents: 45, LiquidityUSD: 5000},
			},
			strategy: StrategySingleMarket,
		},
		{
			name: "cross",
			snap: &types.MarketSnapshot{
				Shape: types.ShapeCrossPlatform,
				Cross: &types.CrossPlatformPair{
					ConditionID: "b", PolymarketYesCents: 40, PolymarketNoCents: 55,
					LimitlessYesCents: 55, LimitlessNoCents: 45,
					PolymarketLiquidityUSD: 5000, LimitlessLiquidityUSD: 5000,
				},
			},
			strategy: StrategyCrossPlatform,
		},
		{
			name: "three_way",
			snap: &types.MarketSnapshot{
				Shape: types.ShapeThreeWay,
				ThreeWay: &types.ThreeWayMarket{
					ConditionID:  "c",
					HomeTeam:     types.TeamQuote{YesPriceCents: 30, NoPriceCents: 45},
					AwayTeam:     types.TeamQuote{YesPriceCents: 40, NoPriceCents: 35},
					DrawYesCents: 25, LiquidityUSD: 4000,
				},
			},
			strategy: StrategyThreeWay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := d.Detect(tt.snap)
			if opp == nil {
				t.Fatal("expected opportunity, got nil")
			}
			if opp.Strategy != tt.strategy {
				t.Errorf("strategy = %s, want %s", opp.Strategy, tt.strategy)
			}
		})
	}

	t.Run("unknown_shape", func(t *testing.T) {
		opp := d.Detect(&types.MarketSnapshot{Shape: "mystery"})
		if opp != nil {
			t.Fatalf("expected nil for unknown shape, got %v", opp)
		}
	})
}

// assertProfitIdentity checks the core pricing invariant: the net profit
// per contract set is what remains after cost and fees out of the 100c
// settlement, and gross profit never understates net.
func assertProfitIdentity(t *testing.T, opp *Opportunity) {
	t.Helper()

	wantNet := float64(100-opp.TotalCostCents-opp.FeesCents) / 100
	if math.Abs(opp.NetProfitUSD-wantNet) > 1e-9 {
		t.Errorf("NetProfitUSD = %f, want %f", opp.NetProfitUSD, wantNet)
	}

	wantGross := float64(100-opp.TotalCostCents) / 100
	if math.Abs(opp.GrossProfitUSD-wantGross) > 1e-9 {
		t.Errorf("GrossProfitUSD = %f, want %f", opp.GrossProfitUSD, wantGross)
	}

	if opp.NetProfitUSD <= 0 {
		t.Error("detected opportunity must have positive net profit")
	}
	if opp.GrossProfitUSD < opp.NetProfitUSD {
		t.Error("gross profit cannot be below net profit")
	}
}
