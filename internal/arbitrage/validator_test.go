package arbitrage

import (
	"testing"
	"time"

	"github.com/jmlago/prediction-arb/internal/testutil"
	"github.com/jmlago/prediction-arb/pkg/cache"
	"go.uber.org/zap/zaptest"
)

func newTestPriceCache(t *testing.T) *cache.PriceCache {
	t.Helper()

	prices, err := cache.NewPriceCache(&cache.PriceCacheConfig{
		NumCounters: 1000,
		MaxItems:    100,
		TTL:         time.Minute,
		Logger:      zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("new price cache: %v", err)
	}
	t.Cleanup(prices.Close)

	return prices
}

func freshOpportunity(detectedAt time.Time) *Opportunity {
	return &Opportunity{
		ID:       "test-opp",
		Strategy: StrategySingleMarket,
		MarketID: "0xabc",
		Legs: []Leg{
			{Platform: "polymarket", MarketID: "0xabc", Outcome: "YES", PriceCents: 45},
			{Platform: "polymarket", MarketID: "0xabc", Outcome: "NO", PriceCents: 48},
		},
		TotalCostCents:   93,
		FeesCents:        2,
		NetProfitUSD:     0.05,
		LiquidityUSD:     5000,
		SlippageEstimate: 0.01,
		RiskScore:        1,
		DetectedAt:       detectedAt,
		Status:           StatusActive,
	}
}

func TestValidate_Staleness(t *testing.T) {
	now := time.Now()

	v, err := NewValidator(ValidatorConfig{
		MaxStale: time.Second,
		Logger:   zaptest.NewLogger(t),
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	t.Run("fresh_accepted", func(t *testing.T) {
		result := v.Validate(freshOpportunity(now.Add(-500 * time.Millisecond)))
		if !result.Valid {
			t.Fatalf("expected valid, got rejection: %s (%s)", result.Reason, result.Detail)
		}
		if result.Confidence <= 0 {
			t.Error("accepted opportunity should carry a recomputed confidence")
		}
	})

	t.Run("stale_rejected", func(t *testing.T) {
		result := v.Validate(freshOpportunity(now.Add(-2 * time.Second)))
		if result.Valid {
			t.Fatal("expected rejection for stale opportunity")
		}
		if result.Reason != RejectStale {
			t.Errorf("reason = %s, want %s", result.Reason, RejectStale)
		}
	})

	t.Run("exactly_at_max_stale_accepted", func(t *testing.T) {
		result := v.Validate(freshOpportunity(now.Add(-time.Second)))
		if !result.Valid {
			t.Errorf("age == max stale should pass, got %s", result.Reason)
		}
	})
}

func TestValidate_PriceDrift(t *testing.T) {
	now := time.Now()
	prices := newTestPriceCache(t)

	v, err := NewValidator(ValidatorConfig{
		Prices:   prices,
		MaxStale: time.Minute,
		Logger:   zaptest.NewLogger(t),
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	record := func(outcome string, cents int) {
		tick := testutil.Tick("0xabc", "polymarket", outcome, cents)
		prices.Record(tick)
		prices.Wait()
	}

	t.Run("unknown_current_price_accepted", func(t *testing.T) {
		result := v.Validate(freshOpportunity(now))
		if !result.Valid {
			t.Fatalf("unknown current prices must not reject: %s", result.Reason)
		}
	})

	t.Run("within_one_percent_accepted", func(t *testing.T) {
		record("YES", 45)
		record("NO", 48)

		result := v.Validate(freshOpportunity(now))
		if !result.Valid {
			t.Fatalf("unchanged prices must pass: %s (%s)", result.Reason, result.Detail)
		}
	})

	t.Run("drifted_leg_rejected", func(t *testing.T) {
		// 45 -> 47 is a 4.4% move, past the 1% gate.
		record("YES", 47)

		result := v.Validate(freshOpportunity(now))
		if result.Valid {
			t.Fatal("expected rejection for drifted leg")
		}
		if result.Reason != RejectPriceDrift {
			t.Errorf("reason = %s, want %s", result.Reason, RejectPriceDrift)
		}

		// Restore for later subtests.
		record("YES", 45)
	})
}

func TestNewValidator_Defaults(t *testing.T) {
	t.Parallel()

	v, err := NewValidator(ValidatorConfig{Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	if v.maxStale != DefaultMaxStale {
		t.Errorf("maxStale = %v, want %v", v.maxStale, DefaultMaxStale)
	}

	_, err = NewValidator(ValidatorConfig{})
	if err == nil {
		t.Error("expected error for nil logger")
	}
}
