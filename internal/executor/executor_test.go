package executor

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/jmlago/prediction-arb/internal/arbitrage"
	"github.com/jmlago/prediction-arb/internal/circuitbreaker"
	"github.com/jmlago/prediction-arb/internal/positions"
	"github.com/jmlago/prediction-arb/pkg/cache"
	"github.com/jmlago/prediction-arb/pkg/types"
)

// memStorage records persisted artifacts for assertions.
type memStorage struct {
	mu          sync.Mutex
	fills       []types.FillRecord
	settlements []types.SettlementRecord
}

func (s *memStorage) StoreFill(_ context.Context, fill types.FillRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills = append(s.fills, fill)
	return nil
}

func (s *memStorage) StoreSettlement(_ context.Context, rec types.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements = append(s.settlements, rec)
	return nil
}

type testHarness struct {
	exec    *Executor
	breaker *circuitbreaker.Breaker
	tracker *positions.Tracker
	storage *memStorage
	now     time.Time
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	logger := zaptest.NewLogger(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.Logger = logger
	breaker, err := circuitbreaker.New(&breakerCfg)
	if err != nil {
		t.Fatalf("circuitbreaker.New() error = %v", err)
	}

	tracker, err := positions.NewTracker(&positions.TrackerConfig{Logger: logger})
	if err != nil {
		t.Fatalf("positions.NewTracker() error = %v", err)
	}

	prices, err := cache.NewPriceCache(&cache.PriceCacheConfig{
		NumCounters: 10000,
		MaxItems:    1000,
		TTL:         time.Minute,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("cache.NewPriceCache() error = %v", err)
	}
	t.Cleanup(prices.Close)

	validator, err := arbitrage.NewValidator(arbitrage.ValidatorConfig{
		Prices: prices,
		Logger: logger,
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("arbitrage.NewValidator() error = %v", err)
	}

	storage := &memStorage{}
	exec, err := New(&Config{
		Logger:          logger,
		Breaker:         breaker,
		Tracker:         tracker,
		Validator:       validator,
		Storage:         storage,
		LiquidityFactor: 0.5,
		GasBufferCents:  3,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testHarness{
		exec:    exec,
		breaker: breaker,
		tracker: tracker,
		storage: storage,
		now:     now,
	}
}

func assertUSD(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %f, want %f", name, got, want)
	}
}

// pairOpportunity is a fresh single-market arb: YES 45c + NO 48c with 2c
// fees leaves 5c per contract set.
func (h *testHarness) pairOpportunity() *arbitrage.Opportunity {
	return &arbitrage.Opportunity{
		ID:       "3f6f1f0a-0000-0000-0000-000000000000",
		Strategy: arbitrage.StrategySingleMarket,
		MarketID: "0xcondition",
		Legs: []arbitrage.Leg{
			{Platform: "polymarket", MarketID: "0xcondition", Outcome: "YES", PriceCents: 45},
			{Platform: "polymarket", MarketID: "0xcondition", Outcome: "NO", PriceCents: 48},
		},
		TotalCostCents:   93,
		FeesCents:        2,
		GrossProfitUSD:   0.07,
		NetProfitUSD:     0.05,
		MinTradeSizeUSD:  10,
		MaxTradeSizeUSD:  1000,
		LiquidityUSD:     5000,
		SlippageEstimate: 0.002,
		Confidence:       0.9,
		RiskScore:        1,
		DetectedAt:       h.now,
		Status:           arbitrage.StatusActive,
	}
}

func TestNew_Validation(t *testing.T) {
	h := newTestHarness(t)
	logger := zaptest.NewLogger(t)

	base := Config{
		Logger:          logger,
		Breaker:         h.breaker,
		Tracker:         h.tracker,
		Validator:       h.exec.validator,
		LiquidityFactor: 0.5,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil-logger", func(c *Config) { c.Logger = nil }},
		{"nil-breaker", func(c *Config) { c.Breaker = nil }},
		{"nil-tracker", func(c *Config) { c.Tracker = nil }},
		{"nil-validator", func(c *Config) { c.Validator = nil }},
		{"zero-liquidity-factor", func(c *Config) { c.LiquidityFactor = 0 }},
		{"liquidity-factor-above-one", func(c *Config) { c.LiquidityFactor = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := New(&cfg); err == nil {
				t.Error("New() should reject invalid config")
			}
		})
	}
}

func TestHandleOpportunity_OpensPair(t *testing.T) {
	h := newTestHarness(t)

	opp := h.pairOpportunity()
	h.exec.handleOpportunity(opp)

	if opp.Status != arbitrage.StatusClosed {
		t.Fatalf("status = %s, want CLOSED", opp.Status)
	}

	// Half the max size at a 0.5 liquidity factor.
	sizeUSD := 500.0
	quantity := sizeUSD * 100 / 93

	pairs := h.tracker.Pairs()
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	if pairs[0].Strategy != "single_market" || pairs[0].Status != positions.PairStatusOpen {
		t.Errorf("pair = %s/%s, want single_market/OPEN", pairs[0].Strategy, pairs[0].Status)
	}

	legs := h.tracker.ActivePositionList()
	if len(legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(legs))
	}
	for _, leg := range legs {
		assertUSD(t, "leg quantity", leg.Quantity, quantity)
	}

	// One fill per leg, persisted and recorded.
	if len(h.storage.fills) != 2 {
		t.Fatalf("stored fills = %d, want 2", len(h.storage.fills))
	}
	if got := len(h.tracker.Fills()); got != 2 {
		t.Errorf("tracked fills = %d, want 2", got)
	}
	for _, fill := range h.storage.fills {
		if fill.Side != "BUY" {
			t.Errorf("fill side = %q, want BUY", fill.Side)
		}
		if !strings.Contains(fill.OrderID, "paper-3f6f1f0a") {
			t.Errorf("fill OrderID = %q, want paper-3f6f1f0a prefix", fill.OrderID)
		}
		assertUSD(t, "fill fee", fill.FeeUSD, quantity*0.02/2)
	}

	// The breaker booked the size and banked the expected profit.
	status := h.breaker.GetStatus()
	if status.OpenPositionCount != 1 {
		t.Errorf("open markets = %d, want 1", status.OpenPositionCount)
	}
	assertUSD(t, "TotalPositionUSD", status.TotalPositionUSD, sizeUSD)
	assertUSD(t, "DailyPnLUSD", status.DailyPnLUSD, quantity*0.05)
	if status.ConsecutiveErrors != 0 {
		t.Errorf("consecutive errors = %d, want 0", status.ConsecutiveErrors)
	}
}

func TestHandleOpportunity_BelowMinSizeSkipped(t *testing.T) {
	h := newTestHarness(t)

	opp := h.pairOpportunity()
	opp.MaxTradeSizeUSD = 10 // factored size 5 is under the 10 minimum

	h.exec.handleOpportunity(opp)

	if opp.Status != arbitrage.StatusActive {
		t.Errorf("status = %s, want ACTIVE", opp.Status)
	}
	if got := h.tracker.ActivePositionList(); len(got) != 0 {
		t.Errorf("active positions = %d, want 0", len(got))
	}
	if got := h.breaker.GetStatus().TotalPositionUSD; got != 0 {
		t.Errorf("total position = %f, want 0", got)
	}
}

func TestHandleOpportunity_StaleRejected(t *testing.T) {
	h := newTestHarness(t)

	opp := h.pairOpportunity()
	opp.DetectedAt = h.now.Add(-5 * time.Second)

	h.exec.handleOpportunity(opp)

	if opp.Status != arbitrage.StatusExpired {
		t.Errorf("status = %s, want EXPIRED", opp.Status)
	}
	if got := h.tracker.ActivePositionList(); len(got) != 0 {
		t.Errorf("active positions = %d, want 0", len(got))
	}
	if len(h.storage.fills) != 0 {
		t.Errorf("stored fills = %d, want 0", len(h.storage.fills))
	}
}

func TestHandleOpportunity_BreakerRejects(t *testing.T) {
	h := newTestHarness(t)
	h.breaker.ManualTrip("test halt")

	opp := h.pairOpportunity()
	h.exec.handleOpportunity(opp)

	if opp.Status != arbitrage.StatusExpired {
		t.Errorf("status = %s, want EXPIRED", opp.Status)
	}
	if got := h.tracker.ActivePositionList(); len(got) != 0 {
		t.Errorf("active positions = %d, want 0", len(got))
	}
}

func TestHandleOpportunity_BasketOpensLegs(t *testing.T) {
	h := newTestHarness(t)

	opp := h.pairOpportunity()
	opp.Strategy = arbitrage.StrategyThreeWay
	opp.Legs = []arbitrage.Leg{
		{Platform: "polymarket", MarketID: "0xcondition", Outcome: "HOME", PriceCents: 40},
		{Platform: "polymarket", MarketID: "0xcondition", Outcome: "AWAY_NO", PriceCents: 30},
		{Platform: "polymarket", MarketID: "0xcondition", Outcome: "DRAW", PriceCents: 23},
	}

	h.exec.handleOpportunity(opp)

	if opp.Status != arbitrage.StatusClosed {
		t.Fatalf("status = %s, want CLOSED", opp.Status)
	}
	// Wider baskets do not become pairs.
	if got := h.tracker.Pairs(); len(got) != 0 {
		t.Errorf("pairs = %d, want 0", len(got))
	}
	if got := h.tracker.ActivePositionList(); len(got) != 3 {
		t.Errorf("active positions = %d, want 3", len(got))
	}
	if len(h.storage.fills) != 3 {
		t.Errorf("stored fills = %d, want 3", len(h.storage.fills))
	}
}

func TestHandleSettlement(t *testing.T) {
	h := newTestHarness(t)

	opp := h.pairOpportunity()
	h.exec.handleOpportunity(opp)
	if opp.Status != arbitrage.StatusClosed {
		t.Fatalf("status = %s, want CLOSED", opp.Status)
	}

	quantity := 500.0 * 100 / 93
	settledAt := h.now.Add(time.Hour)

	h.exec.handleSettlement(&types.SettlementEvent{
		ConditionID:    "0xcondition",
		WinningOutcome: "YES",
		Timestamp:      settledAt.Unix(),
	})

	// Only the YES leg pays out.
	if len(h.storage.settlements) != 1 {
		t.Fatalf("settlements = %d, want 1", len(h.storage.settlements))
	}
	rec := h.storage.settlements[0]
	assertUSD(t, "ExpectedPayoutUSD", rec.ExpectedPayoutUSD, quantity)
	if rec.ActualPayoutUSD != rec.ExpectedPayoutUSD {
		t.Errorf("ActualPayoutUSD = %f, want %f", rec.ActualPayoutUSD, rec.ExpectedPayoutUSD)
	}
	if rec.SettledAt.Unix() != settledAt.Unix() {
		t.Errorf("SettledAt = %v, want %v", rec.SettledAt, settledAt)
	}

	// The pair settled and the breaker exposure is gone.
	pairs := h.tracker.Pairs()
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	if pairs[0].Status != positions.PairStatusSettled {
		t.Errorf("pair status = %s, want SETTLED", pairs[0].Status)
	}

	status := h.breaker.GetStatus()
	if status.OpenPositionCount != 0 || status.TotalPositionUSD != 0 {
		t.Errorf("breaker exposure not released: %+v", status)
	}

	// Paper settlements reconcile exactly.
	if got := h.tracker.CheckSettlementDiscrepancies(); len(got) != 0 {
		t.Errorf("discrepancies = %d, want 0", len(got))
	}
}

func TestHandleSettlement_MixedCaseOutcomes(t *testing.T) {
	h := newTestHarness(t)

	// Lowercase leg outcomes must settle like their uppercase forms,
	// matching the tracker's payout rule.
	opp := h.pairOpportunity()
	opp.Strategy = arbitrage.StrategyThreeWay
	opp.Legs = []arbitrage.Leg{
		{Platform: "polymarket", MarketID: "0xcondition", Outcome: "home", PriceCents: 40},
		{Platform: "polymarket", MarketID: "0xcondition", Outcome: "away_no", PriceCents: 30},
		{Platform: "polymarket", MarketID: "0xcondition", Outcome: "draw", PriceCents: 23},
	}

	h.exec.handleOpportunity(opp)
	if opp.Status != arbitrage.StatusClosed {
		t.Fatalf("status = %s, want CLOSED", opp.Status)
	}

	quantity := 500.0 * 100 / 93
	h.exec.handleSettlement(&types.SettlementEvent{
		ConditionID:    "0xcondition",
		WinningOutcome: "HOME",
		Timestamp:      h.now.Add(time.Hour).Unix(),
	})

	// home wins outright and away_no wins as a short on AWAY; draw loses.
	if len(h.storage.settlements) != 1 {
		t.Fatalf("settlements = %d, want 1", len(h.storage.settlements))
	}
	assertUSD(t, "ExpectedPayoutUSD", h.storage.settlements[0].ExpectedPayoutUSD, 2*quantity)

	// The tracker agrees leg by leg.
	for _, pos := range h.tracker.ActivePositionList() {
		want := 100
		if pos.Outcome == "draw" {
			want = 0
		}
		if pos.CurrentPriceCents != want {
			t.Errorf("leg %q settled at %dc, want %dc", pos.Outcome, pos.CurrentPriceCents, want)
		}
	}
}

func TestSettlesToWin(t *testing.T) {
	tests := []struct {
		leg    string
		winner string
		want   bool
	}{
		{"YES", "YES", true},
		{"yes", "YES", true},
		{"YES", "yes", true},
		{"NO", "YES", false},
		{"HOME_NO", "AWAY", true},
		{"home_no", "AWAY", true},
		{"home_no", "home", false},
		{"AWAY_NO", "away", true},
	}

	for _, tt := range tests {
		if got := settlesToWin(tt.leg, tt.winner); got != tt.want {
			t.Errorf("settlesToWin(%q, %q) = %v, want %v", tt.leg, tt.winner, got, tt.want)
		}
	}
}

func TestStartAndClose(t *testing.T) {
	h := newTestHarness(t)

	oppChan := make(chan *arbitrage.Opportunity, 1)
	settlementChan := make(chan *types.SettlementEvent, 1)
	h.exec.oppChan = oppChan
	h.exec.settlementChan = settlementChan

	ctx, cancel := context.WithCancel(context.Background())
	if err := h.exec.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	oppChan <- h.pairOpportunity()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(h.tracker.Pairs()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(h.tracker.Pairs()); got != 1 {
		t.Fatalf("pairs = %d, want 1", got)
	}

	cancel()
	if err := h.exec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
