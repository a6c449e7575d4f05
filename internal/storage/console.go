package storage

import (
	"context"
	"fmt"

	"github.com/jmlago/prediction-arb/internal/arbitrage"
	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreOpportunity pretty-prints a detected opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("🎯 ARBITRAGE OPPORTUNITY DETECTED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", opp.ID[:8])
	fmt.Printf("Strategy: %s\n", opp.Strategy)
	fmt.Printf("Market:   %s\n", opp.MarketID)
	fmt.Printf("Time:     %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 LEGS\n")
	for _, leg := range opp.Legs {
		fmt.Printf("  %-10s %-20s @ %d¢\n", leg.Platform, leg.Outcome, leg.PriceCents)
	}
	fmt.Printf("  Total cost: %d¢ + %d¢ fees\n", opp.TotalCostCents, opp.FeesCents)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("💰 PROFIT ANALYSIS\n")
	fmt.Printf("  Gross Profit:  $%.4f per contract set\n", opp.GrossProfitUSD)
	fmt.Printf("  Net Profit:    $%.4f per contract set\n", opp.NetProfitUSD)
	fmt.Printf("  Liquidity:     $%.2f\n", opp.LiquidityUSD)
	fmt.Printf("  Risk Score:    %d/10\n", opp.RiskScore)
	fmt.Printf("  Confidence:    %.2f\n", opp.Confidence)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// StoreFill logs an executed fill.
func (c *ConsoleStorage) StoreFill(ctx context.Context, fill types.FillRecord) error {
	c.logger.Info("fill",
		zap.String("fill-id", fill.ID),
		zap.String("market-id", fill.MarketID),
		zap.String("platform", fill.Platform),
		zap.String("outcome", fill.Outcome),
		zap.Int("price-cents", fill.PriceCents),
		zap.Float64("size", fill.Size))
	return nil
}

// StoreSettlement logs a market settlement.
func (c *ConsoleStorage) StoreSettlement(ctx context.Context, rec types.SettlementRecord) error {
	c.logger.Info("settlement",
		zap.String("market-id", rec.MarketID),
		zap.String("winning-outcome", rec.WinningOutcome),
		zap.Float64("expected-payout-usd", rec.ExpectedPayoutUSD),
		zap.Float64("actual-payout-usd", rec.ActualPayoutUSD))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
