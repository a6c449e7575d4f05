package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/jmlago/prediction-arb/internal/arbitrage"
	"github.com/jmlago/prediction-arb/pkg/config"
	"github.com/jmlago/prediction-arb/pkg/types"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan <snapshots.json>",
	Short: "Run the detectors once over a snapshot file",
	Long: `Runs all strategy detectors over a JSON file containing an array of
market snapshots and prints any opportunities found. Useful for
backtesting a captured feed or sanity-checking detector settings
without connecting to the live feed.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot file: %w", err)
	}

	var snapshots []types.MarketSnapshot
	err = json.Unmarshal(data, &snapshots)
	if err != nil {
		return fmt.Errorf("parse snapshot file: %w", err)
	}

	detector, err := arbitrage.New(arbitrage.Config{
		FeeCents:        cfg.ArbFeeCents,
		MinTradeSizeUSD: cfg.ArbMinTradeSize,
		MaxTradeSizeUSD: cfg.ArbMaxTradeSize,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}

	found := 0
	for i := range snapshots {
		opp := detector.Detect(&snapshots[i])
		if opp == nil {
			continue
		}
		found++

		fmt.Printf("%s  %-16s %-20s net=$%.4f cost=%dc risk=%d conf=%.2f\n",
			opp.ID[:8],
			opp.Strategy,
			opp.MarketID,
			opp.NetProfitUSD,
			opp.TotalCostCents+opp.FeesCents,
			opp.RiskScore,
			opp.Confidence)
	}

	logger.Info("scan-complete",
		zap.Int("snapshots", len(snapshots)),
		zap.Int("opportunities", found))

	return nil
}
