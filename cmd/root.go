package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "prediction-arb",
	Short: "Prediction market arbitrage engine",
	Long: `Prediction market arbitrage engine that consumes price feeds across
venues, detects mispriced outcome sets (single-market, cross-platform,
multi-outcome and three-way strategies), and executes them in paper
trading mode behind a risk circuit breaker.

All prices are integer cents; a set of legs whose combined cost plus
fees stays below 100 cents is a guaranteed profit at settlement.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
